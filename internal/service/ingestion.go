package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/telemetry"
	"go.uber.org/zap"
)

// TextExtractor turns raw file bytes into plain text. Unsupported types yield "".
type TextExtractor interface {
	Extract(ctx context.Context, content []byte, fileType string) (string, error)
}

// Summarizer derives a short summary and keywords from document text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	ExtractKeywords(ctx context.Context, text string) ([]string, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingIndex stores chunk vectors and ranks documents against a query vector.
type EmbeddingIndex interface {
	// ReplaceChunks swaps every stored chunk of documentID for chunks.
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error
	DeleteChunks(ctx context.Context, documentID string) error
	Search(ctx context.Context, vector []float32, candidates []domain.SearchCandidate, opts domain.SearchOptions) ([]domain.ScoredDocument, error)
}

// IngestionMetrics observes ingestion runs.
type IngestionMetrics interface {
	IngestionStarted()
	IngestionFinished(status domain.DocumentStatus, skipped int, elapsed time.Duration)
}

// IngestionDeps are the collaborators of an IngestionPipeline. Summarizer is optional.
type IngestionDeps struct {
	Documents  DocumentRepositoryInterface
	Store      ObjectStore
	Extractor  TextExtractor
	Summarizer Summarizer
	Embedder   EmbeddingClient
	Index      EmbeddingIndex
	Metrics    IngestionMetrics
}

// IngestionPipeline turns an uploaded document into indexed, embedded chunks.
type IngestionPipeline struct {
	documents      DocumentRepositoryInterface
	store          ObjectStore
	extractor      TextExtractor
	summarizer     Summarizer
	embedder       EmbeddingClient
	index          EmbeddingIndex
	metrics        IngestionMetrics
	chunkCfg       ChunkConfig
	embeddingModel string
	uuidGen        UUIDGenerator
	logger         *zap.Logger
	now            func() time.Time
}

// NewIngestionPipeline creates an IngestionPipeline. A zero chunkCfg uses the defaults.
func NewIngestionPipeline(deps IngestionDeps, chunkCfg ChunkConfig, embeddingModel string, logger *zap.Logger) *IngestionPipeline {
	if chunkCfg.Size <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &IngestionPipeline{
		documents:      deps.Documents,
		store:          deps.Store,
		extractor:      deps.Extractor,
		summarizer:     deps.Summarizer,
		embedder:       deps.Embedder,
		index:          deps.Index,
		metrics:        metrics,
		chunkCfg:       chunkCfg,
		embeddingModel: embeddingModel,
		uuidGen:        &DefaultUUIDGenerator{},
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one ingestion run for an Uploaded document.
//
// Every failure after the document enters Processing is recorded as Failed and
// reported through the result; the returned error is reserved for runs that
// could not start or whose terminal status could not be written.
func (p *IngestionPipeline) Run(ctx context.Context, documentID string) (*domain.IngestionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionPipeline.Run", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "ingest",
	})
	defer span.End()

	doc, err := p.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsActive {
		return nil, domain.ErrDocumentInactive
	}
	if doc.Status != domain.DocumentStatusUploaded {
		return nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeInvalidOperation,
			domain.ErrInvalidStatusTransition.Message,
			fmt.Errorf("document %s is %s, expected %s", doc.ID, doc.Status, domain.DocumentStatusUploaded),
		)
	}

	if err := doc.TransitionTo(domain.DocumentStatusProcessing, p.now()); err != nil {
		return nil, err
	}
	if err := p.documents.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to mark document processing: %w", err)
	}
	telemetry.DocumentStatusChanged(ctx, doc.ID, string(doc.Status))

	started := time.Now()
	p.metrics.IngestionStarted()
	result := &domain.IngestionResult{DocumentID: doc.ID}
	defer func() {
		p.metrics.IngestionFinished(result.Status, result.SkippedChunks, time.Since(started))
	}()

	logger := p.logger.With(zap.String("document_id", doc.ID), zap.String("file_type", doc.FileType))
	logger.Info("ingestion started")

	if err := p.process(ctx, doc, result, logger); err != nil {
		logger.Warn("ingestion failed", zap.Error(err))
		span.SetError(err)
		return p.fail(ctx, doc, result, err)
	}

	result.Status = doc.Status
	result.ChunkCount = doc.ChunkCount
	logger.Info("ingestion completed",
		zap.Int("chunks", result.ChunkCount),
		zap.Int("skipped_chunks", result.SkippedChunks),
	)
	return result, nil
}

// process runs steps 2 to 8; a panic becomes an error so the caller can record Failed.
func (p *IngestionPipeline) process(ctx context.Context, doc *domain.Document, result *domain.IngestionResult, logger *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ingestion panicked: %v", r)
		}
	}()

	content, err := p.store.Get(ctx, doc.StorageKey)
	if err != nil {
		return fmt.Errorf("failed to download document: %w", err)
	}

	text, err := p.extractor.Extract(ctx, content, doc.FileType)
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("no text could be extracted from the document")
	}

	doc.ExtractedText = text
	if err := doc.TransitionTo(domain.DocumentStatusProcessed, p.now()); err != nil {
		return err
	}
	if err := p.documents.Update(ctx, doc); err != nil {
		return fmt.Errorf("failed to store extracted text: %w", err)
	}
	telemetry.DocumentStatusChanged(ctx, doc.ID, string(doc.Status))

	p.enrich(ctx, doc, logger)

	chunks := ChunkText(text, p.chunkCfg.Size, p.chunkCfg.Overlap)
	if len(chunks) == 0 {
		return errors.New("document produced no chunks")
	}
	if p.embedder == nil {
		return errors.New("no embedding model configured")
	}

	embedded := make([]domain.DocumentChunk, 0, len(chunks))
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		vector, err := p.embedder.GenerateEmbedding(ctx, c.Text)
		if err == nil && len(vector) == 0 {
			err = errors.New("empty embedding")
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			result.SkippedChunks++
			logger.Warn("skipping chunk", zap.Int("chunk_index", c.Index), zap.Error(err))
			continue
		}

		embedded = append(embedded, domain.DocumentChunk{
			ID:             p.uuidGen.NewString(),
			DocumentID:     doc.ID,
			ChunkIndex:     len(embedded),
			StartOffset:    c.StartOffset,
			EndOffset:      c.EndOffset,
			Text:           c.Text,
			Embedding:      vector,
			EmbeddingModel: p.embeddingModel,
			CreatedAt:      p.now(),
		})
	}
	if len(embedded) == 0 {
		return fmt.Errorf("none of %d chunks could be embedded", len(chunks))
	}

	if err := p.index.ReplaceChunks(ctx, doc.ID, embedded); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}

	indexed := *doc
	indexed.ChunkCount = len(embedded)
	if err := indexed.TransitionTo(domain.DocumentStatusIndexed, p.now()); err != nil {
		return err
	}
	if err := p.documents.Update(ctx, &indexed); err != nil {
		return fmt.Errorf("failed to mark document indexed: %w", err)
	}
	*doc = indexed
	telemetry.DocumentStatusChanged(ctx, doc.ID, string(doc.Status))

	return nil
}

// enrich fills Summary and Keywords. Failures are logged and leave the fields empty.
func (p *IngestionPipeline) enrich(ctx context.Context, doc *domain.Document, logger *zap.Logger) {
	if p.summarizer == nil {
		return
	}

	summary, err := p.summarizer.Summarize(ctx, doc.ExtractedText)
	if err != nil {
		logger.Warn("summary generation failed", zap.Error(err))
	} else {
		doc.Summary = summary
	}

	keywords, err := p.summarizer.ExtractKeywords(ctx, doc.ExtractedText)
	if err != nil {
		logger.Warn("keyword extraction failed", zap.Error(err))
	} else {
		doc.Keywords = keywords
	}
}

// fail records Failed with a context that survives cancellation of the run.
func (p *IngestionPipeline) fail(ctx context.Context, doc *domain.Document, result *domain.IngestionResult, cause error) (*domain.IngestionResult, error) {
	ctx = context.WithoutCancel(ctx)

	result.Status = domain.DocumentStatusFailed
	result.ChunkCount = 0
	result.Error = cause.Error()

	if err := p.index.DeleteChunks(ctx, doc.ID); err != nil {
		p.logger.Warn("failed to drop chunks of failed document", zap.String("document_id", doc.ID), zap.Error(err))
	}

	if err := doc.Fail(cause.Error(), p.now()); err != nil {
		return result, err
	}
	if err := p.documents.Update(ctx, doc); err != nil {
		if errors.Is(err, domain.ErrDocumentInactive) {
			doc.IsActive = false
			p.logger.Info("document deactivated during ingestion", zap.String("document_id", doc.ID))
			return result, nil
		}
		telemetry.CaptureError(ctx, err)
		return result, fmt.Errorf("failed to mark document failed: %w", err)
	}
	telemetry.DocumentStatusChanged(ctx, doc.ID, string(doc.Status))

	return result, nil
}

type noopMetrics struct{}

func (noopMetrics) IngestionStarted() {}

func (noopMetrics) IngestionFinished(domain.DocumentStatus, int, time.Duration) {}

func (noopMetrics) QueryResolved(domain.AnswerSource, float64, time.Duration) {}
