package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/telemetry"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// CompletionClient produces the synthesized answer text.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// QueryRepositoryInterface defines the repository interface for query and answer persistence
type QueryRepositoryInterface interface {
	CreateQuery(ctx context.Context, q *domain.Query) error
	CompleteQuery(ctx context.Context, q *domain.Query) error
	// CreateAnswer stores the answer and its citations.
	CreateAnswer(ctx context.Context, a *domain.Answer) error
	ListByRequester(ctx context.Context, requesterID string, limit int) ([]*domain.QueryRecord, error)
}

// QueryMetrics observes resolved queries.
type QueryMetrics interface {
	QueryResolved(source domain.AnswerSource, confidence float64, elapsed time.Duration)
}

const (
	DefaultRelevanceThreshold   = 0.7
	DefaultConfidenceBoost      = 1.2
	DefaultMaxContextDocuments  = 5
	DefaultCitationExcerptChars = 500
)

// RAGConfig tunes the vector fallback.
type RAGConfig struct {
	// RelevanceThreshold is exclusive: a document must score strictly above it.
	// Nil, or a value outside [0, 1), takes the default.
	RelevanceThreshold   *float64
	ConfidenceBoost      float64
	MaxContextDocuments  int
	CitationExcerptChars int
}

func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		RelevanceThreshold:   lo.ToPtr(DefaultRelevanceThreshold),
		ConfidenceBoost:      DefaultConfidenceBoost,
		MaxContextDocuments:  DefaultMaxContextDocuments,
		CitationExcerptChars: DefaultCitationExcerptChars,
	}
}

// QueryDeps are the collaborators of a QueryEngine. Embedder and Completion may be nil
// when no model is configured; the engine then never finds document matches.
type QueryDeps struct {
	Knowledge  KnowledgeRepositoryInterface
	Documents  DocumentRepositoryInterface
	Queries    QueryRepositoryInterface
	TxRunner   TxRunner
	Embedder   EmbeddingClient
	Index      EmbeddingIndex
	Completion CompletionClient
	Metrics    QueryMetrics
}

// QueryEngine answers employee questions from curated knowledge first, documents second.
type QueryEngine struct {
	knowledge  KnowledgeRepositoryInterface
	documents  DocumentRepositoryInterface
	queries    QueryRepositoryInterface
	txRunner   TxRunner
	embedder   EmbeddingClient
	index      EmbeddingIndex
	completion CompletionClient
	metrics    QueryMetrics
	cfg        RAGConfig
	uuidGen    UUIDGenerator
	logger     *zap.Logger
	now        func() time.Time
}

// NewQueryEngine creates a QueryEngine. Zero numeric fields of cfg take their defaults.
func NewQueryEngine(deps QueryDeps, cfg RAGConfig, logger *zap.Logger) *QueryEngine {
	def := DefaultRAGConfig()
	if t := cfg.RelevanceThreshold; t == nil || *t < 0 || *t >= 1 {
		cfg.RelevanceThreshold = def.RelevanceThreshold
	}
	if cfg.ConfidenceBoost <= 0 {
		cfg.ConfidenceBoost = def.ConfidenceBoost
	}
	if cfg.MaxContextDocuments <= 0 {
		cfg.MaxContextDocuments = def.MaxContextDocuments
	}
	if cfg.CitationExcerptChars <= 0 {
		cfg.CitationExcerptChars = def.CitationExcerptChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &QueryEngine{
		knowledge:  deps.Knowledge,
		documents:  deps.Documents,
		queries:    deps.Queries,
		txRunner:   deps.TxRunner,
		embedder:   deps.Embedder,
		index:      deps.Index,
		completion: deps.Completion,
		metrics:    metrics,
		cfg:        cfg,
		uuidGen:    &DefaultUUIDGenerator{},
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type QueryInput struct {
	Text        string
	RequesterID string
	Role        string
	Department  string
}

// Resolve answers a question. The only error it returns is ErrEmptyQuery; every
// other failure produces a zero-confidence answer from the System source.
func (e *QueryEngine) Resolve(ctx context.Context, input QueryInput) (*domain.Answer, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, domain.ErrEmptyQuery
	}

	started := time.Now()
	requester := domain.Requester{ID: input.RequesterID, Role: input.Role, Department: input.Department}
	query := domain.NewQuery(e.uuidGen.NewString(), input.Text, requester, e.now())

	ctx, span := telemetry.StartSpan(ctx, "QueryEngine.Resolve", telemetry.SpanAttributes{
		RequesterID: requester.ID,
		QueryID:     query.ID,
		Operation:   "resolve",
	})
	defer span.End()

	logger := e.logger.With(zap.String("query_id", query.ID), zap.String("requester_id", requester.ID))

	created := false
	answer, source, err := e.safeResolve(ctx, query, requester, &created)
	if err != nil {
		logger.Error("query resolution failed", zap.Error(err))
		span.SetError(err)
		answer, source = e.failureAnswer(query), domain.AnswerSourceSystem
	}

	elapsed := time.Since(started)
	query.Complete(source, answer.Confidence, elapsed)
	e.record(context.WithoutCancel(ctx), query, answer, created, logger)
	e.metrics.QueryResolved(source, answer.Confidence, elapsed)

	logger.Info("query resolved",
		zap.String("answer_source", string(source)),
		zap.Float64("confidence", answer.Confidence),
		zap.Int64("response_time_ms", query.ResponseTimeMs),
	)
	return answer, nil
}

// History returns the requester's most recent queries with their answers.
func (e *QueryEngine) History(ctx context.Context, requesterID string, limit int) ([]*domain.QueryRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryEngine.History", telemetry.SpanAttributes{
		RequesterID: requesterID,
		Operation:   "history",
	})
	defer span.End()

	if strings.TrimSpace(requesterID) == "" {
		return nil, domain.ErrMissingRequester
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return e.queries.ListByRequester(ctx, requesterID, limit)
}

func (e *QueryEngine) safeResolve(
	ctx context.Context,
	query *domain.Query,
	requester domain.Requester,
	created *bool,
) (answer *domain.Answer, source domain.AnswerSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			answer, source, err = nil, "", fmt.Errorf("query resolution panicked: %v", r)
		}
	}()

	if err := e.queries.CreateQuery(ctx, query); err != nil {
		e.logger.Warn("failed to record query", zap.String("query_id", query.ID), zap.Error(err))
	} else {
		*created = true
	}

	tiers := requester.Tiers()

	items, err := e.knowledge.ListActiveByTiers(ctx, tiers)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load knowledge items: %w", err)
	}
	if item := MatchKnowledge(query.Text, items, tiers); item != nil {
		return e.structuredAnswer(query, item), domain.AnswerSourceStructured, nil
	}

	answer, err = e.documentAnswer(ctx, query, requester, tiers)
	if err != nil {
		return nil, "", err
	}
	return answer, domain.AnswerSourceAI, nil
}

func (e *QueryEngine) structuredAnswer(query *domain.Query, item *domain.KnowledgeItem) *domain.Answer {
	return &domain.Answer{
		ID:                 e.uuidGen.NewString(),
		QueryID:            query.ID,
		Text:               item.Answer,
		Source:             item.Provenance(),
		Confidence:         domain.StructuredConfidence,
		FromStructuredData: true,
		KnowledgeItemID:    item.ID,
		CreatedAt:          e.now(),
	}
}

func (e *QueryEngine) documentAnswer(
	ctx context.Context,
	query *domain.Query,
	requester domain.Requester,
	tiers []domain.AccessTier,
) (*domain.Answer, error) {
	vector := e.embedQuery(ctx, query.Text)

	candidates, err := e.documents.ListSearchCandidates(ctx, tiers)
	if err != nil {
		return nil, fmt.Errorf("failed to list search candidates: %w", err)
	}

	scored, err := e.index.Search(ctx, vector, candidates, domain.SearchOptions{
		Threshold: *e.cfg.RelevanceThreshold,
		Limit:     e.cfg.MaxContextDocuments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	if len(scored) == 0 {
		return &domain.Answer{
			ID:         e.uuidGen.NewString(),
			QueryID:    query.ID,
			Text:       domain.NoResultAnswerText,
			Source:     domain.AISourceName,
			Confidence: domain.NoResultConfidence,
			CreatedAt:  e.now(),
		}, nil
	}

	docs, err := e.documents.GetByIDs(ctx, lo.Map(scored, func(s domain.ScoredDocument, _ int) string { return s.DocumentID }))
	if err != nil {
		return nil, fmt.Errorf("failed to load matched documents: %w", err)
	}
	byID := lo.KeyBy(docs, func(d *domain.Document) string { return d.ID })

	if e.completion == nil {
		return nil, errors.New("no completion client configured")
	}
	text, err := e.completion.Complete(ctx, answerSystemPrompt, buildAnswerPrompt(query.Text, requester, scored, byID))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	citations := make([]domain.Citation, 0, len(scored))
	for _, s := range scored {
		citations = append(citations, domain.Citation{
			DocumentID:     s.DocumentID,
			DocumentName:   documentName(byID, s.DocumentID),
			ChunkID:        s.ChunkID,
			RelevanceScore: s.Score,
			CitedText:      truncateRunes(s.ChunkText, e.cfg.CitationExcerptChars),
		})
	}

	return &domain.Answer{
		ID:         e.uuidGen.NewString(),
		QueryID:    query.ID,
		Text:       text,
		Source:     domain.AISourceName,
		Confidence: e.confidence(scored),
		Citations:  citations,
		CreatedAt:  e.now(),
	}, nil
}

// embedQuery degrades to an empty vector, which scores zero against every chunk.
func (e *QueryEngine) embedQuery(ctx context.Context, text string) []float32 {
	if e.embedder == nil {
		return nil
	}
	vector, err := e.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		e.logger.Warn("query embedding failed", zap.Error(err))
		return nil
	}
	return vector
}

// confidence is the mean relevance scaled by the boost, capped at 1.
func (e *QueryEngine) confidence(scored []domain.ScoredDocument) float64 {
	mean := lo.SumBy(scored, func(s domain.ScoredDocument) float64 { return s.Score }) / float64(len(scored))
	return math.Min(mean*e.cfg.ConfidenceBoost, 1.0)
}

func (e *QueryEngine) failureAnswer(query *domain.Query) *domain.Answer {
	return &domain.Answer{
		ID:         e.uuidGen.NewString(),
		QueryID:    query.ID,
		Text:       domain.FailureAnswerText,
		Source:     domain.SystemSourceName,
		Confidence: domain.FailureConfidence,
		CreatedAt:  e.now(),
	}
}

// record persists the completed query and its answer in one transaction. Errors are only logged.
func (e *QueryEngine) record(ctx context.Context, query *domain.Query, answer *domain.Answer, created bool, logger *zap.Logger) {
	err := e.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if created {
			if err := repos.Queries().CompleteQuery(ctx, query); err != nil {
				return err
			}
		} else if err := repos.Queries().CreateQuery(ctx, query); err != nil {
			return err
		}
		return repos.Queries().CreateAnswer(ctx, answer)
	})
	if err != nil {
		logger.Error("failed to record answer", zap.Error(err))
		telemetry.CaptureError(ctx, err)
	}
}

const answerSystemPrompt = "You are an internal help desk assistant answering employee questions. " +
	"Answer only from the provided context documents. If the context does not contain the answer, say so. " +
	"Be concise and mention which document the information comes from."

func buildAnswerPrompt(question string, requester domain.Requester, scored []domain.ScoredDocument, docs map[string]*domain.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", question)
	fmt.Fprintf(&b, "Role: %s, Department: %s\n\n", requester.Role, requester.Department)
	b.WriteString("Context documents:\n")
	for i, s := range scored {
		category := ""
		if d, ok := docs[s.DocumentID]; ok {
			category = d.Category
		}
		fmt.Fprintf(&b, "\n[%d] %s (category: %s, relevance: %.2f)\n%s\n",
			i+1, documentName(docs, s.DocumentID), category, s.Score, s.ChunkText)
	}
	return b.String()
}

func documentName(docs map[string]*domain.Document, id string) string {
	if d, ok := docs[id]; ok && d.DisplayName != "" {
		return d.DisplayName
	}
	return id
}

func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
