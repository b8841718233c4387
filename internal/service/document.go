package service

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/jobs"
	"github.com/cloo-solutions/askdesk/internal/pagination"
	"github.com/cloo-solutions/askdesk/internal/telemetry"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultMaxUploadBytes caps a single upload at 50 MiB.
const DefaultMaxUploadBytes int64 = 50 << 20

// DefaultAllowedFileTypes are the extensions accepted for upload.
var DefaultAllowedFileTypes = []string{"pdf", "docx", "xlsx", "pptx", "txt", "md", "csv"}

// ObjectStore holds the original uploaded bytes.
type ObjectStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Document, error)
	// Update fails with domain.ErrDocumentInactive once the document is deactivated.
	Update(ctx context.Context, d *domain.Document) error
	// Deactivate reports false when the document was already inactive.
	Deactivate(ctx context.Context, id string, at time.Time) (bool, error)
	// ListSearchCandidates returns active Indexed documents in the given tiers, earliest indexed first.
	ListSearchCandidates(ctx context.Context, tiers []domain.AccessTier) ([]domain.SearchCandidate, error)
	ListWithCursor(ctx context.Context, tiers []domain.AccessTier, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	ListStaleUploaded(ctx context.Context, uploadedBefore time.Time, limit int) ([]string, error)
}

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// IngestionDispatcher starts background ingestion runs.
type IngestionDispatcher interface {
	Submit(documentID string) (*jobs.Task, error)
	// Get returns the run still in flight for documentID, if any.
	Get(documentID string) (*jobs.Task, bool)
}

// DocumentLimits bounds what Upload accepts.
type DocumentLimits struct {
	MaxUploadBytes   int64
	AllowedFileTypes []string
}

// DocumentService handles upload and lifecycle of source documents
type DocumentService struct {
	documents  DocumentRepositoryInterface
	store      ObjectStore
	dispatcher IngestionDispatcher
	index      EmbeddingIndex
	limits     DocumentLimits
	uuidGen    UUIDGenerator
	logger     *zap.Logger
	now        func() time.Time
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(
	documents DocumentRepositoryInterface,
	store ObjectStore,
	dispatcher IngestionDispatcher,
	index EmbeddingIndex,
	limits DocumentLimits,
	logger *zap.Logger,
) *DocumentService {
	if limits.MaxUploadBytes <= 0 {
		limits.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if len(limits.AllowedFileTypes) == 0 {
		limits.AllowedFileTypes = DefaultAllowedFileTypes
	}
	limits.AllowedFileTypes = lo.Map(limits.AllowedFileTypes, func(t string, _ int) string {
		return domain.NormalizeFileType(t)
	})
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		documents:  documents,
		store:      store,
		dispatcher: dispatcher,
		index:      index,
		limits:     limits,
		uuidGen:    &DefaultUUIDGenerator{},
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type UploadInput struct {
	Requester   domain.Requester
	FileName    string
	DisplayName string
	Category    string
	AccessTier  string
	ContentType string
	Content     []byte
}

// UploadResult carries the stored document and, when dispatch succeeded, its ingestion task.
type UploadResult struct {
	Document *domain.Document
	Task     *jobs.Task
}

// DocumentStatusView is the ingestion progress shown to users.
type DocumentStatusView struct {
	DocumentID   string
	DisplayName  string
	Status       domain.DocumentStatus
	Progress     int
	ChunkCount   int
	ErrorMessage string
	ProcessedAt  *time.Time
	IndexedAt    *time.Time
}

type ListDocumentsInput struct {
	Requester domain.Requester
	Cursor    string
	Limit     int
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Upload validates and stores a file, records it as Uploaded and starts ingestion without waiting.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Upload", telemetry.SpanAttributes{
		RequesterID: input.Requester.ID,
		Operation:   "upload",
	})
	defer span.End()

	if strings.TrimSpace(input.Requester.ID) == "" {
		return nil, domain.ErrMissingRequester
	}

	fileName := filepath.Base(strings.TrimSpace(input.FileName))
	fileType := domain.NormalizeFileType(filepath.Ext(fileName))
	if fileType == "" || !lo.Contains(s.limits.AllowedFileTypes, fileType) {
		return nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeValidation,
			domain.ErrUnsupportedFileType.Message,
			fmt.Errorf("file type %q", fileType),
		)
	}
	if len(input.Content) == 0 {
		return nil, domain.ErrEmptyFile
	}
	if int64(len(input.Content)) > s.limits.MaxUploadBytes {
		return nil, domain.NewDomainErrorWithCause(
			domain.ErrCodeValidation,
			domain.ErrFileTooLarge.Message,
			fmt.Errorf("%d bytes exceeds %d", len(input.Content), s.limits.MaxUploadBytes),
		)
	}

	tier, err := parseTierOrGeneral(input.AccessTier)
	if err != nil {
		return nil, err
	}
	if !domain.CanAccess(input.Requester.Tiers(), tier) {
		return nil, domain.ErrAccessDenied
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = fileName
	}

	id := s.uuidGen.NewString()
	key := fmt.Sprintf("documents/%s/%s", id, unsafeKeyChars.ReplaceAllString(fileName, "_"))

	doc := domain.NewDocument(
		id,
		displayName,
		strings.TrimSpace(input.Category),
		tier,
		fileType,
		int64(len(input.Content)),
		key,
		input.Requester.ID,
		s.now(),
	)
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if _, err := s.store.Put(ctx, key, input.Content, input.ContentType); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, domain.ErrStorageOperationFail.Message, err)
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		if _, delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("storage_key", key), zap.Error(delErr))
		}
		return nil, err
	}

	result := &UploadResult{Document: doc}
	task, err := s.dispatcher.Submit(doc.ID)
	if err != nil {
		// The sweeper resubmits documents left in Uploaded.
		s.logger.Warn("failed to dispatch ingestion", zap.String("document_id", doc.ID), zap.Error(err))
		return result, nil
	}
	result.Task = task

	s.logger.Info("document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("file_type", fileType),
		zap.Int64("size_bytes", doc.SizeBytes),
	)
	return result, nil
}

// Get returns a document the requester may see.
func (s *DocumentService) Get(ctx context.Context, id string, requester domain.Requester) (*domain.Document, error) {
	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsActive || !domain.CanAccess(requester.Tiers(), doc.AccessTier) {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// GetStatus reports ingestion progress for a document the requester may see.
func (s *DocumentService) GetStatus(ctx context.Context, id string, requester domain.Requester) (*DocumentStatusView, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.GetStatus", telemetry.SpanAttributes{
		RequesterID: requester.ID,
		DocumentID:  id,
		Operation:   "status",
	})
	defer span.End()

	doc, err := s.Get(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	return &DocumentStatusView{
		DocumentID:   doc.ID,
		DisplayName:  doc.DisplayName,
		Status:       doc.Status,
		Progress:     doc.Status.Progress(),
		ChunkCount:   doc.ChunkCount,
		ErrorMessage: doc.ErrorMessage,
		ProcessedAt:  doc.ProcessedAt,
		IndexedAt:    doc.IndexedAt,
	}, nil
}

// Archive retires an Indexed document from search.
func (s *DocumentService) Archive(ctx context.Context, id string, requester domain.Requester) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Archive", telemetry.SpanAttributes{
		RequesterID: requester.ID,
		DocumentID:  id,
		Operation:   "archive",
	})
	defer span.End()

	if err := requireAdmin(requester); err != nil {
		return nil, err
	}

	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := doc.TransitionTo(domain.DocumentStatusArchived, s.now()); err != nil {
		return nil, err
	}
	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// Deactivate soft-deletes a document, dropping its blob and chunks.
func (s *DocumentService) Deactivate(ctx context.Context, id string, requester domain.Requester) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Deactivate", telemetry.SpanAttributes{
		RequesterID: requester.ID,
		DocumentID:  id,
		Operation:   "delete",
	})
	defer span.End()

	if err := requireAdmin(requester); err != nil {
		return err
	}

	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !doc.IsActive {
		return nil
	}

	changed, err := s.documents.Deactivate(ctx, doc.ID, s.now())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	doc.IsActive = false
	doc.UpdatedAt = s.now()

	// A running ingestion must finish before its blob and chunks go away.
	if task, running := s.dispatcher.Get(doc.ID); running {
		task.Cancel()
		if _, err := task.Wait(ctx); err != nil && ctx.Err() != nil {
			return err
		}
	}

	if _, err := s.store.Delete(ctx, doc.StorageKey); err != nil {
		s.logger.Warn("failed to delete document blob", zap.String("document_id", doc.ID), zap.Error(err))
	}
	if err := s.index.DeleteChunks(ctx, doc.ID); err != nil {
		s.logger.Warn("failed to delete document chunks", zap.String("document_id", doc.ID), zap.Error(err))
	}

	return nil
}

// Reingest starts a fresh run for a Failed or Indexed document.
func (s *DocumentService) Reingest(ctx context.Context, id string, requester domain.Requester) (*UploadResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Reingest", telemetry.SpanAttributes{
		RequesterID: requester.ID,
		DocumentID:  id,
		Operation:   "reingest",
	})
	defer span.End()

	if err := requireAdmin(requester); err != nil {
		return nil, err
	}

	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// A run that already wrote its terminal status may still hold the dispatcher slot.
	if _, running := s.dispatcher.Get(doc.ID); running {
		return nil, domain.ErrIngestionInProgress
	}
	if err := doc.Restart(s.now()); err != nil {
		return nil, err
	}
	if err := s.documents.Update(ctx, doc); err != nil {
		return nil, err
	}

	result := &UploadResult{Document: doc}
	task, err := s.dispatcher.Submit(doc.ID)
	if err != nil {
		s.logger.Warn("failed to dispatch reingestion", zap.String("document_id", doc.ID), zap.Error(err))
		return result, nil
	}
	result.Task = task
	return result, nil
}

// List returns active documents visible to the requester, newest first.
func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.List", telemetry.SpanAttributes{
		RequesterID: input.Requester.ID,
		Operation:   "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := pagination.ClampLimit(input.Limit)

	result, err := s.documents.ListWithCursor(ctx, input.Requester.Tiers(), cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListDocumentsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

func requireAdmin(requester domain.Requester) error {
	if strings.TrimSpace(requester.ID) == "" {
		return domain.ErrMissingRequester
	}
	if !strings.EqualFold(strings.TrimSpace(requester.Role), domain.RoleAdmin) {
		return domain.ErrAccessDenied
	}
	return nil
}
