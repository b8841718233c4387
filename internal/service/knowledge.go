package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/pagination"
	"github.com/cloo-solutions/askdesk/internal/telemetry"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// KnowledgeRepositoryInterface defines the repository interface for curated knowledge persistence
type KnowledgeRepositoryInterface interface {
	Create(ctx context.Context, k *domain.KnowledgeItem) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
	Update(ctx context.Context, k *domain.KnowledgeItem) error
	// ListActiveByTiers returns active items in the given tiers, oldest first.
	ListActiveByTiers(ctx context.Context, tiers []domain.AccessTier) ([]*domain.KnowledgeItem, error)
	ListWithCursor(ctx context.Context, tiers []domain.AccessTier, cursor *pagination.Cursor, limit int) (*KnowledgePageResult, error)
}

type KnowledgePageResult struct {
	Items      []*domain.KnowledgeItem
	NextCursor string
	HasMore    bool
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// KnowledgeService handles curation of structured question/answer items
type KnowledgeService struct {
	knowledgeRepo KnowledgeRepositoryInterface
	txRunner      TxRunner
	uuidGen       UUIDGenerator
	logger        *zap.Logger
	now           func() time.Time
}

// NewKnowledgeService creates a new KnowledgeService instance
func NewKnowledgeService(knowledgeRepo KnowledgeRepositoryInterface, txRunner TxRunner, logger *zap.Logger) *KnowledgeService {
	return NewKnowledgeServiceWithUUIDGen(knowledgeRepo, txRunner, logger, &DefaultUUIDGenerator{})
}

// NewKnowledgeServiceWithUUIDGen creates a new KnowledgeService with custom UUID generator (for testing)
func NewKnowledgeServiceWithUUIDGen(
	knowledgeRepo KnowledgeRepositoryInterface,
	txRunner TxRunner,
	logger *zap.Logger,
	uuidGen UUIDGenerator,
) *KnowledgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeService{
		knowledgeRepo: knowledgeRepo,
		txRunner:      txRunner,
		uuidGen:       uuidGen,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateKnowledgeInput represents the input for creating a knowledge item
type CreateKnowledgeInput struct {
	Question   string
	Answer     string
	Category   string
	AccessTier string
	Keywords   []string
	Priority   int
	Source     string
	CreatedBy  string
}

// UpdateKnowledgeInput represents the input for updating a knowledge item
type UpdateKnowledgeInput struct {
	KnowledgeID string
	Question    string
	Answer      string
	Category    string
	AccessTier  string
	Keywords    []string
	Priority    int
	Source      string
}

type ListKnowledgeInput struct {
	Requester domain.Requester
	Cursor    string
	Limit     int
}

type ListKnowledgeOutput struct {
	Items   []*domain.KnowledgeItem
	Cursor  string
	HasMore bool
}

func (s *KnowledgeService) build(input CreateKnowledgeInput) (*domain.KnowledgeItem, error) {
	tier, err := parseTierOrGeneral(input.AccessTier)
	if err != nil {
		return nil, err
	}

	item := domain.NewKnowledgeItem(
		s.uuidGen.NewString(),
		strings.TrimSpace(input.Question),
		strings.TrimSpace(input.Answer),
		strings.TrimSpace(input.Category),
		tier,
		normalizeKeywords(input.Keywords),
		input.Priority,
		s.now(),
	)
	item.Source = strings.TrimSpace(input.Source)
	item.CreatedBy = input.CreatedBy

	if err := domain.ValidateKnowledgeItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Create validates and stores a new active knowledge item
func (s *KnowledgeService) Create(ctx context.Context, input CreateKnowledgeInput) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Create", telemetry.SpanAttributes{
		RequesterID: input.CreatedBy,
		Operation:   "create",
	})
	defer span.End()

	item, err := s.build(input)
	if err != nil {
		return nil, err
	}

	if err := s.knowledgeRepo.Create(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// Import stores a batch of items atomically. Nothing is written if any item is invalid.
func (s *KnowledgeService) Import(ctx context.Context, inputs []CreateKnowledgeInput) ([]*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Import", telemetry.SpanAttributes{
		Operation: "import",
	})
	defer span.End()

	items := make([]*domain.KnowledgeItem, 0, len(inputs))
	for i, input := range inputs {
		item, err := s.build(input)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		items = append(items, item)
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		for _, item := range items {
			if err := repos.Knowledge().Create(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("imported knowledge items", zap.Int("count", len(items)))
	return items, nil
}

// GetByID retrieves a knowledge item the requester is allowed to see
func (s *KnowledgeService) GetByID(ctx context.Context, id string, requester domain.Requester) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.GetByID", telemetry.SpanAttributes{
		RequesterID: requester.ID,
		KnowledgeID: id,
		Operation:   "get",
	})
	defer span.End()

	item, err := s.knowledgeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Hidden items look missing rather than forbidden.
	if !domain.CanAccess(requester.Tiers(), item.AccessTier) {
		return nil, domain.ErrKnowledgeNotFound
	}

	return item, nil
}

// Update replaces the editable fields of an active knowledge item
func (s *KnowledgeService) Update(ctx context.Context, input UpdateKnowledgeInput) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Update", telemetry.SpanAttributes{
		KnowledgeID: input.KnowledgeID,
		Operation:   "update",
	})
	defer span.End()

	item, err := s.knowledgeRepo.GetByID(ctx, input.KnowledgeID)
	if err != nil {
		return nil, err
	}

	tier, err := parseTierOrGeneral(input.AccessTier)
	if err != nil {
		return nil, err
	}

	item.Question = strings.TrimSpace(input.Question)
	item.Answer = strings.TrimSpace(input.Answer)
	item.Category = strings.TrimSpace(input.Category)
	item.AccessTier = tier
	item.Keywords = normalizeKeywords(input.Keywords)
	item.Priority = input.Priority
	item.Source = strings.TrimSpace(input.Source)
	item.UpdatedAt = s.now()

	if err := domain.ValidateKnowledgeItem(item); err != nil {
		return nil, err
	}

	if err := s.knowledgeRepo.Update(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// Retire deactivates a knowledge item. Items are never deleted.
func (s *KnowledgeService) Retire(ctx context.Context, knowledgeID string) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Retire", telemetry.SpanAttributes{
		KnowledgeID: knowledgeID,
		Operation:   "retire",
	})
	defer span.End()

	item, err := s.knowledgeRepo.GetByID(ctx, knowledgeID)
	if err != nil {
		return nil, err
	}

	if !item.Active {
		return item, nil
	}

	item.Retire(s.now())
	if err := s.knowledgeRepo.Update(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// List returns the knowledge items visible to the requester, newest first.
func (s *KnowledgeService) List(ctx context.Context, input ListKnowledgeInput) (*ListKnowledgeOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.List", telemetry.SpanAttributes{
		RequesterID: input.Requester.ID,
		Operation:   "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := pagination.ClampLimit(input.Limit)

	result, err := s.knowledgeRepo.ListWithCursor(ctx, input.Requester.Tiers(), cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListKnowledgeOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

func normalizeKeywords(keywords []string) []string {
	cleaned := lo.FilterMap(keywords, func(k string, _ int) (string, bool) {
		k = strings.ToLower(strings.TrimSpace(k))
		return k, k != ""
	})
	return lo.Uniq(cleaned)
}

// parseTierOrGeneral treats a blank tier as General.
func parseTierOrGeneral(s string) (domain.AccessTier, error) {
	if strings.TrimSpace(s) == "" {
		return domain.AccessTierGeneral, nil
	}
	return domain.ParseAccessTier(s)
}
