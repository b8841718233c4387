package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/jobs"
	"github.com/cloo-solutions/askdesk/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockKnowledgeRepository is a mock implementation of KnowledgeRepositoryInterface
type MockKnowledgeRepository struct {
	mock.Mock
}

func (m *MockKnowledgeRepository) Create(ctx context.Context, k *domain.KnowledgeItem) error {
	args := m.Called(ctx, k)
	return args.Error(0)
}

func (m *MockKnowledgeRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockKnowledgeRepository) Update(ctx context.Context, k *domain.KnowledgeItem) error {
	args := m.Called(ctx, k)
	return args.Error(0)
}

func (m *MockKnowledgeRepository) ListActiveByTiers(ctx context.Context, tiers []domain.AccessTier) ([]*domain.KnowledgeItem, error) {
	args := m.Called(ctx, tiers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeItem), args.Error(1)
}

func (m *MockKnowledgeRepository) ListWithCursor(ctx context.Context, tiers []domain.AccessTier, cursor *pagination.Cursor, limit int) (*KnowledgePageResult, error) {
	args := m.Called(ctx, tiers, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*KnowledgePageResult), args.Error(1)
}

// MockDocumentRepository is a mock implementation of DocumentRepositoryInterface
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Document, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) Update(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) Deactivate(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) ListSearchCandidates(ctx context.Context, tiers []domain.AccessTier) ([]domain.SearchCandidate, error) {
	args := m.Called(ctx, tiers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchCandidate), args.Error(1)
}

func (m *MockDocumentRepository) ListWithCursor(ctx context.Context, tiers []domain.AccessTier, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	args := m.Called(ctx, tiers, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPageResult), args.Error(1)
}

func (m *MockDocumentRepository) ListStaleUploaded(ctx context.Context, uploadedBefore time.Time, limit int) ([]string, error) {
	args := m.Called(ctx, uploadedBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockQueryRepository is a mock implementation of QueryRepositoryInterface
type MockQueryRepository struct {
	mock.Mock
}

func (m *MockQueryRepository) CreateQuery(ctx context.Context, q *domain.Query) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockQueryRepository) CompleteQuery(ctx context.Context, q *domain.Query) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockQueryRepository) CreateAnswer(ctx context.Context, a *domain.Answer) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockQueryRepository) ListByRequester(ctx context.Context, requesterID string, limit int) ([]*domain.QueryRecord, error) {
	args := m.Called(ctx, requesterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QueryRecord), args.Error(1)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, content, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Extract(ctx context.Context, content []byte, fileType string) (string, error) {
	args := m.Called(ctx, content, fileType)
	return args.String(0), args.Error(1)
}

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

func (m *MockSummarizer) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockEmbeddingIndex struct {
	mock.Mock
}

func (m *MockEmbeddingIndex) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	args := m.Called(ctx, documentID, chunks)
	return args.Error(0)
}

func (m *MockEmbeddingIndex) DeleteChunks(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockEmbeddingIndex) Search(ctx context.Context, vector []float32, candidates []domain.SearchCandidate, opts domain.SearchOptions) ([]domain.ScoredDocument, error) {
	args := m.Called(ctx, vector, candidates, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredDocument), args.Error(1)
}

type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Submit(documentID string) (*jobs.Task, error) {
	args := m.Called(documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jobs.Task), args.Error(1)
}

func (m *MockDispatcher) Get(documentID string) (*jobs.Task, bool) {
	args := m.Called(documentID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*jobs.Task), args.Bool(1)
}

// sequentialUUIDGen returns prefix-1, prefix-2, ...
type sequentialUUIDGen struct {
	prefix string
	n      int
}

func (g *sequentialUUIDGen) NewString() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

type staticUUIDGen struct {
	id string
}

func (g *staticUUIDGen) NewString() string {
	return g.id
}

var fixedNow = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}
