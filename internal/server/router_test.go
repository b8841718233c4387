package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/askdesk/internal/api/handlers"
	"github.com/cloo-solutions/askdesk/internal/api/middleware"
	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/metrics"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockKnowledgeService struct {
	mock.Mock
}

func (m *MockKnowledgeService) Create(ctx context.Context, input service.CreateKnowledgeInput) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockKnowledgeService) GetByID(ctx context.Context, id string, requester domain.Requester) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockKnowledgeService) Update(ctx context.Context, input service.UpdateKnowledgeInput) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockKnowledgeService) Retire(ctx context.Context, knowledgeID string) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, knowledgeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockKnowledgeService) List(ctx context.Context, input service.ListKnowledgeInput) (*service.ListKnowledgeOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListKnowledgeOutput), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, input service.UploadInput) (*service.UploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockDocumentService) GetStatus(ctx context.Context, id string, requester domain.Requester) (*service.DocumentStatusView, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentStatusView), args.Error(1)
}

func (m *MockDocumentService) Archive(ctx context.Context, id string, requester domain.Requester) (*domain.Document, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Deactivate(ctx context.Context, id string, requester domain.Requester) error {
	return m.Called(ctx, id, requester).Error(0)
}

func (m *MockDocumentService) Reingest(ctx context.Context, id string, requester domain.Requester) (*service.UploadResult, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListDocumentsOutput), args.Error(1)
}

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Resolve(ctx context.Context, input service.QueryInput) (*domain.Answer, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Answer), args.Error(1)
}

func (m *MockQueryService) History(ctx context.Context, requesterID string, limit int) ([]*domain.QueryRecord, error) {
	args := m.Called(ctx, requesterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QueryRecord), args.Error(1)
}

type routerFixture struct {
	router    http.Handler
	knowledge *MockKnowledgeService
	documents *MockDocumentService
	queries   *MockQueryService
	metrics   *metrics.Metrics
}

func setupRouter() *routerFixture {
	f := &routerFixture{
		knowledge: new(MockKnowledgeService),
		documents: new(MockDocumentService),
		queries:   new(MockQueryService),
		metrics:   metrics.New(),
	}
	f.router = NewRouter(RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(f.knowledge),
		DocumentHandler:  handlers.NewDocumentHandler(f.documents),
		QueryHandler:     handlers.NewQueryHandler(f.queries),
		Observer:         f.metrics,
		Registry:         f.metrics.Registry(),
	})
	return f
}

func asRequester(req *http.Request, id, role, department string) *http.Request {
	req.Header.Set(middleware.HeaderRequesterID, id)
	req.Header.Set(middleware.HeaderRequesterRole, role)
	req.Header.Set(middleware.HeaderRequesterDepartment, department)
	return req
}

func TestRouter_HealthEndpoint(t *testing.T) {
	f := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_RequesterRoutes_RequireIdentity(t *testing.T) {
	f := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/documents"},
		{http.MethodGet, "/documents"},
		{http.MethodGet, "/documents/123/status"},
		{http.MethodPost, "/documents/123/reingest"},
		{http.MethodPost, "/documents/123/archive"},
		{http.MethodDelete, "/documents/123"},
		{http.MethodPost, "/queries"},
		{http.MethodGet, "/queries/history"},
		{http.MethodGet, "/knowledge"},
		{http.MethodGet, "/knowledge/123"},
		{http.MethodPost, "/knowledge"},
		{http.MethodPut, "/knowledge/123"},
		{http.MethodDelete, "/knowledge/123"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			f.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_KnowledgeWrites_RequireAdmin(t *testing.T) {
	f := setupRouter()

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		path := "/knowledge"
		if method != http.MethodPost {
			path = "/knowledge/k-1"
		}
		req := asRequester(httptest.NewRequest(method, path, bytes.NewReader([]byte(`{}`))), "emp-1", "employee", "Sales")
		w := httptest.NewRecorder()

		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code, method)
	}
	f.knowledge.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRouter_AskAndMetrics(t *testing.T) {
	f := setupRouter()

	f.queries.On("Resolve", mock.Anything, service.QueryInput{
		Text: "Who approves travel?", RequesterID: "emp-1", Role: "employee", Department: "Sales",
	}).Return(&domain.Answer{
		QueryID:    "q-1",
		Text:       domain.NoResultAnswerText,
		Source:     domain.SystemSourceName,
		Confidence: domain.NoResultConfidence,
		CreatedAt:  time.Now(),
	}, nil)

	req := asRequester(httptest.NewRequest(http.MethodPost, "/queries",
		bytes.NewReader([]byte(`{"question":"Who approves travel?"}`))), "emp-1", "employee", "Sales")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	f.queries.AssertExpectations(t)

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `askdesk_api_response_time_seconds_count{method="POST"`)
}
