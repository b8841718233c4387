package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/askdesk/internal/api/middleware"
	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/stretchr/testify/mock"
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
	args := m.Called(ctx, id, requester)
	return args.Error(0)
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

var (
	salesEmployee = domain.Requester{ID: "emp-1", Role: "employee", Department: "Sales"}
	itAdmin       = domain.Requester{ID: "adm-1", Role: "admin", Department: "IT"}
)

func withRequester(req *http.Request, r domain.Requester) *http.Request {
	req.Header.Set(middleware.HeaderRequesterID, r.ID)
	req.Header.Set(middleware.HeaderRequesterRole, r.Role)
	req.Header.Set(middleware.HeaderRequesterDepartment, r.Department)
	return req
}
