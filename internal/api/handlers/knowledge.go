package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/askdesk/internal/api"
	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/pagination"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

type KnowledgeService interface {
	Create(ctx context.Context, input service.CreateKnowledgeInput) (*domain.KnowledgeItem, error)
	GetByID(ctx context.Context, id string, requester domain.Requester) (*domain.KnowledgeItem, error)
	Update(ctx context.Context, input service.UpdateKnowledgeInput) (*domain.KnowledgeItem, error)
	Retire(ctx context.Context, knowledgeID string) (*domain.KnowledgeItem, error)
	List(ctx context.Context, input service.ListKnowledgeInput) (*service.ListKnowledgeOutput, error)
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type KnowledgeRequest struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Category   string   `json:"category"`
	AccessTier string   `json:"access_tier"`
	Keywords   []string `json:"keywords"`
	Priority   int      `json:"priority"`
	Source     string   `json:"source"`
}

type KnowledgeResponse struct {
	ID         string   `json:"id"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Category   string   `json:"category"`
	AccessTier string   `json:"access_tier"`
	Keywords   []string `json:"keywords"`
	Priority   int      `json:"priority"`
	Active     bool     `json:"active"`
	Source     string   `json:"source,omitempty"`
	CreatedBy  string   `json:"created_by,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

func knowledgeToResponse(k *domain.KnowledgeItem) *KnowledgeResponse {
	return &KnowledgeResponse{
		ID:         k.ID,
		Question:   k.Question,
		Answer:     k.Answer,
		Category:   k.Category,
		AccessTier: string(k.AccessTier),
		Keywords:   lo.Ternary(k.Keywords == nil, []string{}, k.Keywords),
		Priority:   k.Priority,
		Active:     k.Active,
		Source:     k.Source,
		CreatedBy:  k.CreatedBy,
		CreatedAt:  formatTime(k.CreatedAt),
		UpdatedAt:  formatTime(k.UpdatedAt),
	}
}

func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	var body KnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.Create(r.Context(), service.CreateKnowledgeInput{
		Question:   body.Question,
		Answer:     body.Answer,
		Category:   body.Category,
		AccessTier: body.AccessTier,
		Keywords:   body.Keywords,
		Priority:   body.Priority,
		Source:     body.Source,
		CreatedBy:  req.ID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, knowledgeToResponse(item))
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	item, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, knowledgeToResponse(item))
}

func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body KnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.Update(r.Context(), service.UpdateKnowledgeInput{
		KnowledgeID: chi.URLParam(r, "id"),
		Question:    body.Question,
		Answer:      body.Answer,
		Category:    body.Category,
		AccessTier:  body.AccessTier,
		Keywords:    body.Keywords,
		Priority:    body.Priority,
		Source:      body.Source,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, knowledgeToResponse(item))
}

func (h *KnowledgeHandler) Retire(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Retire(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, knowledgeToResponse(item))
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	output, err := h.svc.List(r.Context(), service.ListKnowledgeInput{
		Requester: req,
		Cursor:    r.URL.Query().Get("cursor"),
		Limit:     parseLimit(r),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, pagination.PageResult[*KnowledgeResponse]{
		Items:   lo.Map(output.Items, func(k *domain.KnowledgeItem, _ int) *KnowledgeResponse { return knowledgeToResponse(k) }),
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}
