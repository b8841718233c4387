package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/askdesk/internal/api"
	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/samber/lo"
)

type QueryService interface {
	Resolve(ctx context.Context, input service.QueryInput) (*domain.Answer, error)
	History(ctx context.Context, requesterID string, limit int) ([]*domain.QueryRecord, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type AskRequest struct {
	Question string `json:"question"`
}

type CitationResponse struct {
	DocumentID     string  `json:"document_id"`
	DocumentName   string  `json:"document_name"`
	RelevanceScore float64 `json:"relevance_score"`
	CitedText      string  `json:"cited_text"`
}

type AnswerResponse struct {
	QueryID            string             `json:"query_id"`
	Text               string             `json:"text"`
	Source             string             `json:"source"`
	Confidence         float64            `json:"confidence"`
	FromStructuredData bool               `json:"from_structured_data"`
	Citations          []CitationResponse `json:"citations"`
}

type HistoryEntryResponse struct {
	QueryID        string          `json:"query_id"`
	Question       string          `json:"question"`
	AskedAt        string          `json:"asked_at"`
	Answered       bool            `json:"answered"`
	AnswerSource   string          `json:"answer_source,omitempty"`
	ResponseTimeMs int64           `json:"response_time_ms"`
	Answer         *AnswerResponse `json:"answer,omitempty"`
}

func answerToResponse(a *domain.Answer) *AnswerResponse {
	return &AnswerResponse{
		QueryID:            a.QueryID,
		Text:               a.Text,
		Source:             a.Source,
		Confidence:         a.Confidence,
		FromStructuredData: a.FromStructuredData,
		Citations: lo.Map(a.Citations, func(c domain.Citation, _ int) CitationResponse {
			return CitationResponse{
				DocumentID:     c.DocumentID,
				DocumentName:   c.DocumentName,
				RelevanceScore: c.RelevanceScore,
				CitedText:      c.CitedText,
			}
		}),
	}
}

func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	var body AskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.svc.Resolve(r.Context(), service.QueryInput{
		Text:        body.Question,
		RequesterID: req.ID,
		Role:        req.Role,
		Department:  req.Department,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answerToResponse(answer))
}

func (h *QueryHandler) History(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	records, err := h.svc.History(r.Context(), req.ID, parseLimit(r))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, lo.Map(records, func(rec *domain.QueryRecord, _ int) *HistoryEntryResponse {
		entry := &HistoryEntryResponse{
			QueryID:        rec.Query.ID,
			Question:       rec.Query.Text,
			AskedAt:        formatTime(rec.Query.CreatedAt),
			Answered:       rec.Query.Answered,
			AnswerSource:   string(rec.Query.AnswerSource),
			ResponseTimeMs: rec.Query.ResponseTimeMs,
		}
		if rec.Answer != nil {
			entry.Answer = answerToResponse(rec.Answer)
		}
		return entry
	}))
}
