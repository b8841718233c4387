package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/cloo-solutions/askdesk/internal/api"
	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/pagination"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

// multipartMemory is how much of an upload is buffered in memory before spilling to disk.
const multipartMemory = 8 << 20

type DocumentService interface {
	Upload(ctx context.Context, input service.UploadInput) (*service.UploadResult, error)
	GetStatus(ctx context.Context, id string, requester domain.Requester) (*service.DocumentStatusView, error)
	Archive(ctx context.Context, id string, requester domain.Requester) (*domain.Document, error)
	Deactivate(ctx context.Context, id string, requester domain.Requester) error
	Reingest(ctx context.Context, id string, requester domain.Requester) (*service.UploadResult, error)
	List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error)
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentResponse struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"display_name"`
	Category     string   `json:"category"`
	AccessTier   string   `json:"access_tier"`
	FileType     string   `json:"file_type"`
	SizeBytes    int64    `json:"size_bytes"`
	Status       string   `json:"status"`
	Progress     int      `json:"progress"`
	Summary      string   `json:"summary,omitempty"`
	Keywords     []string `json:"keywords"`
	ChunkCount   int      `json:"chunk_count"`
	ErrorMessage string   `json:"error_message,omitempty"`
	UploadedBy   string   `json:"uploaded_by"`
	CreatedAt    string   `json:"created_at"`
	IndexedAt    string   `json:"indexed_at,omitempty"`
}

type UploadResponse struct {
	Document *DocumentResponse `json:"document"`
	// Queued is false when ingestion could not be dispatched; the sweeper retries it.
	Queued bool `json:"queued"`
}

type DocumentStatusResponse struct {
	DocumentID   string `json:"document_id"`
	DisplayName  string `json:"display_name"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	ChunkCount   int    `json:"chunk_count"`
	ErrorMessage string `json:"error_message,omitempty"`
	ProcessedAt  string `json:"processed_at,omitempty"`
	IndexedAt    string `json:"indexed_at,omitempty"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:           d.ID,
		DisplayName:  d.DisplayName,
		Category:     d.Category,
		AccessTier:   string(d.AccessTier),
		FileType:     d.FileType,
		SizeBytes:    d.SizeBytes,
		Status:       string(d.Status),
		Progress:     d.Status.Progress(),
		Summary:      d.Summary,
		Keywords:     lo.Ternary(d.Keywords == nil, []string{}, d.Keywords),
		ChunkCount:   d.ChunkCount,
		ErrorMessage: d.ErrorMessage,
		UploadedBy:   d.UploadedBy,
		CreatedAt:    formatTime(d.CreatedAt),
		IndexedAt:    formatTimePtr(d.IndexedAt),
	}
}

func uploadToResponse(result *service.UploadResult) *UploadResponse {
	return &UploadResponse{
		Document: documentToResponse(result.Document),
		Queued:   result.Task != nil,
	}
}

// Upload accepts a multipart form with a "file" part and optional
// display_name, category and access_tier fields.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			api.HandleError(w, err)
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.Upload(r.Context(), service.UploadInput{
		Requester:   req,
		FileName:    header.Filename,
		DisplayName: r.FormValue("display_name"),
		Category:    r.FormValue("category"),
		AccessTier:  r.FormValue("access_tier"),
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, uploadToResponse(result))
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	view, err := h.svc.GetStatus(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &DocumentStatusResponse{
		DocumentID:   view.DocumentID,
		DisplayName:  view.DisplayName,
		Status:       string(view.Status),
		Progress:     view.Progress,
		ChunkCount:   view.ChunkCount,
		ErrorMessage: view.ErrorMessage,
		ProcessedAt:  formatTimePtr(view.ProcessedAt),
		IndexedAt:    formatTimePtr(view.IndexedAt),
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	output, err := h.svc.List(r.Context(), service.ListDocumentsInput{
		Requester: req,
		Cursor:    r.URL.Query().Get("cursor"),
		Limit:     parseLimit(r),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, pagination.PageResult[*DocumentResponse]{
		Items:   lo.Map(output.Items, func(d *domain.Document, _ int) *DocumentResponse { return documentToResponse(d) }),
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *DocumentHandler) Reingest(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Reingest(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, uploadToResponse(result))
}

func (h *DocumentHandler) Archive(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	doc, err := h.svc.Archive(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	if err := h.svc.Deactivate(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
