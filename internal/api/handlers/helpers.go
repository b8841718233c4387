package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/askdesk/internal/api"
	"github.com/cloo-solutions/askdesk/internal/api/middleware"
	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/pagination"
)

const defaultListLimit = pagination.DefaultLimit

func requester(w http.ResponseWriter, r *http.Request) (domain.Requester, bool) {
	req, ok := middleware.GetRequester(r.Context())
	if !ok {
		api.HandleError(w, domain.ErrMissingRequester)
		return domain.Requester{}, false
	}
	return req, true
}

func parseLimit(r *http.Request) int {
	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
