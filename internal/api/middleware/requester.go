package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/askdesk/internal/api"
	"github.com/cloo-solutions/askdesk/internal/domain"
)

type contextKey string

const RequesterKey contextKey = "requester"

// Headers set by the authenticating gateway in front of the service.
const (
	HeaderRequesterID         = "X-Requester-ID"
	HeaderRequesterRole       = "X-Requester-Role"
	HeaderRequesterDepartment = "X-Requester-Department"
)

// Requester reads the gateway identity headers into the request context.
// Requests without an ID are rejected.
func Requester(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequesterID))
		if id == "" {
			api.HandleError(w, domain.ErrMissingRequester)
			return
		}

		role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderRequesterRole)))
		if role == "" {
			role = domain.RoleEmployee
		}

		requester := domain.Requester{
			ID:         id,
			Role:       role,
			Department: strings.TrimSpace(r.Header.Get(HeaderRequesterDepartment)),
		}
		ctx := context.WithValue(r.Context(), RequesterKey, requester)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows only requesters with the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requester, ok := GetRequester(r.Context())
		if !ok {
			api.HandleError(w, domain.ErrMissingRequester)
			return
		}
		if requester.Role != domain.RoleAdmin {
			api.HandleError(w, domain.ErrAccessDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetRequester returns the requester stored by the Requester middleware.
func GetRequester(ctx context.Context) (domain.Requester, bool) {
	requester, ok := ctx.Value(RequesterKey).(domain.Requester)
	return requester, ok
}
