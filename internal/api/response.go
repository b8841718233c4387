// Package api holds the JSON envelope and error mapping shared by all handlers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/askdesk/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes data with the given status. A nil payload writes headers only.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

var codeStatus = map[string]int{
	domain.ErrCodeValidation:       http.StatusBadRequest,
	domain.ErrCodeNotFound:         http.StatusNotFound,
	domain.ErrCodeAlreadyExists:    http.StatusConflict,
	domain.ErrCodeUnauthorized:     http.StatusUnauthorized,
	domain.ErrCodeForbidden:        http.StatusForbidden,
	domain.ErrCodeInvalidOperation: http.StatusConflict,
}

// DomainErrorToHTTP maps an error to its response status. Oversized bodies
// map to 413 whether the handler or the body limit caught them; anything
// that is not a known DomainError is a 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || errors.Is(err, domain.ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}
	if status, ok := codeStatus[domainErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes the error envelope for err. Server-side failures are
// reported by status text only so causes never leak to callers.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	resp := ErrorResponse{Error: err.Error()}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		resp = ErrorResponse{Error: domain.ErrFileTooLarge.Message, Code: domain.ErrCodeValidation}
	}
	if status >= http.StatusInternalServerError {
		resp = ErrorResponse{Error: http.StatusText(status)}
	}

	JSON(w, status, resp)
}
