package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError with the same code and message, so wrapped
// sentinels still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query text is required")
	ErrUnsupportedFileType  = NewDomainError(ErrCodeValidation, "unsupported file type")
	ErrFileTooLarge         = NewDomainError(ErrCodeValidation, "file exceeds maximum upload size")
	ErrEmptyFile            = NewDomainError(ErrCodeValidation, "file is empty")
	ErrInvalidAccessTier    = NewDomainError(ErrCodeValidation, "invalid access tier")
	ErrInvalidDocumentState = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidPriority      = NewDomainError(ErrCodeValidation, "priority must not be negative")
)

// Not found errors
var (
	ErrKnowledgeNotFound = NewDomainError(ErrCodeNotFound, "knowledge item not found")
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found")
	ErrQueryNotFound     = NewDomainError(ErrCodeNotFound, "query not found")
)

// Already exists errors
var (
	ErrKnowledgeAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "knowledge item already exists")
	ErrIngestionInProgress    = NewDomainError(ErrCodeAlreadyExists, "ingestion already running for document")
)

// Authorization errors
var (
	ErrMissingRequester = NewDomainError(ErrCodeUnauthorized, "requester identity is required")
	ErrAccessDenied     = NewDomainError(ErrCodeForbidden, "access tier not permitted for requester")
)

// Operation errors
var (
	ErrInvalidStatusTransition = NewDomainError(ErrCodeInvalidOperation, "invalid document status transition")
	ErrDocumentNotRestartable  = NewDomainError(ErrCodeInvalidOperation, "document cannot be re-ingested in its current status")
	ErrDocumentInactive        = NewDomainError(ErrCodeInvalidOperation, "document has been deactivated")
)

// Storage errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
