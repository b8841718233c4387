package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentStatus is the ingestion state of an uploaded document.
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusIndexed    DocumentStatus = "indexed"
	DocumentStatusFailed     DocumentStatus = "failed"
	DocumentStatusArchived   DocumentStatus = "archived"
)

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusUploaded:   {DocumentStatusProcessing},
	DocumentStatusProcessing: {DocumentStatusProcessed, DocumentStatusFailed},
	DocumentStatusProcessed:  {DocumentStatusIndexed, DocumentStatusFailed},
	DocumentStatusIndexed:    {DocumentStatusArchived},
}

var documentProgress = map[DocumentStatus]int{
	DocumentStatusUploaded:   10,
	DocumentStatusProcessing: 50,
	DocumentStatusProcessed:  80,
	DocumentStatusIndexed:    100,
	DocumentStatusFailed:     0,
	DocumentStatusArchived:   100,
}

// Progress returns the completion percentage reported for a status.
func (s DocumentStatus) Progress() int {
	return documentProgress[s]
}

// CanTransition reports whether the state machine allows moving from s to next.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	for _, allowed := range documentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValidDocumentStatus checks if a DocumentStatus is valid
func IsValidDocumentStatus(s DocumentStatus) bool {
	_, ok := documentProgress[s]
	return ok
}

// Document is an uploaded file and its ingestion state.
type Document struct {
	ID            string
	DisplayName   string
	Category      string
	AccessTier    AccessTier
	FileType      string
	SizeBytes     int64
	StorageKey    string
	UploadedBy    string
	Status        DocumentStatus
	ExtractedText string
	Summary       string
	Keywords      []string
	ChunkCount    int
	ErrorMessage  string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ProcessedAt   *time.Time
	IndexedAt     *time.Time
}

// NewDocument creates a Document in the Uploaded state.
func NewDocument(
	id, displayName, category string,
	tier AccessTier,
	fileType string,
	sizeBytes int64,
	storageKey, uploadedBy string,
	createdAt time.Time,
) *Document {
	return &Document{
		ID:          id,
		DisplayName: displayName,
		Category:    category,
		AccessTier:  tier,
		FileType:    NormalizeFileType(fileType),
		SizeBytes:   sizeBytes,
		StorageKey:  storageKey,
		UploadedBy:  uploadedBy,
		Status:      DocumentStatusUploaded,
		IsActive:    true,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// TransitionTo moves the document to next, stamping the matching timestamps.
func (d *Document) TransitionTo(next DocumentStatus, at time.Time) error {
	if !d.Status.CanTransition(next) {
		return NewDomainErrorWithCause(
			ErrCodeInvalidOperation,
			ErrInvalidStatusTransition.Message,
			fmt.Errorf("%s -> %s", d.Status, next),
		)
	}

	d.Status = next
	d.UpdatedAt = at
	switch next {
	case DocumentStatusProcessed:
		d.ProcessedAt = &at
	case DocumentStatusIndexed:
		d.IndexedAt = &at
		d.ErrorMessage = ""
	}
	return nil
}

// Fail moves the document to Failed and records why.
func (d *Document) Fail(reason string, at time.Time) error {
	if err := d.TransitionTo(DocumentStatusFailed, at); err != nil {
		return err
	}
	d.ErrorMessage = reason
	return nil
}

// Restart resets a finished document to Uploaded so a fresh ingestion run can start.
// It sits outside the state machine; an aborted run can never resume where it stopped.
func (d *Document) Restart(at time.Time) error {
	if !d.IsActive {
		return ErrDocumentInactive
	}
	if d.Status != DocumentStatusFailed && d.Status != DocumentStatusIndexed {
		return NewDomainErrorWithCause(
			ErrCodeInvalidOperation,
			ErrDocumentNotRestartable.Message,
			fmt.Errorf("status %s", d.Status),
		)
	}

	d.Status = DocumentStatusUploaded
	d.ExtractedText = ""
	d.Summary = ""
	d.Keywords = nil
	d.ChunkCount = 0
	d.ErrorMessage = ""
	d.ProcessedAt = nil
	d.IndexedAt = nil
	d.UpdatedAt = at
	return nil
}

// Searchable reports whether the document may contribute to query answers.
func (d *Document) Searchable() bool {
	return d.IsActive && d.Status == DocumentStatusIndexed
}

// NormalizeFileType lowercases a file type and strips any leading dot.
func NormalizeFileType(fileType string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fileType)), ".")
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "document ID is required", ErrMissingRequiredField)
	}

	if strings.TrimSpace(d.DisplayName) == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "document DisplayName is required", ErrMissingRequiredField)
	}

	if d.StorageKey == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "document StorageKey is required", ErrMissingRequiredField)
	}

	if !IsValidAccessTier(d.AccessTier) {
		return NewDomainErrorWithCause(ErrCodeValidation, "document AccessTier is invalid", fmt.Errorf("%w: %s", ErrInvalidAccessTier, d.AccessTier))
	}

	if !IsValidDocumentStatus(d.Status) {
		return NewDomainErrorWithCause(ErrCodeValidation, "document Status is invalid", fmt.Errorf("%w: %s", ErrInvalidDocumentState, d.Status))
	}

	return nil
}

// IngestionResult is the outcome of one ingestion run.
type IngestionResult struct {
	DocumentID    string
	Status        DocumentStatus
	ChunkCount    int
	SkippedChunks int
	Error         string
}
