package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultKnowledgeSource is reported when a curated item carries no provenance.
const DefaultKnowledgeSource = "Knowledge Base"

// KnowledgeItem is a curated question/answer pair.
type KnowledgeItem struct {
	ID         string
	Question   string
	Answer     string
	Category   string
	AccessTier AccessTier
	Keywords   []string
	Priority   int
	Active     bool
	Source     string // Optional provenance shown with the answer
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewKnowledgeItem creates a new active KnowledgeItem instance
func NewKnowledgeItem(
	id, question, answer, category string,
	tier AccessTier,
	keywords []string,
	priority int,
	createdAt time.Time,
) *KnowledgeItem {
	return &KnowledgeItem{
		ID:         id,
		Question:   question,
		Answer:     answer,
		Category:   category,
		AccessTier: tier,
		Keywords:   keywords,
		Priority:   priority,
		Active:     true,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

// Provenance returns the source string to cite for this item.
func (k *KnowledgeItem) Provenance() string {
	if strings.TrimSpace(k.Source) == "" {
		return DefaultKnowledgeSource
	}
	return k.Source
}

// Retire soft-deletes the item. Retired items never match queries.
func (k *KnowledgeItem) Retire(at time.Time) {
	k.Active = false
	k.UpdatedAt = at
}

// ValidateKnowledgeItem validates a KnowledgeItem instance
func ValidateKnowledgeItem(k *KnowledgeItem) error {
	if k == nil {
		return fmt.Errorf("knowledge item cannot be nil")
	}

	if k.ID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "knowledge item ID is required", ErrMissingRequiredField)
	}

	if strings.TrimSpace(k.Question) == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "knowledge item Question is required", ErrMissingRequiredField)
	}

	if strings.TrimSpace(k.Answer) == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "knowledge item Answer is required", ErrMissingRequiredField)
	}

	if !IsValidAccessTier(k.AccessTier) {
		return NewDomainErrorWithCause(ErrCodeValidation, "knowledge item AccessTier is invalid", fmt.Errorf("%w: %s", ErrInvalidAccessTier, k.AccessTier))
	}

	if k.Priority < 0 {
		return ErrInvalidPriority
	}

	return nil
}
