package domain

import (
	"strings"
	"time"
)

// AnswerSource records which path produced an answer.
type AnswerSource string

const (
	AnswerSourceStructured AnswerSource = "structured"
	AnswerSourceAI         AnswerSource = "ai"
	AnswerSourceSystem     AnswerSource = "system"
)

// Confidence values and fixed texts for answers not produced by the language model.
const (
	StructuredConfidence = 0.95
	NoResultConfidence   = 0.0
	FailureConfidence    = 0.0

	NoResultAnswerText = "I couldn't find relevant information in the available documents to answer your question. " +
		"Please try rephrasing it or contact the relevant department directly."
	FailureAnswerText = "I'm sorry, something went wrong while processing your question. Please try again later."

	SystemSourceName = "System"
	AISourceName     = "AI Assistant"
)

// Requester identifies who asked, for access filtering and audit.
type Requester struct {
	ID         string
	Role       string
	Department string
}

// Tiers returns the access tiers visible to the requester.
func (r Requester) Tiers() []AccessTier {
	return AccessibleTiers(r.Role, r.Department)
}

// Query is a recorded question.
type Query struct {
	ID                  string
	Text                string
	RequesterID         string
	RequesterRole       string
	RequesterDepartment string
	Answered            bool
	Confidence          float64
	AnswerSource        AnswerSource
	ResponseTimeMs      int64
	CreatedAt           time.Time
}

// NewQuery creates an unanswered Query for the requester.
func NewQuery(id, text string, requester Requester, createdAt time.Time) *Query {
	return &Query{
		ID:                  id,
		Text:                strings.TrimSpace(text),
		RequesterID:         requester.ID,
		RequesterRole:       requester.Role,
		RequesterDepartment: requester.Department,
		CreatedAt:           createdAt,
	}
}

// Complete marks the query answered.
func (q *Query) Complete(source AnswerSource, confidence float64, elapsed time.Duration) {
	q.Answered = true
	q.AnswerSource = source
	q.Confidence = confidence
	q.ResponseTimeMs = elapsed.Milliseconds()
}

// Citation links an AI answer to one supporting document.
type Citation struct {
	DocumentID     string
	DocumentName   string
	ChunkID        string
	RelevanceScore float64
	CitedText      string
}

// Answer is the response to exactly one Query.
type Answer struct {
	ID                 string
	QueryID            string
	Text               string
	Source             string
	Confidence         float64
	FromStructuredData bool
	KnowledgeItemID    string
	Citations          []Citation
	CreatedAt          time.Time
}

// QueryRecord pairs a stored query with its answer for history listings.
type QueryRecord struct {
	Query  *Query
	Answer *Answer
}
