package domain

import "time"

// DocumentChunk is one embedded window of a document's extracted text.
type DocumentChunk struct {
	ID             string
	DocumentID     string
	ChunkIndex     int
	StartOffset    int
	EndOffset      int
	Text           string
	Embedding      []float32
	EmbeddingModel string
	CreatedAt      time.Time
}

// ScoredDocument is a document ranked by its best-matching chunk.
type ScoredDocument struct {
	DocumentID string
	ChunkID    string
	ChunkIndex int
	ChunkText  string
	Score      float64
}

// SearchCandidate is a document eligible for similarity ranking.
type SearchCandidate struct {
	DocumentID string
	AccessTier AccessTier
	Status     DocumentStatus
	IndexedAt  time.Time
}

// SearchOptions bounds a similarity ranking.
type SearchOptions struct {
	// Threshold is exclusive: documents scoring at or below it are dropped.
	Threshold float64
	Limit     int
}
