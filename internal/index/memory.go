package index

import (
	"context"
	"sync"

	"github.com/cloo-solutions/askdesk/internal/domain"
)

// MemoryIndex keeps document chunks in process and scores them by brute force.
// It serves the CLI and tests; the server uses the pgvector-backed index.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string][]domain.DocumentChunk
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		chunks: make(map[string][]domain.DocumentChunk),
	}
}

// ReplaceChunks swaps all chunks of a document in one step.
func (m *MemoryIndex) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := make([]domain.DocumentChunk, len(chunks))
	for i, c := range chunks {
		c.DocumentID = documentID
		c.Embedding = append([]float32(nil), c.Embedding...)
		stored[i] = c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(stored) == 0 {
		delete(m.chunks, documentID)
		return nil
	}
	m.chunks[documentID] = stored
	return nil
}

// DeleteChunks removes every chunk of a document.
func (m *MemoryIndex) DeleteChunks(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks, documentID)
	return nil
}

// ChunkCount returns how many chunks are stored for a document.
func (m *MemoryIndex) ChunkCount(documentID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks[documentID])
}

// Search scores every chunk of the candidate documents against vector and
// ranks documents by their best chunk.
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, candidates []domain.SearchCandidate, opts domain.SearchOptions) ([]domain.ScoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	best := make(map[string]domain.ScoredDocument, len(candidates))
	for _, c := range candidates {
		for _, chunk := range m.chunks[c.DocumentID] {
			score := CosineSimilarity(vector, chunk.Embedding)
			current, ok := best[c.DocumentID]
			if ok && score <= current.Score {
				continue
			}
			best[c.DocumentID] = domain.ScoredDocument{
				DocumentID: c.DocumentID,
				ChunkID:    chunk.ID,
				ChunkIndex: chunk.ChunkIndex,
				ChunkText:  chunk.Text,
				Score:      score,
			}
		}
	}
	m.mu.RUnlock()

	return RankDocuments(best, candidates, opts), nil
}
