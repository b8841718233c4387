package index

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultOpts = domain.SearchOptions{Threshold: 0.7, Limit: 5}

func candidate(id string, indexedAt time.Time) domain.SearchCandidate {
	return domain.SearchCandidate{
		DocumentID: id,
		AccessTier: domain.AccessTierGeneral,
		Status:     domain.DocumentStatusIndexed,
		IndexedAt:  indexedAt,
	}
}

func chunk(id string, index int, vec ...float32) domain.DocumentChunk {
	return domain.DocumentChunk{ID: id, ChunkIndex: index, Text: "text " + id, Embedding: vec}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"dimension mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, []float32{1}, 0},
		{"both empty", nil, nil, 0},
		{"zero norm", []float32{0, 0}, []float32{1, 1}, 0},
		{"nan", []float32{float32(math.NaN()), 1}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_Bounds(t *testing.T) {
	vectors := [][]float32{{0.3, -0.2, 0.9}, {5, 5, 5}, {-1, 0.001, 2}, {1e-20, 1e-20, 1e-20}}
	for _, a := range vectors {
		for _, b := range vectors {
			s := CosineSimilarity(a, b)
			assert.GreaterOrEqual(t, s, -1.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestRankDocuments_ThresholdIsExclusive(t *testing.T) {
	now := time.Now()
	best := map[string]domain.ScoredDocument{
		"at":    {DocumentID: "at", Score: 0.7},
		"above": {DocumentID: "above", Score: 0.7000001},
	}

	got := RankDocuments(best, []domain.SearchCandidate{candidate("at", now), candidate("above", now)}, defaultOpts)
	require.Len(t, got, 1)
	assert.Equal(t, "above", got[0].DocumentID)
}

func TestRankDocuments_TieBrokenByEarliestIndexedAt(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	best := map[string]domain.ScoredDocument{
		"new": {DocumentID: "new", Score: 0.9},
		"old": {DocumentID: "old", Score: 0.9},
		"top": {DocumentID: "top", Score: 0.95},
	}
	candidates := []domain.SearchCandidate{
		candidate("new", base.Add(time.Hour)),
		candidate("old", base),
		candidate("top", base.Add(2*time.Hour)),
	}

	got := RankDocuments(best, candidates, defaultOpts)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"top", "old", "new"}, []string{got[0].DocumentID, got[1].DocumentID, got[2].DocumentID})
}

func TestRankDocuments_LimitAndStatus(t *testing.T) {
	now := time.Now()
	best := map[string]domain.ScoredDocument{}
	var candidates []domain.SearchCandidate
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		best[id] = domain.ScoredDocument{DocumentID: id, Score: 0.8 + float64(i)*0.01}
		candidates = append(candidates, candidate(id, now))
	}
	candidates[6].Status = domain.DocumentStatusProcessed

	got := RankDocuments(best, candidates, defaultOpts)
	require.Len(t, got, 5)
	assert.Equal(t, "f", got[0].DocumentID)
	assert.Equal(t, "b", got[4].DocumentID)
}

func TestMemoryIndex_BestChunkPerDocument(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	now := time.Now()

	require.NoError(t, idx.ReplaceChunks(ctx, "doc1", []domain.DocumentChunk{
		chunk("c1", 0, 0, 1),
		chunk("c2", 1, 1, 0.1),
	}))
	require.NoError(t, idx.ReplaceChunks(ctx, "doc2", []domain.DocumentChunk{
		chunk("c3", 0, 1, 1),
	}))

	got, err := idx.Search(ctx, []float32{1, 0}, []domain.SearchCandidate{candidate("doc1", now), candidate("doc2", now)}, defaultOpts)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "doc1", got[0].DocumentID)
	assert.Equal(t, "c2", got[0].ChunkID)
	assert.Equal(t, 1, got[0].ChunkIndex)
	assert.Equal(t, "doc2", got[1].DocumentID)
	assert.InDelta(t, 1/math.Sqrt2, got[1].Score, 1e-6)
}

func TestMemoryIndex_OnlyCandidatesParticipate(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.ReplaceChunks(ctx, "it-doc", []domain.DocumentChunk{chunk("c1", 0, 1, 0)}))

	got, err := idx.Search(ctx, []float32{1, 0}, nil, defaultOpts)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryIndex_DimensionMismatchScoresZero(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.ReplaceChunks(ctx, "doc1", []domain.DocumentChunk{chunk("c1", 0, 1, 0, 0)}))

	got, err := idx.Search(ctx, []float32{1, 0}, []domain.SearchCandidate{candidate("doc1", time.Now())}, domain.SearchOptions{Threshold: -0.5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].Score)
}

func TestMemoryIndex_ReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.ReplaceChunks(ctx, "doc1", []domain.DocumentChunk{chunk("c1", 0, 1), chunk("c2", 1, 1)}))
	assert.Equal(t, 2, idx.ChunkCount("doc1"))

	require.NoError(t, idx.ReplaceChunks(ctx, "doc1", []domain.DocumentChunk{chunk("c3", 0, 1)}))
	assert.Equal(t, 1, idx.ChunkCount("doc1"))

	require.NoError(t, idx.DeleteChunks(ctx, "doc1"))
	assert.Equal(t, 0, idx.ChunkCount("doc1"))
}

func TestMemoryIndex_ConcurrentWritersDoNotInterfere(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			chunks := make([]domain.DocumentChunk, n+1)
			for j := range chunks {
				chunks[j] = chunk(id, j, 1, 0)
			}
			assert.NoError(t, idx.ReplaceChunks(ctx, id, chunks))
			_, err := idx.Search(ctx, []float32{1, 0}, []domain.SearchCandidate{candidate(id, time.Now())}, defaultOpts)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		assert.Equal(t, i+1, idx.ChunkCount(string(rune('a'+i))))
	}
}
