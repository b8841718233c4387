package index

import (
	"sort"

	"github.com/cloo-solutions/askdesk/internal/domain"
)

// RankDocuments orders the best-chunk score of each candidate document.
//
// Only candidates with status Indexed take part. Scores at or below
// opts.Threshold are dropped. The rest are sorted by descending score, then
// by earliest IndexedAt, then by candidate order, and cut to opts.Limit
// (no cap when Limit <= 0).
func RankDocuments(best map[string]domain.ScoredDocument, candidates []domain.SearchCandidate, opts domain.SearchOptions) []domain.ScoredDocument {
	type ranked struct {
		doc       domain.ScoredDocument
		candidate domain.SearchCandidate
		order     int
	}

	seen := make(map[string]bool, len(candidates))
	pool := make([]ranked, 0, len(best))
	for i, c := range candidates {
		if seen[c.DocumentID] || c.Status != domain.DocumentStatusIndexed {
			continue
		}
		seen[c.DocumentID] = true

		scored, ok := best[c.DocumentID]
		if !ok || scored.Score <= opts.Threshold {
			continue
		}
		pool = append(pool, ranked{doc: scored, candidate: c, order: i})
	}

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.doc.Score != b.doc.Score {
			return a.doc.Score > b.doc.Score
		}
		if !a.candidate.IndexedAt.Equal(b.candidate.IndexedAt) {
			return a.candidate.IndexedAt.Before(b.candidate.IndexedAt)
		}
		return a.order < b.order
	})

	if opts.Limit > 0 && len(pool) > opts.Limit {
		pool = pool[:opts.Limit]
	}

	out := make([]domain.ScoredDocument, len(pool))
	for i, r := range pool {
		out[i] = r.doc
	}
	return out
}
