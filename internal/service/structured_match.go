package service

import (
	"strings"
	"unicode"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/samber/lo"
)

// minTermLength is the shortest query term that counts toward a keyword score, exclusive.
const minTermLength = 2

// MatchKnowledge picks the curated item that answers query, or nil.
//
// Only active items in one of tiers are considered. An item whose question
// contains the query (case-insensitively) always wins over keyword overlap;
// among those, the highest priority wins. Otherwise each item is scored by how
// many distinct query terms appear in its keywords or question, and the highest
// score wins, then the highest priority. Remaining ties keep the earlier item.
func MatchKnowledge(query string, items []*domain.KnowledgeItem, tiers []domain.AccessTier) *domain.KnowledgeItem {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	candidates := lo.Filter(items, func(k *domain.KnowledgeItem, _ int) bool {
		return k != nil && k.Active && domain.CanAccess(tiers, k.AccessTier)
	})

	var best *domain.KnowledgeItem
	for _, k := range candidates {
		if !strings.Contains(strings.ToLower(k.Question), needle) {
			continue
		}
		if best == nil || k.Priority > best.Priority {
			best = k
		}
	}
	if best != nil {
		return best
	}

	terms := QueryTerms(query)
	if len(terms) == 0 {
		return nil
	}

	bestScore := 0
	for _, k := range candidates {
		score := keywordScore(terms, k)
		if score == 0 {
			continue
		}
		if score > bestScore || (score == bestScore && k.Priority > best.Priority) {
			best = k
			bestScore = score
		}
	}
	return best
}

// QueryTerms splits text into lowercase letter/digit runs longer than two
// characters, keeping first occurrence order.
func QueryTerms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := lo.Filter(fields, func(f string, _ int) bool {
		return len([]rune(f)) > minTermLength
	})
	return lo.Uniq(terms)
}

func keywordScore(terms []string, k *domain.KnowledgeItem) int {
	haystack := strings.ToLower(strings.Join(k.Keywords, " ") + " " + k.Question)
	return lo.CountBy(terms, func(term string) bool {
		return strings.Contains(haystack, term)
	})
}
