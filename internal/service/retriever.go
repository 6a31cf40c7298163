package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/port"
)

// Retriever scores a candidate pool against a query and returns a bounded
// top-K, descending by relevance.
type Retriever struct {
	reranker port.Reranker
}

// NewRetriever creates a retriever over the given reranker. A nil reranker
// is allowed; ranking then reports ErrRankingUnavailable and callers
// degrade to ungrounded generation.
func NewRetriever(reranker port.Reranker) *Retriever {
	return &Retriever{reranker: reranker}
}

// Rank scores candidates against the query and returns up to k results in
// descending score order. Ties keep the original candidate order, so
// identical inputs always produce identical output. An empty candidate
// pool returns an empty result without touching the reranker, which
// rejects empty document lists.
func (r *Retriever) Rank(ctx context.Context, query string, candidates []domain.Candidate, k int) ([]domain.RankedChunk, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", port.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", port.ErrInvalidInput, k)
	}
	if len(candidates) == 0 {
		return []domain.RankedChunk{}, nil
	}
	if r.reranker == nil {
		return nil, fmt.Errorf("%w: no reranker configured", port.ErrRankingUnavailable)
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Content
	}

	scores, err := r.reranker.Rerank(ctx, query, documents)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	byIndex := make(map[int]float64, len(scores))
	for _, s := range scores {
		if s.Index >= 0 && s.Index < len(candidates) {
			byIndex[s.Index] = s.Score
		}
	}

	ranked := make([]domain.RankedChunk, 0, len(byIndex))
	for i, c := range candidates {
		if score, ok := byIndex[i]; ok {
			ranked = append(ranked, domain.RankedChunk{Candidate: c, Score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked, nil
}
