package index

import (
	"context"
	"fmt"
	"sort"

	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// Hybrid fuses keyword and semantic rankings via Reciprocal Rank Fusion.
type Hybrid struct {
	keyword  Strategy
	semantic Strategy
}

// NewHybrid combines a keyword and a semantic strategy.
func NewHybrid(keyword, semantic Strategy) *Hybrid {
	return &Hybrid{keyword: keyword, semantic: semantic}
}

// Name returns "hybrid".
func (h *Hybrid) Name() string { return "hybrid" }

// Search runs both strategies and fuses their rankings.
func (h *Hybrid) Search(ctx context.Context, query string, chunks []domdoc.Chunk) ([]domdoc.Chunk, error) {
	kw, err := h.keyword.Search(ctx, query, chunks)
	if err != nil {
		return nil, fmt.Errorf("keyword: %w", err)
	}
	sem, err := h.semantic.Search(ctx, query, chunks)
	if err != nil {
		return nil, fmt.Errorf("semantic: %w", err)
	}
	return fuseRRF(kw, sem), nil
}

// fuseRRF merges two rankings. score(c) = sum of 1/(k + rank_i(c)) over the rankings containing c.
// Equal scores keep first-seen order, keyword list first.
func fuseRRF(first, second []domdoc.Chunk) []domdoc.Chunk {
	type scored struct {
		chunk domdoc.Chunk
		score float64
		seen  int
	}

	merged := make(map[string]*scored, len(first)+len(second))
	order := 0
	add := func(list []domdoc.Chunk) {
		for rank, c := range list {
			s := 1.0 / float64(rrfK+rank+1)
			if existing, ok := merged[c.ID]; ok {
				existing.score += s
				continue
			}
			merged[c.ID] = &scored{chunk: c, score: s, seen: order}
			order++
		}
	}
	add(first)
	add(second)

	all := make([]*scored, 0, len(merged))
	for _, s := range merged {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].seen < all[j].seen
	})

	out := make([]domdoc.Chunk, len(all))
	for i, s := range all {
		out[i] = s.chunk
	}
	return out
}
