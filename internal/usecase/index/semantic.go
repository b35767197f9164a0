package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// Semantic ranks chunks by cosine similarity between query and chunk embeddings.
// Chunks scoring below minScore are dropped; ties keep storage order.
type Semantic struct {
	embed    Embedder
	query    Embedder
	minScore float64
}

// NewSemantic creates a similarity-ranked strategy.
// Pair it with a caching embedder, since every chunk is embedded on search.
func NewSemantic(embed Embedder, minScore float64) *Semantic {
	return &Semantic{embed: embed, query: embed, minScore: minScore}
}

// WithQueryEmbedder embeds queries with q instead, e.g. an instruction-prefixed
// embedder. Chunks keep the plain embedder so cached vectors stay reusable.
func (s *Semantic) WithQueryEmbedder(q Embedder) *Semantic {
	if q != nil {
		s.query = q
	}
	return s
}

// Name returns "semantic".
func (s *Semantic) Name() string { return "semantic" }

// Search returns chunks with score >= minScore, best first.
func (s *Semantic) Search(ctx context.Context, query string, chunks []domdoc.Chunk) ([]domdoc.Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	q, err := s.query.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		chunk domdoc.Chunk
		score float64
	}
	ranked := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		v, err := s.embed.Embed(ctx, c.Content)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %s: %w", c.ID, err)
		}
		score := cosine(q.Embedding, v.Embedding)
		if score >= s.minScore {
			ranked = append(ranked, scored{chunk: c, score: score})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	out := make([]domdoc.Chunk, len(ranked))
	for i, r := range ranked {
		out[i] = r.chunk
	}
	return out, nil
}

// cosine returns the cosine similarity of a and b, or 0 for mismatched or zero vectors.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
