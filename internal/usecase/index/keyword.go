package index

import (
	"context"
	"strings"

	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// Keyword matches the query as a case-insensitive substring of each chunk.
// Results keep storage order. An empty query matches every chunk.
type Keyword struct{}

// Name returns "keyword".
func (Keyword) Name() string { return "keyword" }

// Search returns exactly the chunks whose content contains query, ignoring case.
func (Keyword) Search(_ context.Context, query string, chunks []domdoc.Chunk) ([]domdoc.Chunk, error) {
	needle := strings.ToLower(query)
	out := make([]domdoc.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.Contains(strings.ToLower(c.Content), needle) {
			out = append(out, c)
		}
	}
	return out, nil
}
