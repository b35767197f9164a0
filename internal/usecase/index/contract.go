package index

import (
	"context"

	"github.com/kailas-cloud/citeqa/internal/domain"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// Repository defines the read contract over persisted documents.
// Unindexed documents yield empty results, not errors.
type Repository interface {
	Sections(ctx context.Context, documentID string) ([]domdoc.Section, error)
	Figures(ctx context.Context, documentID string) ([]domdoc.Figure, error)
	Chunks(ctx context.Context, documentID string) ([]domdoc.Chunk, error)
}

// Strategy selects the chunks relevant to a query.
// Implementations share one signature; only ranking differs between them.
type Strategy interface {
	Name() string
	Search(ctx context.Context, query string, chunks []domdoc.Chunk) ([]domdoc.Chunk, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
