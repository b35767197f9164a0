package document

import (
	"context"

	"github.com/kailas-cloud/citeqa/internal/domain"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// Repository defines the write contract for documents.
// Save must persist sections, figures and chunks all-or-nothing.
type Repository interface {
	Save(ctx context.Context, doc domdoc.Document) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// Decomposer turns raw text into a document.
type Decomposer interface {
	Decompose(ctx context.Context, documentID, rawText string) (domdoc.Document, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
