package qa

import (
	"context"

	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
	"github.com/kailas-cloud/citeqa/internal/usecase/gateway"
)

// Index retrieves chunks relevant to a query within one document.
type Index interface {
	SearchByConcept(ctx context.Context, documentID, query string) ([]domdoc.Chunk, error)
}

// Gateway hands out the resolved answer provider.
type Gateway interface {
	Provider(ctx context.Context) (gateway.Provider, error)
}
