package chi

import (
	"context"

	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
	documentuc "github.com/kailas-cloud/citeqa/internal/usecase/document"
	healthuc "github.com/kailas-cloud/citeqa/internal/usecase/health"
)

// Documents is the ingestion use case consumed by the HTTP layer.
type Documents interface {
	Ingest(ctx context.Context, id, rawText string) (documentuc.Summary, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

// Index is the concept index read API consumed by the HTTP layer.
type Index interface {
	FullText(ctx context.Context, documentID string) (string, error)
	Structure(ctx context.Context, documentID string) ([]domdoc.Section, error)
	Figures(ctx context.Context, documentID string) ([]domdoc.Figure, error)
	Chunks(ctx context.Context, documentID string) ([]domdoc.Chunk, error)
	SearchByConcept(ctx context.Context, documentID, query string) ([]domdoc.Chunk, error)
}

// Answerer is the QA pipeline consumed by the HTTP layer.
type Answerer interface {
	Answer(ctx context.Context, documentIDs []string, question string) (answer.Answer, error)
}

// HealthChecker reports aggregated health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
