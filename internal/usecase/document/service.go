// Package document ingests raw text into the index and manages document lifecycle.
package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/domain"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
	"github.com/kailas-cloud/citeqa/internal/logger"
)

// Summary describes an ingested document.
type Summary struct {
	DocumentID string `json:"document_id"`
	Sections   int    `json:"sections"`
	Figures    int    `json:"figures"`
	Chunks     int    `json:"chunks"`
	Replaced   bool   `json:"replaced"`
	Tokens     int    `json:"embedding_tokens,omitempty"`
}

// Service decomposes and persists documents.
type Service struct {
	repo       Repository
	decomposer Decomposer
	embedder   Embedder
	logger     *zap.Logger
}

// New creates a document service.
func New(repo Repository, decomposer Decomposer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, decomposer: decomposer, logger: log}
}

// WithEmbedder embeds every chunk during ingest so a caching embedder is warm
// before the first semantic search.
func (s *Service) WithEmbedder(e Embedder) *Service {
	s.embedder = e
	return s
}

// Ingest decomposes rawText and persists the result as one unit.
// An empty id gets a generated UUID. Re-ingesting an id replaces the previous version.
func (s *Service) Ingest(ctx context.Context, id, rawText string) (Summary, error) {
	if id == "" {
		id = uuid.NewString()
	}

	doc, err := s.decomposer.Decompose(ctx, id, rawText)
	if err != nil {
		return Summary{}, fmt.Errorf("decompose %s: %w", id, err)
	}

	tokens, err := s.warm(ctx, doc)
	if err != nil {
		return Summary{}, err
	}

	existed, err := s.repo.Exists(ctx, id)
	if err != nil {
		return Summary{}, fmt.Errorf("check exists %s: %w", id, err)
	}

	if err := s.repo.Save(ctx, doc); err != nil {
		return Summary{}, fmt.Errorf("save %s: %w", id, err)
	}

	sum := Summary{
		DocumentID: id,
		Sections:   len(doc.Sections()),
		Figures:    len(doc.Figures()),
		Chunks:     len(doc.Chunks()),
		Replaced:   existed,
		Tokens:     tokens,
	}
	logger.FromContextOr(ctx, s.logger).Info("Document indexed",
		zap.String("document_id", id),
		zap.Int("sections", sum.Sections),
		zap.Int("figures", sum.Figures),
		zap.Int("chunks", sum.Chunks),
		zap.Bool("replaced", existed),
	)
	return sum, nil
}

// warm embeds each chunk. Failure aborts ingest before anything is persisted.
func (s *Service) warm(ctx context.Context, doc domdoc.Document) (int, error) {
	if s.embedder == nil {
		return 0, nil
	}
	total := 0
	for _, c := range doc.Chunks() {
		res, err := s.embedder.Embed(ctx, c.Content)
		if err != nil {
			return 0, fmt.Errorf("%w: chunk %s: %w", domain.ErrEmbeddingProviderError, c.ID, err)
		}
		total += res.TotalTokens
	}
	return total, nil
}

// Delete removes a document and all its units.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := domdoc.ValidateID(id); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	logger.FromContextOr(ctx, s.logger).Info("Document deleted", zap.String("document_id", id))
	return nil
}

// Exists reports whether a document is indexed.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", id, err)
	}
	return ok, nil
}

// List returns the IDs of all indexed documents.
func (s *Service) List(ctx context.Context) ([]string, error) {
	ids, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if ids == nil {
		return []string{}, nil
	}
	return ids, nil
}
