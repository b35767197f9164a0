// Package index answers structural and content queries over decomposed documents.
package index

import (
	"context"
	"fmt"

	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// Service is the read side of the document store. It never mutates documents.
type Service struct {
	repo     Repository
	strategy Strategy
}

// New creates an index service. A nil strategy falls back to Keyword.
func New(repo Repository, strategy Strategy) *Service {
	if strategy == nil {
		strategy = Keyword{}
	}
	return &Service{repo: repo, strategy: strategy}
}

// Strategy returns the active search strategy.
func (s *Service) Strategy() Strategy { return s.strategy }

// FullText joins the document's sections in reading order.
func (s *Service) FullText(ctx context.Context, documentID string) (string, error) {
	sections, err := s.Structure(ctx, documentID)
	if err != nil {
		return "", err
	}
	return domdoc.JoinSections(sections), nil
}

// Structure returns sections sorted by order. Unindexed documents yield an empty slice.
func (s *Service) Structure(ctx context.Context, documentID string) ([]domdoc.Section, error) {
	sections, err := s.repo.Sections(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get sections %s: %w", documentID, err)
	}
	if sections == nil {
		return []domdoc.Section{}, nil
	}
	return domdoc.SortSections(sections), nil
}

// Figures returns the document's figures.
func (s *Service) Figures(ctx context.Context, documentID string) ([]domdoc.Figure, error) {
	figures, err := s.repo.Figures(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get figures %s: %w", documentID, err)
	}
	if figures == nil {
		return []domdoc.Figure{}, nil
	}
	return figures, nil
}

// Chunks returns the document's chunks in storage order.
func (s *Service) Chunks(ctx context.Context, documentID string) ([]domdoc.Chunk, error) {
	chunks, err := s.repo.Chunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks %s: %w", documentID, err)
	}
	if chunks == nil {
		return []domdoc.Chunk{}, nil
	}
	return chunks, nil
}

// SearchByConcept returns the document's chunks relevant to query, as ranked by the strategy.
func (s *Service) SearchByConcept(ctx context.Context, documentID, query string) ([]domdoc.Chunk, error) {
	chunks, err := s.Chunks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []domdoc.Chunk{}, nil
	}

	found, err := s.strategy.Search(ctx, query, chunks)
	if err != nil {
		return nil, fmt.Errorf("%s search %s: %w", s.strategy.Name(), documentID, err)
	}
	if found == nil {
		return []domdoc.Chunk{}, nil
	}
	return found, nil
}
