// Package decompose turns extracted document text into sections, figures and chunks.
package decompose

import (
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/domain"
	"github.com/kailas-cloud/citeqa/internal/domain/document"
)

const (
	// DefaultSentencesPerChunk is the sentence window per chunk.
	DefaultSentencesPerChunk = 5
	// DefaultOverlapSentences is the sentence overlap between neighbouring chunks.
	DefaultOverlapSentences = 1
	// DefaultMaxChunkChars caps a chunk in bytes; longer sentences are hard-split.
	DefaultMaxChunkChars = 2000
)

// Decomposer splits raw text. It has no side effects; the caller persists the result.
type Decomposer struct {
	sentencesPerChunk int
	overlap           int
	maxChunkChars     int
	md                goldmark.Markdown
	logger            *zap.Logger
}

// Option configures the Decomposer.
type Option func(*Decomposer)

// WithSentencesPerChunk sets the chunk window size in sentences.
func WithSentencesPerChunk(n int) Option {
	return func(d *Decomposer) {
		if n > 0 {
			d.sentencesPerChunk = n
		}
	}
}

// WithOverlap sets how many sentences neighbouring chunks share.
func WithOverlap(n int) Option {
	return func(d *Decomposer) {
		if n >= 0 {
			d.overlap = n
		}
	}
}

// WithMaxChunkChars caps chunk size in bytes.
func WithMaxChunkChars(n int) Option {
	return func(d *Decomposer) {
		if n > 0 {
			d.maxChunkChars = n
		}
	}
}

// WithLogger sets the logger for skipped figure extraction.
func WithLogger(l *zap.Logger) Option {
	return func(d *Decomposer) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Decomposer with the given options.
func New(opts ...Option) *Decomposer {
	d := &Decomposer{
		sentencesPerChunk: DefaultSentencesPerChunk,
		overlap:           DefaultOverlapSentences,
		maxChunkChars:     DefaultMaxChunkChars,
		md:                goldmark.New(),
		logger:            zap.NewNop(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.overlap >= d.sentencesPerChunk {
		d.overlap = d.sentencesPerChunk - 1
	}
	return d
}

// Decompose splits rawText into ordered sections, best-effort figures and covering chunks.
// It fails with domain.ErrDecomposition only when rawText is not text at all.
func (d *Decomposer) Decompose(ctx context.Context, documentID, rawText string) (document.Document, error) {
	if err := document.ValidateID(documentID); err != nil {
		return document.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := checkText(rawText); err != nil {
		return document.Document{}, fmt.Errorf("%w: document %s: %w", domain.ErrDecomposition, documentID, err)
	}

	src := []byte(rawText)
	root := d.md.Parser().Parse(text.NewReader(src))

	sections := splitSections(documentID, rawText, headingBoundaries(root, src))
	chunks := d.chunkSections(documentID, sections)
	figures := d.extractFigures(ctx, documentID, rawText, root, src)

	doc, err := document.New(documentID, sections, figures, chunks)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: document %s: %w", domain.ErrDecomposition, documentID, err)
	}
	return doc, nil
}
