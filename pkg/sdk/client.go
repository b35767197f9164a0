package citeqa

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/app"
	"github.com/kailas-cloud/citeqa/internal/config"
	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
	documentuc "github.com/kailas-cloud/citeqa/internal/usecase/document"
	"github.com/kailas-cloud/citeqa/internal/usecase/gateway"
)

// Internal interfaces, swapped for mocks in tests.
type documentUseCase interface {
	Ingest(ctx context.Context, id, rawText string) (documentuc.Summary, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

type indexUseCase interface {
	FullText(ctx context.Context, documentID string) (string, error)
	Structure(ctx context.Context, documentID string) ([]domdoc.Section, error)
	Figures(ctx context.Context, documentID string) ([]domdoc.Figure, error)
	Chunks(ctx context.Context, documentID string) ([]domdoc.Chunk, error)
	SearchByConcept(ctx context.Context, documentID, query string) ([]domdoc.Chunk, error)
}

type answerUseCase interface {
	Answer(ctx context.Context, documentIDs []string, question string) (answer.Answer, error)
}

// Client is the citeqa SDK entry point. It is safe for concurrent use.
type Client struct {
	app       *app.App
	docSvc    documentUseCase
	indexSvc  indexUseCase
	answerSvc answerUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. Storage defaults to process memory and the provider to
// Gemini without a key, which answers in degraded mode. The context is used for
// the storage readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	cc.cfg.Storage.Driver = config.DriverMemory
	for _, o := range opts {
		o.apply(cc)
	}
	cc.cfg.ApplyDefaults()

	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, err
	}

	var buildOpts []app.Option
	if cc.generator != nil {
		gen := &generatorAdapter{inner: cc.generator}
		buildOpts = append(buildOpts, app.WithResolver(func(context.Context) (gateway.Generator, error) {
			return gen, nil
		}))
	}

	a, err := app.Build(ctx, cc.cfg, zap.NewNop(), buildOpts...)
	if err != nil {
		return nil, fmt.Errorf("citeqa: %w", err)
	}

	return &Client{
		app:       a,
		docSvc:    a.Documents,
		indexSvc:  a.Index,
		answerSvc: a.Answers,
		healthSvc: a.Health,
		obs:       obs,
	}, nil
}

// Close releases storage resources.
func (c *Client) Close() {
	if c.app != nil {
		c.app.Close()
	}
}

// Ingest decomposes text and indexes it under id, replacing any previous version.
// An empty id gets a generated one, returned in the result.
func (c *Client) Ingest(ctx context.Context, id, text string) (res IngestResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err) }()

	sum, err := c.docSvc.Ingest(ctx, id, text)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest: %w", err)
	}
	return ingestFromDomain(sum), nil
}

// Delete removes a document. Unknown ids return ErrDocumentNotFound.
func (c *Client) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete", start, err) }()

	if err = c.docSvc.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// List returns the ids of all indexed documents.
func (c *Client) List(ctx context.Context) (ids []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("list", start, err) }()

	ids, err = c.docSvc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return ids, nil
}

// Answer answers question from the given documents with numbered sources.
// Failures after retries surface as ErrGeneration.
func (c *Client) Answer(ctx context.Context, question string, documentIDs ...string) (res Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("answer", start, err) }()

	a, err := c.answerSvc.Answer(ctx, documentIDs, question)
	if err != nil {
		return Answer{}, fmt.Errorf("answer: %w", err)
	}
	return answerFromDomain(a), nil
}

// FullText returns the document text reassembled from its sections.
func (c *Client) FullText(ctx context.Context, documentID string) (text string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("full_text", start, err) }()

	text, err = c.indexSvc.FullText(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("full text: %w", err)
	}
	return text, nil
}

// Structure returns the document sections in order.
func (c *Client) Structure(ctx context.Context, documentID string) (sections []Section, err error) {
	start := time.Now()
	defer func() { c.obs.observe("structure", start, err) }()

	s, err := c.indexSvc.Structure(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("structure: %w", err)
	}
	return sectionsFromDomain(s), nil
}

// Figures returns the captioned figures of a document.
func (c *Client) Figures(ctx context.Context, documentID string) (figures []Figure, err error) {
	start := time.Now()
	defer func() { c.obs.observe("figures", start, err) }()

	f, err := c.indexSvc.Figures(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("figures: %w", err)
	}
	return figuresFromDomain(f), nil
}

// Chunks returns every chunk of a document in order.
func (c *Client) Chunks(ctx context.Context, documentID string) (chunks []Chunk, err error) {
	start := time.Now()
	defer func() { c.obs.observe("chunks", start, err) }()

	ch, err := c.indexSvc.Chunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("chunks: %w", err)
	}
	return chunksFromDomain(ch), nil
}

// Search returns the chunks of a document relevant to query.
func (c *Client) Search(ctx context.Context, documentID, query string) (chunks []Chunk, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	ch, err := c.indexSvc.SearchByConcept(ctx, documentID, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return chunksFromDomain(ch), nil
}
