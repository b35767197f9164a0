// Package qa answers questions over indexed documents with cited sources and a confidence level.
package qa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/domain"
	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
	"github.com/kailas-cloud/citeqa/internal/logger"
	"github.com/kailas-cloud/citeqa/internal/usecase/retry"
)

// DefaultMaxSources bounds the prompt when no limit is configured.
const DefaultMaxSources = 8

// Pipeline composes retrieval, generation (through retry) and confidence scoring.
// It only reads the index.
type Pipeline struct {
	index        Index
	gateway      Gateway
	maxSources   int
	expandTerms  bool
	retryOpts    []retry.Option
	logger       *zap.Logger
	onAnswer     []func(answer.Answer, time.Duration)
	onGeneration []func(outcome string, d time.Duration)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxSources caps the number of sources per answer. n <= 0 keeps every match.
func WithMaxSources(n int) Option {
	return func(p *Pipeline) { p.maxSources = n }
}

// WithTermExpansion toggles searching each key term of the question in addition to
// the whole question. Substring retrieval needs it; similarity retrieval does not.
func WithTermExpansion(on bool) Option {
	return func(p *Pipeline) { p.expandTerms = on }
}

// WithRetry sets the options for the generation retry loop.
func WithRetry(opts ...retry.Option) Option {
	return func(p *Pipeline) { p.retryOpts = append(p.retryOpts, opts...) }
}

// WithLogger sets the component logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithAnswerHook registers fn to run after every successful answer.
func WithAnswerHook(fn func(answer.Answer, time.Duration)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.onAnswer = append(p.onAnswer, fn)
		}
	}
}

// WithGenerationHook registers fn to run after every generation call chain
// with outcome "success", "degraded" or "error".
func WithGenerationHook(fn func(outcome string, d time.Duration)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.onGeneration = append(p.onGeneration, fn)
		}
	}
}

// New creates a pipeline.
func New(index Index, gw Gateway, opts ...Option) *Pipeline {
	p := &Pipeline{
		index:       index,
		gateway:     gw,
		maxSources:  DefaultMaxSources,
		expandTerms: true,
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Answer retrieves sources from documentIDs, generates a cited answer and scores it.
// Zero sources still produce an answer. Generation failures surface as domain.ErrGeneration.
func (p *Pipeline) Answer(ctx context.Context, documentIDs []string, question string) (answer.Answer, error) {
	start := time.Now()
	question = strings.TrimSpace(question)
	if question == "" {
		return answer.Answer{}, fmt.Errorf("%w: question is required", domain.ErrInvalidRequest)
	}
	ids, err := uniqueIDs(documentIDs)
	if err != nil {
		return answer.Answer{}, err
	}

	chunks, err := p.retrieve(ctx, ids, question)
	if err != nil {
		return answer.Answer{}, err
	}
	sources := answer.NewSources(chunks, p.maxSources)

	provider, err := p.gateway.Provider(ctx)
	if err != nil {
		return answer.Answer{}, fmt.Errorf("resolve provider: %w", err)
	}

	log := logger.FromContextOr(ctx, p.logger)
	genStart := time.Now()
	gen, err := retry.Do(ctx, func(ctx context.Context) (answer.Generation, error) {
		return provider.GenerateGroundedAnswer(ctx, question, sources)
	}, append([]retry.Option{retry.WithLogger(log)}, p.retryOpts...)...)
	if err != nil {
		p.generated("error", time.Since(genStart))
		return answer.Answer{}, fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	var res answer.Answer
	if gen.Degraded {
		p.generated("degraded", time.Since(genStart))
		res = answer.Answer{Text: gen.Text, Sources: []answer.Source{}, Confidence: answer.Low, Degraded: true}
	} else {
		p.generated("success", time.Since(genStart))
		res = answer.Answer{Text: gen.Text, Sources: sources, Confidence: Score(gen.Text, sources)}
	}

	elapsed := time.Since(start)
	log.Debug("Answer generated",
		zap.Strings("document_ids", ids),
		zap.Int("sources", len(res.Sources)),
		zap.String("confidence", string(res.Confidence)),
		zap.Bool("degraded", res.Degraded),
		zap.Duration("elapsed", elapsed),
	)
	for _, fn := range p.onAnswer {
		fn(res, elapsed)
	}
	return res, nil
}

// retrieve searches each document in order, then concatenates without duplicates.
// Within a document the whole question runs first, then its key terms.
func (p *Pipeline) retrieve(ctx context.Context, ids []string, question string) ([]domdoc.Chunk, error) {
	queries := []string{question}
	if p.expandTerms {
		for _, t := range keyTerms(question) {
			if t != strings.ToLower(question) {
				queries = append(queries, t)
			}
		}
	}

	type key struct{ doc, chunk string }
	seen := make(map[key]struct{})
	var out []domdoc.Chunk
	for _, id := range ids {
		for _, q := range queries {
			found, err := p.index.SearchByConcept(ctx, id, q)
			if err != nil {
				return nil, fmt.Errorf("retrieve %s: %w", id, err)
			}
			for _, c := range found {
				k := key{c.DocumentID, c.ID}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (p *Pipeline) generated(outcome string, d time.Duration) {
	for _, fn := range p.onGeneration {
		fn(outcome, d)
	}
}

// uniqueIDs validates ids and drops repeats, keeping first-seen order.
func uniqueIDs(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := domdoc.ValidateID(id); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
