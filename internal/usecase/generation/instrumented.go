// Package generation decorates answer generators with logging and metrics.
package generation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	"github.com/kailas-cloud/citeqa/internal/domain/failure"
	"github.com/kailas-cloud/citeqa/internal/metrics"
)

// Generator is the consumer interface (ISP).
type Generator interface {
	Generate(ctx context.Context, prompt answer.Prompt) (string, error)
}

// InstrumentedGenerator wraps a Generator with request metrics and logging.
// Errors pass through unchanged so their failure markers reach the retry loop.
type InstrumentedGenerator struct {
	inner    Generator
	provider string
	model    string
	logger   *zap.Logger
}

// NewInstrumentedGenerator wraps a generator with observability.
func NewInstrumentedGenerator(inner Generator, provider, model string, logger *zap.Logger) *InstrumentedGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedGenerator{
		inner:    inner,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Generate delegates to the inner generator and records the outcome.
func (g *InstrumentedGenerator) Generate(ctx context.Context, prompt answer.Prompt) (string, error) {
	start := time.Now()

	text, err := g.inner.Generate(ctx, prompt)

	duration := time.Since(start)
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())

	if err != nil {
		marker := failure.MarkerOf(err)
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, marker.String()).Inc()
		g.logger.Warn("Generation request failed",
			zap.String("provider", g.provider),
			zap.String("model", g.model),
			zap.Duration("duration", duration),
			zap.Stringer("marker", marker),
			zap.Error(err),
		)
		return "", err //nolint:wrapcheck // marker must survive unwrapped
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	g.logger.Debug("Generation request completed",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_chars", len(prompt.System)+len(prompt.User)),
		zap.Int("answer_chars", len(text)),
	)

	return text, nil
}
