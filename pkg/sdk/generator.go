package citeqa

import (
	"context"

	"github.com/kailas-cloud/citeqa/internal/domain/answer"
)

// Generator produces answer text from a system and a user prompt.
// Bring your own when none of the built-in providers fit. Returned errors are
// classified by message (429, RESOURCE_EXHAUSTED, timeouts, network) to decide
// whether the call is retried.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// generatorAdapter wraps a public Generator into the internal generator contract.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, p answer.Prompt) (string, error) {
	return a.inner.Generate(ctx, p.System, p.User)
}
