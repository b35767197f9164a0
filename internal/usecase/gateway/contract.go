package gateway

import (
	"context"

	"github.com/kailas-cloud/citeqa/internal/domain/answer"
)

// Generator is the generative-answer collaborator: one prompt in, text out.
// Errors should be *failure.Error so the retry loop can read their marker.
type Generator interface {
	Generate(ctx context.Context, prompt answer.Prompt) (string, error)
}

// Provider is the resolved answer capability.
type Provider interface {
	GenerateGroundedAnswer(ctx context.Context, question string, sources []answer.Source) (answer.Generation, error)
}

// Resolver builds the Generator. It runs at most once per Gateway.
type Resolver func(ctx context.Context) (Generator, error)
