package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/citeqa/internal/domain/answer"
)

// errEmptyAnswer is returned when the provider produced only whitespace.
var errEmptyAnswer = errors.New("provider returned an empty answer")

// SystemPrompt instructs the model to answer from numbered sources with citations.
const SystemPrompt = "You answer questions about the user's documents. " +
	"Use only the numbered sources when they are relevant and cite every claim with its label, for example [1]. " +
	"If the sources do not contain the answer, say so briefly and give a general answer without citations."

// grounded is the Ready provider: prompt assembly over a Generator, optionally rate limited.
type grounded struct {
	gen     Generator
	limiter *rate.Limiter
}

func newGrounded(gen Generator, limiter *rate.Limiter) *grounded {
	return &grounded{gen: gen, limiter: limiter}
}

// GenerateGroundedAnswer builds the prompt and calls the generator once.
// Generator errors are returned unwrapped so callers can classify them.
func (p *grounded) GenerateGroundedAnswer(
	ctx context.Context, question string, sources []answer.Source,
) (answer.Generation, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return answer.Generation{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	text, err := p.gen.Generate(ctx, BuildPrompt(question, sources))
	if err != nil {
		return answer.Generation{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return answer.Generation{}, errEmptyAnswer
	}
	return answer.Generation{Text: text}, nil
}

// BuildPrompt renders the question and its numbered sources.
// With no sources the model is told so and asked for a general answer.
func BuildPrompt(question string, sources []answer.Source) answer.Prompt {
	var b strings.Builder
	if len(sources) == 0 {
		b.WriteString("No sources were found in the selected documents.\n\n")
	} else {
		b.WriteString("Sources:\n")
		for _, s := range sources {
			b.WriteString(s.Label())
			b.WriteByte(' ')
			b.WriteString(strings.TrimSpace(s.Content))
			b.WriteString("\n\n")
		}
	}
	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(question))
	return answer.Prompt{System: SystemPrompt, User: b.String()}
}

// Unavailable is the degraded provider used when credentials are missing.
// It never fails and never cites.
type Unavailable struct{}

// GenerateGroundedAnswer returns answer.UnavailableMessage.
func (Unavailable) GenerateGroundedAnswer(context.Context, string, []answer.Source) (answer.Generation, error) {
	return answer.Generation{Text: answer.UnavailableMessage, Degraded: true}, nil
}
