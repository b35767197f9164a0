// Package anthropic generates answers with Claude through the Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kailas-cloud/citeqa/internal/domain"
	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	"github.com/kailas-cloud/citeqa/internal/domain/failure"
)

const (
	// DefaultModel is used when the config leaves the model empty.
	DefaultModel = "claude-sonnet-4-5"
	// DefaultMaxTokens bounds the answer length when the config leaves it unset.
	DefaultMaxTokens = 1024
)

// Config holds the Claude generation settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// Generator produces answer text with a single Messages.New call.
type Generator struct {
	client      anthropic.Client
	model       string
	temperature float32
	maxTokens   int64
}

// NewGenerator creates the Claude client. An empty API key is a credential failure.
// SDK-level retries are disabled so the retry orchestrator owns backoff.
func NewGenerator(cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, failure.New(fmt.Errorf("anthropic: api key is empty: %w", domain.ErrCredentialMissing), 0)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &Generator{
		client:      anthropic.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Model returns the Claude model name.
func (g *Generator) Model() string { return g.model }

// Generate sends the prompt and joins the text blocks of the reply.
func (g *Generator) Generate(ctx context.Context, prompt answer.Prompt) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	}
	if g.temperature > 0 {
		params.Temperature = anthropic.Float(float64(g.temperature))
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// classify maps SDK errors onto the typed boundary error. The SDK error
// message carries the raw response body, which keeps provider hints intact.
// Overload arrives as 529 with type overloaded_error and is retried as transient.
func classify(err error) *failure.Error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return failure.New(err, apiErr.StatusCode)
	}
	return failure.New(err, 0)
}
