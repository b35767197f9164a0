// Package gemini generates answers with Google Gemini through the genai SDK.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/citeqa/internal/domain"
	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	"github.com/kailas-cloud/citeqa/internal/domain/failure"
)

// DefaultModel is used when the config leaves the model empty.
const DefaultModel = "gemini-2.5-flash"

// Config holds the Gemini generation settings.
type Config struct {
	APIKey      string
	BaseURL     string // optional endpoint override
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

type streamFunc func(
	ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig,
) iter.Seq2[*genai.GenerateContentResponse, error]

// Generator streams answer text from Gemini.
type Generator struct {
	stream      streamFunc
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewGenerator creates the genai client. An empty API key is a credential failure.
func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, failure.New(fmt.Errorf("gemini: api key is empty: %w", domain.ErrCredentialMissing), 0)
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, classify(fmt.Errorf("create gemini client: %w", err))
	}

	return newGenerator(client.Models.GenerateContentStream, cfg), nil
}

func newGenerator(stream streamFunc, cfg Config) *Generator {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		stream:      stream,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Model returns the Gemini model name.
func (g *Generator) Model() string { return g.model }

// Generate streams the completion and concatenates its text fragments.
// Fragments without text are skipped.
func (g *Generator) Generate(ctx context.Context, prompt answer.Prompt) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if prompt.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.maxTokens) //nolint:gosec // bounded by config validation
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt.User, genai.RoleUser)}

	var (
		sb      strings.Builder
		skipped int
	)
	for resp, err := range g.stream(ctx, g.model, contents, cfg) {
		if err != nil {
			return "", classify(err)
		}
		if resp == nil || len(resp.Candidates) == 0 {
			skipped++
			continue
		}
		sb.WriteString(resp.Text())
	}

	if skipped > 0 {
		g.logger.Debug("Skipped empty stream fragments",
			zap.String("model", g.model),
			zap.Int("skipped", skipped),
		)
	}
	return sb.String(), nil
}

// classify maps genai errors onto the typed boundary error. Status and
// details are folded into the message so quota markers and RetryInfo hints survive.
func classify(err error) *failure.Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return fromAPIError(*apiErrPtr, err)
	}
	return failure.New(err, 0)
}

func fromAPIError(apiErr genai.APIError, cause error) *failure.Error {
	msg := fmt.Sprintf("gemini API error %d %s: %s", apiErr.Code, apiErr.Status, apiErr.Message)
	if len(apiErr.Details) > 0 {
		if raw, err := json.Marshal(apiErr.Details); err == nil {
			msg += " " + string(raw)
		}
	}
	return failure.New(&providerError{msg: msg, cause: cause}, apiErr.Code)
}

type providerError struct {
	msg   string
	cause error
}

func (e *providerError) Error() string { return e.msg }
func (e *providerError) Unwrap() error { return e.cause }
