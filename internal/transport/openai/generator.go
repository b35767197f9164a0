package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/domain"
	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	"github.com/kailas-cloud/citeqa/internal/domain/failure"
)

// DefaultChatModel is used when the config leaves the model empty.
const DefaultChatModel = openai.GPT4oMini

// GeneratorConfig holds the chat completion settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Streaming   bool
	Logger      *zap.Logger
}

// Generator produces answer text through the chat completions API.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	streaming   bool
	logger      *zap.Logger
}

// NewGenerator creates a chat generator. An empty API key is a credential failure.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, failure.New(fmt.Errorf("openai: api key is empty: %w", domain.ErrCredentialMissing), 0)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	return &Generator{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		streaming:   cfg.Streaming,
		logger:      nopIfNil(cfg.Logger),
	}, nil
}

// Model returns the chat model name.
func (g *Generator) Model() string { return g.model }

// Generate sends the prompt and returns the completion text.
func (g *Generator) Generate(ctx context.Context, prompt answer.Prompt) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
	}
	if g.streaming {
		return g.stream(ctx, req)
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", failure.New(errors.New("openai: completion has no choices"), 0)
	}
	return resp.Choices[0].Message.Content, nil
}

// stream concatenates streamed deltas. Malformed or empty fragments are skipped.
func (g *Generator) stream(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	req.Stream = true
	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	defer stream.Close()

	var (
		sb      strings.Builder
		skipped int
	)
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isMalformed(err) {
				skipped++
				continue
			}
			return "", classify(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		sb.WriteString(resp.Choices[0].Delta.Content)
	}

	if skipped > 0 {
		g.logger.Debug("Skipped malformed stream fragments",
			zap.String("model", g.model),
			zap.Int("skipped", skipped),
		)
	}
	return sb.String(), nil
}

func isMalformed(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
