package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/config"
	"github.com/kailas-cloud/citeqa/internal/transport/anthropic"
	"github.com/kailas-cloud/citeqa/internal/transport/gemini"
	openaiTransport "github.com/kailas-cloud/citeqa/internal/transport/openai"
	"github.com/kailas-cloud/citeqa/internal/usecase/gateway"
	"github.com/kailas-cloud/citeqa/internal/usecase/generation"
)

// modelGenerator is a provider client that knows its resolved model name.
type modelGenerator interface {
	gateway.Generator
	Model() string
}

// NewResolver returns the gateway resolver for the configured provider.
// A missing API key surfaces as a credential failure, which the gateway degrades on.
func NewResolver(cfg config.GenerationConfig, logger *zap.Logger) gateway.Resolver {
	return func(ctx context.Context) (gateway.Generator, error) {
		var (
			gen modelGenerator
			err error
		)
		switch cfg.Provider {
		case config.ProviderGemini:
			gen, err = gemini.NewGenerator(ctx, gemini.Config{
				APIKey:      cfg.APIKey,
				BaseURL:     cfg.BaseURL,
				Model:       cfg.Model,
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
				Logger:      logger,
			})
		case config.ProviderOpenAI:
			gen, err = openaiTransport.NewGenerator(openaiTransport.GeneratorConfig{
				APIKey:      cfg.APIKey,
				BaseURL:     cfg.BaseURL,
				Model:       cfg.Model,
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
				Streaming:   cfg.Streaming,
				Logger:      logger,
			})
		case config.ProviderAnthropic:
			gen, err = anthropic.NewGenerator(anthropic.Config{
				APIKey:      cfg.APIKey,
				BaseURL:     cfg.BaseURL,
				Model:       cfg.Model,
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
			})
		default:
			return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
		}
		if err != nil {
			return nil, err
		}

		logger.Info("Answer provider created",
			zap.String("provider", cfg.Provider),
			zap.String("model", gen.Model()),
		)
		return generation.NewInstrumentedGenerator(gen, cfg.Provider, gen.Model(), logger), nil
	}
}
