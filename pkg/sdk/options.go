package citeqa

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/citeqa/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	cfg       config.Config
	generator Generator

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithMemory keeps documents in process memory (default).
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Storage.Driver = config.DriverMemory
	})
}

// WithValkey stores documents in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Storage.Driver = config.DriverValkey
		c.cfg.Storage.Addrs = []string{addr}
		c.cfg.Storage.Password = password
	})
}

// WithRedis stores documents in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Storage.Driver = config.DriverRedis
		c.cfg.Storage.Addrs = []string{addr}
		c.cfg.Storage.Password = password
	})
}

// WithBadger stores documents in an embedded Badger database under dir.
func WithBadger(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Storage.Driver = config.DriverBadger
		c.cfg.Storage.Path = dir
	})
}

// WithSQLite stores documents in a SQLite file.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Storage.Driver = config.DriverSQLite
		c.cfg.Storage.Path = path
	})
}

// WithGemini answers with Google Gemini. An empty model uses the provider default.
func WithGemini(apiKey, model string) Option {
	return withProvider(config.ProviderGemini, apiKey, model)
}

// WithOpenAI answers with an OpenAI-compatible chat completions API.
func WithOpenAI(apiKey, model string) Option {
	return withProvider(config.ProviderOpenAI, apiKey, model)
}

// WithAnthropic answers with Anthropic Claude.
func WithAnthropic(apiKey, model string) Option {
	return withProvider(config.ProviderAnthropic, apiKey, model)
}

func withProvider(provider, apiKey, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Generation.Provider = provider
		c.cfg.Generation.APIKey = apiKey
		c.cfg.Generation.Model = model
	})
}

// WithBaseURL overrides the provider endpoint, e.g. for a proxy or an
// OpenAI-compatible server.
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Generation.BaseURL = url
	})
}

// WithGenerator answers with a custom generator instead of a built-in provider.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithRateLimit throttles provider calls to rps per second. Default: unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Generation.RequestsPerSecond = rps
		c.cfg.Generation.Burst = burst
	})
}

// WithRetry sets the retry budget for transient provider failures.
// Defaults: 3 retries, 2s base delay doubling per attempt.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Retry.MaxRetries = maxRetries
		c.cfg.Retry.BaseDelayMs = int(baseDelay / time.Millisecond)
	})
}

// WithChunking sets sentences per chunk and the sentence overlap between chunks.
// Defaults: 5 sentences, no overlap.
func WithChunking(sentences, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Decomposer.SentencesPerChunk = sentences
		c.cfg.Decomposer.OverlapSentences = overlap
	})
}

// WithMaxSources caps the sources given to the provider per answer. Default: 8.
func WithMaxSources(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Retrieval.MaxSources = n
	})
}

// WithSemanticRetrieval ranks chunks by embedding similarity via an OpenAI-compatible
// embeddings API. hybrid additionally fuses the substring matches.
func WithSemanticRetrieval(apiKey, model string, hybrid bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.cfg.Retrieval.Strategy = config.StrategySemantic
		if hybrid {
			c.cfg.Retrieval.Strategy = config.StrategyHybrid
		}
		c.cfg.Retrieval.Embedding.APIKey = apiKey
		c.cfg.Retrieval.Embedding.Model = model
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
