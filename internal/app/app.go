// Package app is the composition root: it turns a config.Config into wired services.
package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/config"
	dbRedis "github.com/kailas-cloud/citeqa/internal/db/redis"
	"github.com/kailas-cloud/citeqa/internal/domain"
	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	"github.com/kailas-cloud/citeqa/internal/metrics"
	badgerrepo "github.com/kailas-cloud/citeqa/internal/repository/badger"
	documentrepo "github.com/kailas-cloud/citeqa/internal/repository/document"
	"github.com/kailas-cloud/citeqa/internal/repository/embcache"
	"github.com/kailas-cloud/citeqa/internal/repository/memory"
	sqliterepo "github.com/kailas-cloud/citeqa/internal/repository/sqlite"
	openaiTransport "github.com/kailas-cloud/citeqa/internal/transport/openai"
	"github.com/kailas-cloud/citeqa/internal/usecase/decompose"
	documentuc "github.com/kailas-cloud/citeqa/internal/usecase/document"
	"github.com/kailas-cloud/citeqa/internal/usecase/gateway"
	healthuc "github.com/kailas-cloud/citeqa/internal/usecase/health"
	indexuc "github.com/kailas-cloud/citeqa/internal/usecase/index"
	"github.com/kailas-cloud/citeqa/internal/usecase/qa"
	"github.com/kailas-cloud/citeqa/internal/usecase/retry"
)

// repository is what the document and index services need from storage.
type repository interface {
	documentuc.Repository
	indexuc.Repository
}

// kvStore is the embedding cache backend; only valkey/redis provide one.
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// App holds the wired services.
type App struct {
	Documents *documentuc.Service
	Index     *indexuc.Service
	Answers   *qa.Pipeline
	Health    *healthuc.Service
	Gateway   *gateway.Gateway

	closers []func()
}

// Option customizes Build.
type Option func(*options)

type options struct {
	resolver gateway.Resolver
	sleep    retry.SleepFunc
}

// WithResolver replaces the config-driven provider resolver.
func WithResolver(r gateway.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithSleep replaces the retry wait, mostly for tests.
func WithSleep(fn retry.SleepFunc) Option {
	return func(o *options) { o.sleep = fn }
}

// Build wires storage, retrieval, the provider gateway and the QA pipeline from cfg.
// cfg must already have defaults applied. Call Close when done.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	a := &App{}
	repo, pinger, kv, err := a.openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	decomposer := decompose.New(
		decompose.WithSentencesPerChunk(cfg.Decomposer.SentencesPerChunk),
		decompose.WithOverlap(cfg.Decomposer.OverlapSentences),
		decompose.WithMaxChunkChars(cfg.Decomposer.MaxChunkChars),
		decompose.WithLogger(logger),
	)
	a.Documents = documentuc.New(repo, decomposer, logger)

	strategy, embedder, err := buildStrategy(cfg.Retrieval, kv, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	var embeddingChecker healthuc.EmbeddingChecker
	if embedder != nil {
		a.Documents.WithEmbedder(embedder.cached)
		embeddingChecker = embedder.base
	}
	a.Index = indexuc.New(repo, strategy)

	resolver := o.resolver
	if resolver == nil {
		resolver = NewResolver(cfg.Generation, logger)
	}
	stateNames := make([]string, 0, len(gateway.States()))
	for _, s := range gateway.States() {
		stateNames = append(stateNames, s.String())
	}
	a.Gateway = gateway.New(resolver,
		gateway.WithRateLimit(cfg.Generation.RequestsPerSecond, cfg.Generation.Burst),
		gateway.WithLogger(logger),
		gateway.WithStateHook(func(s gateway.State) {
			metrics.SetGatewayState(s.String(), stateNames)
		}),
	)
	metrics.SetGatewayState(gateway.Unresolved.String(), stateNames)

	policy := retry.Policy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
	}
	retryOpts := append(policy.Options(), retry.WithOnRetry(func(e retry.Event) {
		metrics.GenerationRetriesTotal.WithLabelValues(e.Marker.String(), strconv.FormatBool(e.Hinted)).Inc()
	}))
	if o.sleep != nil {
		retryOpts = append(retryOpts, retry.WithSleep(o.sleep))
	}

	a.Answers = qa.New(a.Index, a.Gateway,
		qa.WithMaxSources(cfg.Retrieval.MaxSources),
		qa.WithTermExpansion(cfg.Retrieval.Expansion()),
		qa.WithRetry(retryOpts...),
		qa.WithLogger(logger),
		qa.WithAnswerHook(observeAnswer),
		qa.WithGenerationHook(func(outcome string, d time.Duration) {
			if outcome == "error" {
				metrics.AnswerDuration.WithLabelValues(outcome).Observe(d.Seconds())
			}
		}),
	)

	a.Health = healthuc.New(pinger, a.Gateway, embeddingChecker)

	logger.Info("citeqa services ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("strategy", strategy.Name()),
		zap.String("provider", cfg.Generation.Provider),
	)
	return a, nil
}

// Close releases storage handles in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func observeAnswer(res answer.Answer, d time.Duration) {
	metrics.AnswersTotal.WithLabelValues(string(res.Confidence)).Inc()
	outcome := "success"
	if res.Degraded {
		outcome = "degraded"
	}
	metrics.AnswerDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// openStorage opens the configured driver. kv is nil unless the driver can cache embeddings.
func (a *App) openStorage(
	ctx context.Context, cfg config.StorageConfig, logger *zap.Logger,
) (repository, healthuc.StoragePinger, kvStore, error) {
	switch cfg.Driver {
	case config.DriverValkey, config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			a.Close()
			return nil, nil, nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
		}
		logger.Info("Connected to database", zap.String("driver", cfg.Driver), zap.Strings("addrs", cfg.Addrs))
		return documentrepo.New(store, cfg.KeyPrefix), store, store, nil

	case config.DriverBadger:
		repo, err := badgerrepo.Open(badgerrepo.Config{Path: cfg.Path})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open badger: %w", err)
		}
		a.closers = append(a.closers, func() { _ = repo.Close() })
		logger.Info("Opened badger store", zap.String("path", cfg.Path))
		return repo, repo, nil, nil

	case config.DriverSQLite:
		repo, err := sqliterepo.Open(cfg.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, func() { _ = repo.Close() })
		logger.Info("Opened sqlite store", zap.String("path", repo.Path()))
		return repo, repo, nil, nil

	case config.DriverMemory:
		repo := memory.New()
		return repo, repo, nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// embedderChain keeps the provider client for health checks next to the cached decorator.
type embedderChain struct {
	base   *openaiTransport.Embedder
	cached domain.Embedder
}

// buildStrategy assembles the retrieval strategy. For similarity retrieval the
// embedder chain is OpenAI -> Cached (when a KV store exists), with the query
// instruction applied outermost so it is part of the cache key.
func buildStrategy(cfg config.RetrievalConfig, kv kvStore, logger *zap.Logger) (indexuc.Strategy, *embedderChain, error) {
	if cfg.Strategy == config.StrategyKeyword {
		return indexuc.Keyword{}, nil, nil
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	chain := &embedderChain{base: base, cached: base}
	if kv != nil {
		chain.cached = embcache.New(base, kv, embcache.Options{
			Model: cfg.Embedding.Model,
			TTL:   time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	semantic := indexuc.NewSemantic(chain.cached, cfg.MinScore)
	if cfg.Embedding.Instruction != "" {
		semantic.WithQueryEmbedder(domain.NewInstructionEmbedder(chain.cached, cfg.Embedding.Instruction))
	}
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	switch cfg.Strategy {
	case config.StrategySemantic:
		return semantic, chain, nil
	case config.StrategyHybrid:
		return indexuc.NewHybrid(indexuc.Keyword{}, semantic), chain, nil
	default:
		return nil, nil, fmt.Errorf("unknown retrieval strategy %q", cfg.Strategy)
	}
}
