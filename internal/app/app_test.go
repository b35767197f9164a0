package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/citeqa/internal/config"
	"github.com/kailas-cloud/citeqa/internal/domain"
	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	"github.com/kailas-cloud/citeqa/internal/domain/failure"
	"github.com/kailas-cloud/citeqa/internal/usecase/gateway"
	healthuc "github.com/kailas-cloud/citeqa/internal/usecase/health"
)

type scriptedGenerator struct {
	errs  []error
	text  string
	calls int
}

func (g *scriptedGenerator) Generate(context.Context, answer.Prompt) (string, error) {
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		return "", err
	}
	return g.text, nil
}

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("http:\n  port: 8080\nstorage:\n  driver: memory\n"))
	require.NoError(t, err)
	return cfg
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestBuild_IngestAndAnswerWithRetries(t *testing.T) {
	gen := &scriptedGenerator{
		errs: []error{failure.New(errors.New("429 Too Many Requests"), 429)},
		text: "Photosynthesis uses light [1].",
	}
	a, err := Build(context.Background(), memoryConfig(t), nil,
		WithResolver(func(context.Context) (gateway.Generator, error) { return gen, nil }),
		WithSleep(noSleep),
	)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Documents.Ingest(context.Background(), "bio", "Intro: photosynthesis uses light")
	require.NoError(t, err)

	res, err := a.Answers.Answer(context.Background(), []string{"bio"}, "What does photosynthesis use?")
	require.NoError(t, err)
	assert.Equal(t, answer.High, res.Confidence)
	assert.Len(t, res.Sources, 1)
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, gateway.Ready, a.Gateway.State())

	report := a.Health.Check(context.Background())
	assert.Equal(t, healthuc.Healthy, report.Status)
}

func TestBuild_MissingKeyDegrades(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Generation.APIKey = ""

	for _, provider := range []string{config.ProviderGemini, config.ProviderOpenAI, config.ProviderAnthropic} {
		t.Run(provider, func(t *testing.T) {
			cfg.Generation.Provider = provider
			a, err := Build(context.Background(), cfg, nil, WithSleep(noSleep))
			require.NoError(t, err)
			defer a.Close()

			res, err := a.Answers.Answer(context.Background(), []string{"any"}, "Anything?")
			require.NoError(t, err)
			assert.True(t, res.Degraded)
			assert.Equal(t, answer.UnavailableMessage, res.Text)
			assert.Equal(t, gateway.Degraded, a.Gateway.State())
		})
	}
}

func TestBuild_UnknownProviderFails(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Generation.Provider = "mistral"

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Answers.Answer(context.Background(), []string{"any"}, "Anything?")
	require.ErrorIs(t, err, domain.ErrProviderInit)
	assert.Equal(t, gateway.Failed, a.Gateway.State())
}

func TestBuild_Strategies(t *testing.T) {
	tests := []struct {
		strategy string
		want     string
	}{
		{config.StrategyKeyword, "keyword"},
		{config.StrategySemantic, "semantic"},
		{config.StrategyHybrid, "hybrid"},
	}
	for _, tc := range tests {
		t.Run(tc.strategy, func(t *testing.T) {
			cfg := memoryConfig(t)
			cfg.Retrieval.Strategy = tc.strategy
			cfg.Retrieval.Embedding.APIKey = "sk-test"
			cfg.Retrieval.Embedding.Instruction = "query: "

			a, err := Build(context.Background(), cfg, nil)
			require.NoError(t, err)
			defer a.Close()
			assert.Equal(t, tc.want, a.Index.Strategy().Name())
		})
	}
}

func TestBuild_StorageErrors(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.Driver = "cassandra"
	_, err := Build(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "unknown storage driver")

	cfg = memoryConfig(t)
	cfg.Retrieval.Strategy = "fuzzy"
	_, err = Build(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "unknown retrieval strategy")
}

func TestBuild_SQLite(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Storage.Driver = config.DriverSQLite
	cfg.Storage.Path = t.TempDir() + "/citeqa.db"

	a, err := Build(context.Background(), cfg, nil,
		WithResolver(func(context.Context) (gateway.Generator, error) {
			return &scriptedGenerator{text: "ok"}, nil
		}),
	)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Documents.Ingest(context.Background(), "doc", "Alpha beta.")
	require.NoError(t, err)
	ids, err := a.Documents.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"doc"}, ids)
}
