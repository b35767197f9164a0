package generation

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/domain"
	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	"github.com/kailas-cloud/citeqa/internal/domain/failure"
	"github.com/kailas-cloud/citeqa/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterGenerationMetrics()
	os.Exit(m.Run())
}

type mockGenerator struct {
	text  string
	err   error
	calls int
}

func (m *mockGenerator) Generate(_ context.Context, _ answer.Prompt) (string, error) {
	m.calls++
	return m.text, m.err
}

func TestInstrumentedGenerator_Success(t *testing.T) {
	inner := &mockGenerator{text: "Light [1]."}
	g := NewInstrumentedGenerator(inner, "test", "ok-model", zap.NewNop())

	before := testutil.ToFloat64(metrics.GenerationRequestsTotal.WithLabelValues("test", "ok-model", "success"))

	text, err := g.Generate(context.Background(), answer.Prompt{User: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Light [1]." {
		t.Errorf("text = %q", text)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}

	after := testutil.ToFloat64(metrics.GenerationRequestsTotal.WithLabelValues("test", "ok-model", "success"))
	if after-before != 1 {
		t.Errorf("success counter delta = %f, want 1", after-before)
	}
}

func TestInstrumentedGenerator_ErrorKeepsMarker(t *testing.T) {
	cause := failure.New(errors.New("429 Too Many Requests. Please retry in 3s"), 429)
	inner := &mockGenerator{err: cause}
	g := NewInstrumentedGenerator(inner, "test", "err-model", nil)

	_, err := g.Generate(context.Background(), answer.Prompt{User: "q"})
	if !errors.Is(err, domain.ErrRetryableTransient) {
		t.Fatalf("expected retryable error, got %v", err)
	}

	fe := failure.From(err)
	if fe != cause {
		t.Error("expected the transport error to pass through unchanged")
	}

	v := testutil.ToFloat64(metrics.GenerationRequestsTotal.WithLabelValues("test", "err-model", "rate_limited"))
	if v != 1 {
		t.Errorf("rate_limited counter = %f, want 1", v)
	}
}
