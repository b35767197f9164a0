package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/domain"
	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	"github.com/kailas-cloud/citeqa/internal/domain/failure"
	"github.com/kailas-cloud/citeqa/internal/repository/memory"
	"github.com/kailas-cloud/citeqa/internal/usecase/decompose"
	documentuc "github.com/kailas-cloud/citeqa/internal/usecase/document"
	"github.com/kailas-cloud/citeqa/internal/usecase/gateway"
	healthuc "github.com/kailas-cloud/citeqa/internal/usecase/health"
	indexuc "github.com/kailas-cloud/citeqa/internal/usecase/index"
	"github.com/kailas-cloud/citeqa/internal/usecase/qa"
	"github.com/kailas-cloud/citeqa/internal/usecase/retry"
)

const photosynthesis = "Intro: photosynthesis uses light"

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(context.Context, answer.Prompt) (string, error) {
	return f.text, f.err
}

type testEnv struct {
	handler http.Handler
	gateway *gateway.Gateway
}

func newTestEnv(t *testing.T, resolve gateway.Resolver, opts ...Option) testEnv {
	t.Helper()

	repo := memory.New()
	docs := documentuc.New(repo, decompose.New(), zap.NewNop())
	idx := indexuc.New(repo, indexuc.Keyword{})
	gw := gateway.New(resolve)
	pipeline := qa.New(idx, gw, qa.WithRetry(
		retry.WithSleep(func(context.Context, time.Duration) error { return nil }),
	))
	health := healthuc.New(repo, gw, nil)

	srv := NewServer(docs, idx, pipeline, health, zap.NewNop(), opts...)
	r := chi.NewRouter()
	srv.Routes(r)
	return testEnv{handler: r, gateway: gw}
}

func generatorResolver(g gateway.Generator) gateway.Resolver {
	return func(context.Context) (gateway.Generator, error) { return g, nil }
}

func (e testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func (e testEnv) ingest(t *testing.T, id, text string) {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/documents", map[string]string{"id": id, "text": text})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestIngestAndAnswer_HighConfidence(t *testing.T) {
	env := newTestEnv(t, generatorResolver(&fakeGenerator{text: "Photosynthesis uses light [1]."}))

	rr := env.do(t, http.MethodPost, "/documents", map[string]string{"id": "bio", "text": photosynthesis})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/documents/bio", rr.Header().Get("Location"))
	ing := decodeBody[ingestResponse](t, rr)
	assert.True(t, ing.Success)
	assert.Equal(t, "bio", ing.DocumentID)
	assert.Positive(t, ing.Chunks)

	rr = env.do(t, http.MethodPost, "/answers", map[string]any{
		"document_ids": []string{"bio"},
		"question":     "What does photosynthesis use?",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decodeBody[answerResponse](t, rr)
	assert.True(t, resp.Success)
	assert.Equal(t, "Photosynthesis uses light [1].", resp.Answer)
	assert.Equal(t, string(answer.High), resp.Confidence)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, 1, resp.Sources[0].ID)
	assert.Contains(t, resp.Sources[0].Content, "photosynthesis uses light")
	assert.Equal(t, "ready", env.gateway.State().String())
}

func TestIngest_GeneratedIDAndReplace(t *testing.T) {
	env := newTestEnv(t, generatorResolver(&fakeGenerator{text: "x"}))

	rr := env.do(t, http.MethodPost, "/documents", map[string]string{"text": "Some text."})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotEmpty(t, decodeBody[ingestResponse](t, rr).DocumentID)

	env.ingest(t, "doc", "First version.")
	rr = env.do(t, http.MethodPost, "/documents", map[string]string{"id": "doc", "text": "Second version."})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeBody[ingestResponse](t, rr).Replaced)
}

func TestIngest_BadRequests(t *testing.T) {
	env := newTestEnv(t, generatorResolver(&fakeGenerator{text: "x"}))

	tests := []struct {
		name string
		body any
		code string
	}{
		{"invalid json", "{", codeBadRequest},
		{"missing text", map[string]string{"id": "a"}, codeValidationFailed},
		{"invalid id", map[string]string{"id": "has space", "text": "t"}, codeValidationFailed},
		{"binary text", map[string]string{"id": "bin", "text": "\x00\x01\x02\x03\x00\x00\x01\x02"}, codeValidationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/documents", tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			resp := decodeBody[errorResponse](t, rr)
			assert.False(t, resp.Success)
			assert.Equal(t, tc.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestIngest_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, generatorResolver(&fakeGenerator{text: "x"}), WithMaxBodyBytes(64))

	rr := env.do(t, http.MethodPost, "/documents", map[string]string{"text": strings.Repeat("a", 200)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestIndexReads(t *testing.T) {
	env := newTestEnv(t, generatorResolver(&fakeGenerator{text: "x"}))
	env.ingest(t, "bio", photosynthesis)

	rr := env.do(t, http.MethodGet, "/documents/bio/text", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, photosynthesis, decodeBody[textResponse](t, rr).Text)

	rr = env.do(t, http.MethodGet, "/documents/bio/structure", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	structure := decodeBody[listResponse[map[string]any]](t, rr)
	assert.Equal(t, "bio", structure.DocumentID)
	require.Positive(t, structure.Total)
	assert.EqualValues(t, 0, structure.Items[0]["order"])

	rr = env.do(t, http.MethodGet, "/documents/bio/chunks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Positive(t, decodeBody[listResponse[chunkView]](t, rr).Total)

	rr = env.do(t, http.MethodGet, "/documents/bio/figures", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	figures := decodeBody[listResponse[map[string]any]](t, rr)
	assert.NotNil(t, figures.Items)

	rr = env.do(t, http.MethodGet, "/documents/bio/search?q=LIGHT", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	found := decodeBody[listResponse[chunkView]](t, rr)
	require.Equal(t, 1, found.Total)
	assert.Contains(t, found.Items[0].Content, "light")

	rr = env.do(t, http.MethodGet, "/documents/bio/search?q=chlorophyll", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decodeBody[listResponse[chunkView]](t, rr).Total)

	rr = env.do(t, http.MethodGet, "/documents/bio/search", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/documents/missing/structure", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decodeBody[listResponse[map[string]any]](t, rr).Total)
}

func TestListAndDelete(t *testing.T) {
	env := newTestEnv(t, generatorResolver(&fakeGenerator{text: "x"}))
	env.ingest(t, "b", "Beta text.")
	env.ingest(t, "a", "Alpha text.")

	rr := env.do(t, http.MethodGet, "/documents", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"a", "b"}, decodeBody[listResponse[string]](t, rr).Items)

	rr = env.do(t, http.MethodDelete, "/documents/a", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(t, http.MethodDelete, "/documents/a", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, codeNotFound, decodeBody[errorResponse](t, rr).Code)

	rr = env.do(t, http.MethodGet, "/documents/a/chunks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decodeBody[listResponse[chunkView]](t, rr).Total)
}

func TestAnswer_ZeroSourcesLowConfidence(t *testing.T) {
	env := newTestEnv(t, generatorResolver(&fakeGenerator{text: "Generally, plants need water."}))
	env.ingest(t, "bio", photosynthesis)

	rr := env.do(t, http.MethodPost, "/answers", map[string]any{
		"document_ids": []string{"bio"},
		"question":     "Who wrote Hamlet?",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeBody[answerResponse](t, rr)
	assert.True(t, resp.Success)
	assert.Equal(t, string(answer.Low), resp.Confidence)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
}

func TestAnswer_Degraded(t *testing.T) {
	env := newTestEnv(t, func(context.Context) (gateway.Generator, error) {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set: %w", domain.ErrCredentialMissing)
	})
	env.ingest(t, "bio", photosynthesis)

	rr := env.do(t, http.MethodPost, "/answers", map[string]any{
		"document_ids": []string{"bio"},
		"question":     "What does photosynthesis use?",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeBody[answerResponse](t, rr)
	assert.True(t, resp.Success)
	assert.True(t, resp.Degraded)
	assert.Equal(t, answer.UnavailableMessage, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, string(answer.Low), resp.Confidence)

	rr = env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	health := decodeBody[healthResponse](t, rr)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "degraded", health.Gateway)
}

func TestAnswer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		resolve gateway.Resolver
		status  int
		code    string
		message string
	}{
		{
			name:    "generation failure",
			resolve: generatorResolver(&fakeGenerator{err: errors.New("model output blocked by safety filter")}),
			status:  http.StatusBadGateway,
			code:    codeGeneration,
			message: "safety filter",
		},
		{
			name: "retries exhausted",
			resolve: generatorResolver(&fakeGenerator{
				err: failure.New(errors.New("Too Many Requests"), http.StatusTooManyRequests),
			}),
			status:  http.StatusBadGateway,
			code:    codeGeneration,
			message: "Too Many Requests",
		},
		{
			name: "provider init",
			resolve: func(context.Context) (gateway.Generator, error) {
				return nil, errors.New("unsupported model family")
			},
			status:  http.StatusServiceUnavailable,
			code:    codeProviderInit,
			message: "unsupported model family",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.resolve)
			env.ingest(t, "bio", photosynthesis)

			rr := env.do(t, http.MethodPost, "/answers", map[string]any{
				"document_ids": []string{"bio"},
				"question":     "What does photosynthesis use?",
			})
			require.Equal(t, tc.status, rr.Code, rr.Body.String())

			resp := decodeBody[errorResponse](t, rr)
			assert.False(t, resp.Success)
			assert.Equal(t, tc.code, resp.Code)
			assert.Contains(t, resp.Error, tc.message)
		})
	}
}

func TestAnswer_Validation(t *testing.T) {
	env := newTestEnv(t, generatorResolver(&fakeGenerator{text: "x"}))

	tests := []struct {
		name string
		body any
	}{
		{"missing question", map[string]any{"document_ids": []string{"a"}}},
		{"missing documents", map[string]any{"question": "q"}},
		{"empty document id", map[string]any{"document_ids": []string{""}, "question": "q"}},
		{"blank question", map[string]any{"document_ids": []string{"a"}, "question": "   "}},
		{"invalid document id", map[string]any{"document_ids": []string{"a b"}, "question": "q"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/answers", tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			resp := decodeBody[errorResponse](t, rr)
			assert.False(t, resp.Success)
			assert.Equal(t, codeValidationFailed, resp.Code)
		})
	}
}

func TestHealth_PendingBeforeFirstAnswer(t *testing.T) {
	env := newTestEnv(t, generatorResolver(&fakeGenerator{text: "x"}))

	rr := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[healthResponse](t, rr)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "unresolved", resp.Gateway)
	assert.Equal(t, string(healthuc.CheckPending), resp.Checks[healthuc.CheckGateway])
}

func TestNewRouter_AuthAndRequestID(t *testing.T) {
	repo := memory.New()
	gw := gateway.New(generatorResolver(&fakeGenerator{text: "x"}))
	idx := indexuc.New(repo, nil)
	srv := NewServer(
		documentuc.New(repo, decompose.New(), zap.NewNop()),
		idx,
		qa.New(idx, gw),
		healthuc.New(repo, gw, nil),
		zap.NewNop(),
	)
	h := NewRouter(srv, []string{"secret"})

	req := httptest.NewRequest(http.MethodGet, "/documents", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/documents", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/nope", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decodeBody[errorResponse](t, rr)
	assert.Equal(t, codeInternal, resp.Code)
}
