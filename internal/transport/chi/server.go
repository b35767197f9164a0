// Package chi exposes ingestion, concept index reads and question answering over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/domain"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
	"github.com/kailas-cloud/citeqa/internal/logger"
	healthuc "github.com/kailas-cloud/citeqa/internal/usecase/health"
)

const defaultMaxBodyBytes = 16 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	documents     Documents
	index         Index
	answers       Answerer
	health        HealthChecker
	logger        *zap.Logger
	validate      *validator.Validate
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// Option configures the Server.
type Option func(*Server)

// WithMaxBodyBytes caps request bodies (ingested text included).
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewServer creates an HTTP API server.
func NewServer(
	documents Documents,
	index Index,
	answers Answerer,
	health HealthChecker,
	log *zap.Logger,
	opts ...Option,
) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		documents:    documents,
		index:        index,
		answers:      answers,
		health:       health,
		logger:       log,
		validate:     newValidator(),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(s)
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDecomposition, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrProviderInit, http.StatusServiceUnavailable, codeProviderInit),
		sentinelHandler(domain.ErrGeneration, http.StatusBadGateway, codeGeneration),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbedding),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", s.IngestDocument)
		r.Get("/", s.ListDocuments)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.DeleteDocument)
			r.Get("/text", s.GetFullText)
			r.Get("/structure", s.GetStructure)
			r.Get("/figures", s.GetFigures)
			r.Get("/chunks", s.GetChunks)
			r.Get("/search", s.SearchDocument)
		})
	})

	r.Post("/answers", s.AnswerQuestion)
}

// IngestDocument handles POST /documents.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !s.decode(w, r, &req) {
		return
	}

	sum, err := s.documents.Ingest(r.Context(), req.ID, req.Text)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if sum.Replaced {
		status = http.StatusOK
	}
	w.Header().Set("Location", "/documents/"+sum.DocumentID)
	writeJSON(w, status, ingestResponse{
		Success:    true,
		DocumentID: sum.DocumentID,
		Sections:   sum.Sections,
		Figures:    sum.Figures,
		Chunks:     sum.Chunks,
		Replaced:   sum.Replaced,
	})
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ids, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse("", ids))
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetFullText handles GET /documents/{id}/text.
func (s *Server) GetFullText(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	text, err := s.index.FullText(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{DocumentID: id, Text: text})
}

// GetStructure handles GET /documents/{id}/structure.
func (s *Server) GetStructure(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	sections, err := s.index.Structure(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(id, sections))
}

// GetFigures handles GET /documents/{id}/figures.
func (s *Server) GetFigures(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	figures, err := s.index.Figures(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(id, figures))
}

// GetChunks handles GET /documents/{id}/chunks.
func (s *Server) GetChunks(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	chunks, err := s.index.Chunks(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(id, chunkViews(chunks)))
}

// SearchDocument handles GET /documents/{id}/search?q=.
func (s *Server) SearchDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "q is required")
		return
	}
	chunks, err := s.index.SearchByConcept(r.Context(), id, q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(id, chunkViews(chunks)))
}

// AnswerQuestion handles POST /answers.
func (s *Server) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !s.decode(w, r, &req) {
		return
	}

	a, err := s.answers.Answer(r.Context(), req.DocumentIDs, req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnswerResponse(a))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Gateway: report.GatewayState,
	})
}

func (s *Server) documentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := domdoc.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return "", false
	}
	return id, true
}

// decode reads a JSON body into dst and validates it. It writes the error response itself.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Success: false,
		Code:    code,
		Error:   message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The full error text is returned: generation failures carry the provider message.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
