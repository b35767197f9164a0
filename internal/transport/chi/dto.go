package chi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// Error codes returned in the "code" field.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnauthorized     = "unauthorized"
	codeNotFound         = "document_not_found"
	codeProviderInit     = "provider_unavailable"
	codeGeneration       = "generation_failed"
	codeEmbedding        = "embedding_provider_error"
	codeInternal         = "internal_error"
)

type ingestRequest struct {
	ID   string `json:"id" validate:"omitempty,max=256"`
	Text string `json:"text" validate:"required"`
}

type ingestResponse struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"document_id"`
	Sections   int    `json:"sections"`
	Figures    int    `json:"figures"`
	Chunks     int    `json:"chunks"`
	Replaced   bool   `json:"replaced"`
}

type answerRequest struct {
	DocumentIDs []string `json:"document_ids" validate:"required,min=1,max=50,dive,required,max=256"`
	Question    string   `json:"question" validate:"required,max=4000"`
}

// answerResponse is the caller-facing result shape. Failure paths use errorResponse.
type answerResponse struct {
	Success    bool            `json:"success"`
	Answer     string          `json:"answer"`
	Sources    []answer.Source `json:"sources"`
	Confidence string          `json:"confidence"`
	Degraded   bool            `json:"degraded,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

type textResponse struct {
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
}

type listResponse[T any] struct {
	DocumentID string `json:"document_id,omitempty"`
	Items      []T    `json:"items"`
	Total      int    `json:"total"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Gateway string            `json:"gateway,omitempty"`
}

func newListResponse[T any](documentID string, items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{DocumentID: documentID, Items: items, Total: len(items)}
}

func toAnswerResponse(a answer.Answer) answerResponse {
	sources := a.Sources
	if sources == nil {
		sources = []answer.Source{}
	}
	return answerResponse{
		Success:    true,
		Answer:     a.Text,
		Sources:    sources,
		Confidence: string(a.Confidence),
		Degraded:   a.Degraded,
	}
}

// newValidator reports JSON field names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validationMessage flattens validator errors into one client-facing line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "min", "max":
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// chunkView is the wire shape of a chunk; the document id lives on the envelope.
type chunkView struct {
	ID           string `json:"id"`
	Index        int    `json:"index"`
	SectionOrder int    `json:"section_order"`
	Content      string `json:"content"`
}

func chunkViews(chunks []domdoc.Chunk) []chunkView {
	out := make([]chunkView, len(chunks))
	for i, c := range chunks {
		out[i] = chunkView{ID: c.ID, Index: c.Index, SectionOrder: c.SectionOrder, Content: c.Content}
	}
	return out
}
