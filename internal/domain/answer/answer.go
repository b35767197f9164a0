package answer

import (
	"fmt"

	"github.com/kailas-cloud/citeqa/internal/domain/document"
)

// UnavailableMessage is the fixed answer of the degraded provider.
const UnavailableMessage = "AI features are not configured."

// Confidence classifies how well an answer is supported by its sources.
type Confidence string

const (
	// Low means no retrieved source lexically supports the answer.
	Low Confidence = "low"
	// Medium means some answer clauses are supported.
	Medium Confidence = "medium"
	// High means every non-trivial clause is supported.
	High Confidence = "high"
)

// Valid reports whether c is one of the three levels.
func (c Confidence) Valid() bool {
	switch c {
	case Low, Medium, High:
		return true
	default:
		return false
	}
}

// Rank orders levels for monotonicity checks: low < medium < high.
func (c Confidence) Rank() int {
	switch c {
	case Medium:
		return 1
	case High:
		return 2
	default:
		return 0
	}
}

// Source is a chunk selected as evidence for one answer. ID is 1-based and transient.
type Source struct {
	ID         int    `json:"id"`
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`
	Content    string `json:"content"`
}

// Generation is the raw output of an answer provider.
type Generation struct {
	Text     string
	Degraded bool // produced by the unavailable provider
}

// Answer is the pipeline result triple.
type Answer struct {
	Text       string     `json:"answer"`
	Sources    []Source   `json:"sources"`
	Confidence Confidence `json:"confidence"`
	Degraded   bool       `json:"degraded,omitempty"`
}

// NewSources numbers chunks from 1 in the given order, keeping at most limit.
// limit <= 0 keeps every chunk.
func NewSources(chunks []document.Chunk, limit int) []Source {
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	out := make([]Source, len(chunks))
	for i, c := range chunks {
		out[i] = Source{
			ID:         i + 1,
			DocumentID: c.DocumentID,
			ChunkID:    c.ID,
			Content:    c.Content,
		}
	}
	return out
}

// Label renders the citation marker used in prompts and answers.
func (s Source) Label() string { return fmt.Sprintf("[%d]", s.ID) }

// Prompt is the provider-neutral generation request.
type Prompt struct {
	System string
	User   string
}
