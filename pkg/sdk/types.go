package citeqa

import (
	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
	documentuc "github.com/kailas-cloud/citeqa/internal/usecase/document"
)

// Confidence is how well an answer is supported by its sources.
type Confidence string

// Confidence levels.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// UnavailableMessage is the answer text when no provider is configured.
const UnavailableMessage = answer.UnavailableMessage

// IngestResult summarizes one ingested document.
type IngestResult struct {
	DocumentID string
	Sections   int
	Figures    int
	Chunks     int
	Replaced   bool
}

// Section is one titled part of a document, in document order.
type Section struct {
	Order   int
	Title   string
	Content string
}

// Figure is a captioned figure found in a document.
type Figure struct {
	ID       string
	Page     int
	Position int
	Caption  string
	Ref      string
}

// Chunk is a retrievable passage of a document.
type Chunk struct {
	ID           string
	Index        int
	SectionOrder int
	Content      string
}

// Source is a chunk cited by an answer as [ID].
type Source struct {
	ID         int
	DocumentID string
	ChunkID    string
	Content    string
}

// Answer is the result of a question.
type Answer struct {
	Text       string
	Sources    []Source
	Confidence Confidence
	// Degraded is set when no provider is configured and Text is UnavailableMessage.
	Degraded bool
}

func ingestFromDomain(s documentuc.Summary) IngestResult {
	return IngestResult{
		DocumentID: s.DocumentID,
		Sections:   s.Sections,
		Figures:    s.Figures,
		Chunks:     s.Chunks,
		Replaced:   s.Replaced,
	}
}

func sectionsFromDomain(in []domdoc.Section) []Section {
	out := make([]Section, len(in))
	for i, s := range in {
		out[i] = Section{Order: s.Order, Title: s.Title, Content: s.Content}
	}
	return out
}

func figuresFromDomain(in []domdoc.Figure) []Figure {
	out := make([]Figure, len(in))
	for i, f := range in {
		out[i] = Figure{ID: f.ID, Page: f.Page, Position: f.Position, Caption: f.Caption, Ref: f.Ref}
	}
	return out
}

func chunksFromDomain(in []domdoc.Chunk) []Chunk {
	out := make([]Chunk, len(in))
	for i, c := range in {
		out[i] = Chunk{ID: c.ID, Index: c.Index, SectionOrder: c.SectionOrder, Content: c.Content}
	}
	return out
}

func answerFromDomain(a answer.Answer) Answer {
	sources := make([]Source, len(a.Sources))
	for i, s := range a.Sources {
		sources[i] = Source{ID: s.ID, DocumentID: s.DocumentID, ChunkID: s.ChunkID, Content: s.Content}
	}
	return Answer{
		Text:       a.Text,
		Sources:    sources,
		Confidence: Confidence(a.Confidence),
		Degraded:   a.Degraded,
	}
}
