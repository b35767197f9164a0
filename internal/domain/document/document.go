package document

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// MaxIDLength is the maximum document identifier length.
const MaxIDLength = 256

// Section is a contiguous, ordered slice of the document text.
type Section struct {
	DocumentID string `json:"document_id"`
	Order      int    `json:"order"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

// Figure is reference metadata for an image or captioned figure.
type Figure struct {
	DocumentID string `json:"document_id"`
	ID         string `json:"id"`
	Page       int    `json:"page"`
	Position   int    `json:"position"` // byte offset in the raw text
	Caption    string `json:"caption"`
	Ref        string `json:"ref,omitempty"` // image pointer, if any
}

// Chunk is the retrieval unit. SectionOrder back-references its section.
type Chunk struct {
	DocumentID   string `json:"document_id"`
	ID           string `json:"id"`
	Index        int    `json:"index"`
	SectionOrder int    `json:"section_order"`
	Content      string `json:"content"`
}

// Document is the decomposed document aggregate (immutable value object).
type Document struct {
	id       string
	sections []Section
	figures  []Figure
	chunks   []Chunk
}

// ValidateID checks a document identifier: ^[a-zA-Z0-9_.-]+$, 1-256 chars.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("document ID is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("document ID too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("document ID must be alphanumeric with dots, underscores and hyphens")
	}
	return nil
}

// New validates and creates a Document.
// Section orders must be dense and 0-based; every unit must belong to id.
func New(id string, sections []Section, figures []Figure, chunks []Chunk) (Document, error) {
	if err := ValidateID(id); err != nil {
		return Document{}, err
	}

	sorted := SortSections(sections)
	for i, s := range sorted {
		if s.DocumentID != id {
			return Document{}, fmt.Errorf("section %d belongs to %q, not %q", s.Order, s.DocumentID, id)
		}
		if s.Order != i {
			return Document{}, fmt.Errorf("section order must be dense from 0: got %d at position %d", s.Order, i)
		}
	}
	for _, f := range figures {
		if f.DocumentID != id {
			return Document{}, fmt.Errorf("figure %q belongs to %q, not %q", f.ID, f.DocumentID, id)
		}
	}
	for _, c := range chunks {
		if c.DocumentID != id {
			return Document{}, fmt.Errorf("chunk %q belongs to %q, not %q", c.ID, c.DocumentID, id)
		}
	}

	return Document{
		id:       id,
		sections: sorted,
		figures:  append([]Figure(nil), figures...),
		chunks:   append([]Chunk(nil), chunks...),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id string, sections []Section, figures []Figure, chunks []Chunk) Document {
	return Document{id: id, sections: SortSections(sections), figures: figures, chunks: chunks}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Sections returns sections in reading order.
func (d *Document) Sections() []Section { return d.sections }

// Figures returns the extracted figures.
func (d *Document) Figures() []Figure { return d.figures }

// Chunks returns chunks in storage order.
func (d *Document) Chunks() []Chunk { return d.chunks }

// FullText concatenates section contents in reading order.
func (d *Document) FullText() string { return JoinSections(d.sections) }

// SortSections returns a copy of sections sorted by Order ascending.
func SortSections(sections []Section) []Section {
	out := append([]Section(nil), sections...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// JoinSections concatenates section contents in the given order.
// Section content carries its own heading and trailing whitespace, so the separator is empty
// and the result is byte-identical to the decomposed text.
func JoinSections(sections []Section) string {
	var b strings.Builder
	for _, s := range sections {
		b.WriteString(s.Content)
	}
	return b.String()
}
