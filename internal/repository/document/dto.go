package document

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// Hash field names.
const (
	fieldSections  = "sections"
	fieldFigures   = "figures"
	fieldChunks    = "chunks"
	fieldIndexedAt = "indexed_at"
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
func buildHashFields(doc domdoc.Document, now time.Time) (map[string]string, error) {
	sections, err := json.Marshal(nonNil(doc.Sections()))
	if err != nil {
		return nil, err
	}
	figures, err := json.Marshal(nonNil(doc.Figures()))
	if err != nil {
		return nil, err
	}
	chunks, err := json.Marshal(nonNil(doc.Chunks()))
	if err != nil {
		return nil, err
	}
	return map[string]string{
		fieldSections:  string(sections),
		fieldFigures:   string(figures),
		fieldChunks:    string(chunks),
		fieldIndexedAt: strconv.FormatInt(now.UnixMilli(), 10),
	}, nil
}

func decodeField(raw string, dst any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func sortStrings(s []string) {
	sort.Strings(s)
}
