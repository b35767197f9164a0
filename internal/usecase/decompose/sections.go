package decompose

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark/ast"

	"github.com/kailas-cloud/citeqa/internal/domain/document"
)

const (
	introTitle    = "Introduction"
	documentTitle = "Document"
	pageBreak     = "\f"
)

type boundary struct {
	offset int
	title  string
}

// headingBoundaries returns the line-start offset and text of every markdown heading.
func headingBoundaries(root ast.Node, src []byte) []boundary {
	var out []boundary
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		start := h.Lines().At(0).Start
		lineStart := bytes.LastIndexByte(src[:start], '\n') + 1
		out = append(out, boundary{offset: lineStart, title: strings.TrimSpace(nodeText(h, src))})
		return ast.WalkSkipChildren, nil
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].offset < out[j].offset })
	dedup := out[:0]
	for _, b := range out {
		if len(dedup) > 0 && dedup[len(dedup)-1].offset == b.offset {
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// splitSections cuts raw at heading boundaries. Every section content is an exact slice of raw
// and the slices tile it, so joining contents in order reproduces raw byte for byte.
// Without headings it splits on form feeds, and failing that returns one section.
func splitSections(documentID, raw string, heads []boundary) []document.Section {
	if len(heads) == 0 {
		if strings.Contains(raw, pageBreak) {
			return splitPages(documentID, raw)
		}
		return []document.Section{{DocumentID: documentID, Order: 0, Title: documentTitle, Content: raw}}
	}

	if heads[0].offset > 0 {
		if strings.TrimSpace(raw[:heads[0].offset]) == "" {
			heads[0].offset = 0
		} else {
			heads = append([]boundary{{offset: 0, title: introTitle}}, heads...)
		}
	}

	sections := make([]document.Section, len(heads))
	for i, h := range heads {
		end := len(raw)
		if i+1 < len(heads) {
			end = heads[i+1].offset
		}
		title := h.title
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		sections[i] = document.Section{
			DocumentID: documentID,
			Order:      i,
			Title:      title,
			Content:    raw[h.offset:end],
		}
	}
	return sections
}

func splitPages(documentID, raw string) []document.Section {
	pages := strings.SplitAfter(raw, pageBreak)
	if len(pages) > 1 && pages[len(pages)-1] == "" {
		pages = pages[:len(pages)-1]
	}
	sections := make([]document.Section, len(pages))
	for i, p := range pages {
		sections[i] = document.Section{
			DocumentID: documentID,
			Order:      i,
			Title:      fmt.Sprintf("Page %d", i+1),
			Content:    p,
		}
	}
	return sections
}

// nodeText concatenates the text segments under n.
func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
