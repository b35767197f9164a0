package decompose

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark/ast"
	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/domain/document"
	"github.com/kailas-cloud/citeqa/internal/logger"
)

// captionRegex matches caption lines such as "Figure 3: Leaf cross-section" or "Fig. 2. Setup".
var captionRegex = regexp.MustCompile(`(?m)^[ \t]*(?:Figure|Fig\.)[ \t]*(\d+[a-z]?)[.:)]?[ \t]*(.*)$`)

// figureExtractor finds figures in one representation of the text.
type figureExtractor struct {
	name string
	fn   func(documentID, raw string, root ast.Node, src []byte) ([]document.Figure, error)
}

var figureExtractors = []figureExtractor{
	{name: "captions", fn: captionFigures},
	{name: "images", fn: imageFigures},
}

// extractFigures runs every extractor. A failing extractor is logged and skipped;
// it never aborts decomposition.
func (d *Decomposer) extractFigures(
	ctx context.Context, documentID, raw string, root ast.Node, src []byte,
) []document.Figure {
	log := logger.FromContextOr(ctx, d.logger)

	var figures []document.Figure
	for _, ex := range figureExtractors {
		found, err := safeExtract(ex, documentID, raw, root, src)
		if err != nil {
			log.Debug("Figure extraction skipped",
				zap.String("document_id", documentID),
				zap.String("extractor", ex.name),
				zap.Error(err),
			)
			continue
		}
		figures = append(figures, found...)
	}

	sort.SliceStable(figures, func(i, j int) bool { return figures[i].Position < figures[j].Position })
	for i := range figures {
		figures[i].Page = pageAt(raw, figures[i].Position)
	}
	return uniqueIDs(figures)
}

// uniqueIDs suffixes repeated figure IDs with their occurrence ("figure-1-2"),
// since storage keys figures by (document, id).
func uniqueIDs(figures []document.Figure) []document.Figure {
	seen := make(map[string]int, len(figures))
	for i := range figures {
		id := figures[i].ID
		seen[id]++
		if n := seen[id]; n > 1 {
			figures[i].ID = fmt.Sprintf("%s-%d", id, n)
		}
	}
	return figures
}

func safeExtract(
	ex figureExtractor, documentID, raw string, root ast.Node, src []byte,
) (figs []document.Figure, err error) {
	defer func() {
		if r := recover(); r != nil {
			figs, err = nil, fmt.Errorf("extractor %s panicked: %v", ex.name, r)
		}
	}()
	return ex.fn(documentID, raw, root, src)
}

// captionFigures keeps the first line per label as the caption; later lines
// starting with the same label ("Figure 1 shows ...") are references to it.
func captionFigures(documentID, raw string, _ ast.Node, _ []byte) ([]document.Figure, error) {
	var out []document.Figure
	seen := make(map[string]struct{})
	for _, m := range captionRegex.FindAllStringSubmatchIndex(raw, -1) {
		label := raw[m[2]:m[3]]
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, document.Figure{
			DocumentID: documentID,
			ID:         "figure-" + label,
			Position:   m[0],
			Caption:    strings.TrimSpace(raw[m[0]:m[1]]),
		})
	}
	return out, nil
}

func imageFigures(documentID, _ string, root ast.Node, src []byte) ([]document.Figure, error) {
	var out []document.Figure
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		out = append(out, document.Figure{
			DocumentID: documentID,
			ID:         fmt.Sprintf("image-%d", len(out)+1),
			Position:   blockOffset(img),
			Caption:    strings.TrimSpace(nodeText(img, src)),
			Ref:        string(img.Destination),
		})
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk images: %w", err)
	}
	return out, nil
}

// blockOffset returns the start of the nearest enclosing block with source lines.
func blockOffset(n ast.Node) int {
	for p := n; p != nil; p = p.Parent() {
		if p.Type() == ast.TypeBlock && p.Lines().Len() > 0 {
			return p.Lines().At(0).Start
		}
	}
	return 0
}

// pageAt is the 1-based page of offset, counting form feeds before it.
func pageAt(raw string, offset int) int {
	if offset > len(raw) {
		offset = len(raw)
	}
	return strings.Count(raw[:offset], pageBreak) + 1
}
