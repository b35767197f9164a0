package qa

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/citeqa/internal/domain/answer"
)

var (
	citationRegex = regexp.MustCompile(`\[\d+(?:\s*,\s*\d+)*\]`)
	clauseSplit   = regexp.MustCompile(`[.!?;:\n]+`)
)

// Score classifies how well text is supported by sources.
//
// A clause is non-trivial when it has at least one key term, and supported when
// a single source covers at least half of its terms.
//   - high: every non-trivial clause is supported
//   - medium: some answer term appears in some source
//   - low: no sources, or no lexical overlap at all
//
// Adding sources or better-matching sources never lowers the level.
func Score(text string, sources []answer.Source) answer.Confidence {
	if len(sources) == 0 {
		return answer.Low
	}

	sourceTerms := make([]map[string]struct{}, len(sources))
	for i, s := range sources {
		sourceTerms[i] = stemSet(s.Content)
	}

	plain := citationRegex.ReplaceAllString(text, " ")
	nonTrivial, supported := 0, 0
	overlap := false

	for _, clause := range clauseSplit.Split(plain, -1) {
		terms := stemSet(strings.TrimSpace(clause))
		if len(terms) == 0 {
			continue
		}
		nonTrivial++

		best := 0
		for _, st := range sourceTerms {
			n := 0
			for t := range terms {
				if _, ok := st[t]; ok {
					n++
				}
			}
			if n > best {
				best = n
			}
		}
		if best > 0 {
			overlap = true
		}
		if 2*best >= len(terms) {
			supported++
		}
	}

	switch {
	case nonTrivial > 0 && supported == nonTrivial:
		return answer.High
	case overlap:
		return answer.Medium
	default:
		return answer.Low
	}
}
