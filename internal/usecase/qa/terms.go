package qa

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTermRunes drops short function words the stopword list misses.
const minTermRunes = 3

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the and for are but not you all any can had her was one our out has him his how its
		may who did get got let say she too via yet what when where which while with
		whom whose why does doing done this that these those there their them then than
		they have having from into onto about above after again against because been
		before being below between both during each few further here more most other
		some such only own same should would could will shall just over under until very
		also your yours ours itself himself herself themselves myself ourselves
		tell explain describe please give show list`) {
		stopwords[w] = struct{}{}
	}
}

// keyTerms returns the lowercase content words of s, deduplicated in first-seen order.
func keyTerms(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTermRunes {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// stem strips one common English inflection so "uses" meets "use".
func stem(term string) string {
	for _, suffix := range []string{"ing", "ed", "es", "s"} {
		if strings.HasSuffix(term, suffix) {
			rest := strings.TrimSuffix(term, suffix)
			if utf8.RuneCountInString(rest) >= minTermRunes {
				return rest
			}
		}
	}
	return term
}

// stemSet returns the stemmed key terms of s.
func stemSet(s string) map[string]struct{} {
	terms := keyTerms(s)
	out := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		out[stem(t)] = struct{}{}
	}
	return out
}
