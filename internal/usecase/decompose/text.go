package decompose

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxGarbageRatio is the share of invalid or control runes above which input is binary.
const maxGarbageRatio = 0.1

var errNULByte = errors.New("input contains NUL bytes")

// checkText rejects input that cannot be read as text. Absence of structure is never an error.
func checkText(s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return errNULByte
	}

	var total, bad int
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		total++
		if r == utf8.RuneError && size == 1 {
			bad++
			continue
		}
		if unicode.IsControl(r) && !isTextControl(r) {
			bad++
		}
	}
	if total > 0 && float64(bad)/float64(total) > maxGarbageRatio {
		return fmt.Errorf("input looks binary: %d of %d runes are invalid or control characters", bad, total)
	}
	return nil
}

func isTextControl(r rune) bool {
	switch r {
	case '\n', '\r', '\t', '\f', '\v':
		return true
	default:
		return false
	}
}
