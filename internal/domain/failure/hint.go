package failure

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

// retryHintRegex matches "Please retry in 5s", "retry after 5.5 seconds" and the
// RetryInfo detail `"retryDelay": "12s"` that Gemini embeds in 429 payloads.
var retryHintRegex = regexp.MustCompile(
	`(?i)(?:retry in|retry after|retrydelay"?\s*[:=]\s*"?)\s*(\d+(?:\.\d+)?)\s*(?:s\b|sec|seconds?\b)`,
)

// ParseRetryHint extracts a provider "retry after N seconds" hint from msg.
func ParseRetryHint(msg string) (time.Duration, bool) {
	m := retryHintRegex.FindStringSubmatch(msg)
	if len(m) < 2 {
		return 0, false
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// HintedWait is ceil((N+1)*1000) milliseconds: the hint plus a one-second buffer.
func HintedWait(hint time.Duration) time.Duration {
	ms := math.Ceil((hint.Seconds() + 1) * 1000)
	return time.Duration(ms) * time.Millisecond
}
