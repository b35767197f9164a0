// Package failure derives a closed failure marker from collaborator errors.
// Transports classify once at their boundary; the retry loop and the provider
// gateway match on the typed marker instead of re-reading messages.
package failure

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/citeqa/internal/domain"
)

// Marker is the closed set of failure classes understood by the core.
type Marker int

const (
	// None marks a failure with no recognised signal (not retryable).
	None Marker = iota
	// RateLimited marks HTTP 429 and "too many requests" responses.
	RateLimited
	// QuotaExhausted marks RESOURCE_EXHAUSTED and quota messages.
	QuotaExhausted
	// Network marks transient transport failures.
	Network
	// Timeout marks deadline and timeout failures.
	Timeout
	// Credential marks a missing or rejected API key.
	Credential
)

var markerNames = [...]string{
	None:           "none",
	RateLimited:    "rate_limited",
	QuotaExhausted: "quota_exhausted",
	Network:        "network",
	Timeout:        "timeout",
	Credential:     "credential",
}

func (m Marker) String() string {
	if m < None || int(m) >= len(markerNames) {
		return "unknown"
	}
	return markerNames[m]
}

// Retryable reports whether the marker belongs to the transient class.
func (m Marker) Retryable() bool {
	switch m {
	case RateLimited, QuotaExhausted, Network, Timeout:
		return true
	default:
		return false
	}
}

// Error is the typed boundary error every generation transport returns.
// Error() keeps the provider's original message.
type Error struct {
	Marker     Marker
	Status     int
	RetryAfter time.Duration
	HasHint    bool
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Marker.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is maps markers onto the domain taxonomy.
func (e *Error) Is(target error) bool {
	switch target {
	case domain.ErrRetryableTransient:
		return e.Marker.Retryable()
	case domain.ErrCredentialMissing:
		return e.Marker == Credential
	}
	return false
}

// New classifies err using the HTTP status (0 if unknown) and its message.
func New(err error, status int) *Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	e := &Error{Marker: classifyErr(err, status, msg), Status: status, Err: err}
	if e.Marker.Retryable() {
		e.RetryAfter, e.HasHint = ParseRetryHint(msg)
	}
	return e
}

// From returns err's boundary Error, classifying it if no transport has.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return New(err, 0)
}

// MarkerOf returns the failure marker carried by err.
func MarkerOf(err error) Marker {
	if err == nil {
		return None
	}
	return From(err).Marker
}

func classifyErr(err error, status int, msg string) Marker {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	if errors.Is(err, context.Canceled) {
		return None
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return Timeout
		}
		return Network
	}
	return Classify(status, msg)
}

// Classify maps a status code and message text onto a Marker.
// Credential signals win over transient ones. A bare retry hint counts as a rate limit.
func Classify(status int, msg string) Marker {
	lower := strings.ToLower(msg)
	if status == 0 {
		status = statusInText(msg)
	}

	switch {
	case status == 401 || status == 403 || containsAny(lower, credentialSignals):
		return Credential
	case containsAny(lower, quotaSignals):
		return QuotaExhausted
	case status == 429 || containsAny(lower, rateLimitSignals) || retryHintRegex.MatchString(msg):
		return RateLimited
	case status == 408 || status == 504 || containsAny(lower, timeoutSignals):
		return Timeout
	case status == 502 || status == 503 || status == 529 || containsAny(lower, networkSignals):
		return Network
	}
	return None
}

var (
	credentialSignals = []string{
		"api key", "api_key", "apikey", "invalid_api_key", "unauthorized", "unauthenticated",
		"permission denied", "permission_denied", "credential", "authentication",
	}
	quotaSignals     = []string{"resource_exhausted", "quota"}
	rateLimitSignals = []string{"rate limit", "rate_limit", "too many requests"}
	timeoutSignals   = []string{"timeout", "timed out", "deadline exceeded", "deadline_exceeded"}
	networkSignals   = []string{
		"econnreset", "econnrefused", "connection reset", "connection refused", "broken pipe",
		"network", "fetch failed", "unexpected eof", "no such host", "unavailable",
		"overloaded",
	}
)

// statusCodeRegex finds a transient HTTP status written as a whole number in
// error text ("Error 429:", "status 503"), so "chunk 4291" does not count.
var statusCodeRegex = regexp.MustCompile(`\b(408|429|502|503|504|529)\b`)

// statusInText returns the status named in msg, or 0.
func statusInText(msg string) int {
	m := statusCodeRegex.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
