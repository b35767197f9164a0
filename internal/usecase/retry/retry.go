// Package retry runs fallible operations with adaptive backoff.
//
// Unhinted transient failures back off exponentially from the base delay.
// A provider "retry in N seconds" hint is honoured verbatim plus a one-second
// buffer and does not advance the exponential delay.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/citeqa/internal/domain/failure"
)

const (
	// DefaultMaxRetries is the retry budget on top of the first attempt.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the first unhinted wait.
	DefaultBaseDelay = 2 * time.Second
)

// Event describes one scheduled retry.
type Event struct {
	Attempt int // 1-based attempt that just failed
	Wait    time.Duration
	Marker  failure.Marker
	Hinted  bool
	Err     error
}

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type config struct {
	maxRetries int
	baseDelay  time.Duration
	sleep      SleepFunc
	onRetry    []func(Event)
}

// Option configures a single Do call.
type Option func(*config)

// WithMaxRetries sets the retry budget. Total attempts are n+1.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseDelay sets the first unhinted wait.
func WithBaseDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// WithSleep replaces the timer-based wait (tests).
func WithSleep(fn SleepFunc) Option {
	return func(c *config) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithOnRetry registers a hook called before each wait.
func WithOnRetry(fn func(Event)) Option {
	return func(c *config) {
		if fn != nil {
			c.onRetry = append(c.onRetry, fn)
		}
	}
}

// WithLogger logs each scheduled retry at Warn.
func WithLogger(l *zap.Logger) Option {
	return WithOnRetry(func(ev Event) {
		l.Warn("Retrying after transient failure",
			zap.Int("attempt", ev.Attempt),
			zap.Duration("wait", ev.Wait),
			zap.String("marker", ev.Marker.String()),
			zap.Bool("hinted", ev.Hinted),
			zap.Error(ev.Err),
		)
	})
}

// Policy is the configured retry budget, bound from config.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultPolicy returns 3 retries starting at 2s.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay}
}

// Options converts the policy into Do options.
func (p Policy) Options() []Option {
	return []Option{WithMaxRetries(p.MaxRetries), WithBaseDelay(p.BaseDelay)}
}

// Do runs op until it succeeds, fails with a non-retryable error, or the budget is spent.
// The final error is returned unmodified. Do holds no shared state and is safe to nest.
func Do[T any](ctx context.Context, op func(context.Context) (T, error), opts ...Option) (T, error) {
	cfg := config{
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		sleep:      Sleep,
	}
	for _, o := range opts {
		o(&cfg)
	}

	delay := cfg.baseDelay
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		fe := failure.From(err)
		if !fe.Marker.Retryable() || attempt > cfg.maxRetries {
			return v, err
		}

		wait := delay
		if fe.HasHint {
			wait = failure.HintedWait(fe.RetryAfter)
		} else {
			delay *= 2
		}

		ev := Event{Attempt: attempt, Wait: wait, Marker: fe.Marker, Hinted: fe.HasHint, Err: err}
		for _, fn := range cfg.onRetry {
			fn(ev)
		}

		if serr := cfg.sleep(ctx, wait); serr != nil {
			var zero T
			return zero, fmt.Errorf("retry wait aborted: %w", errors.Join(serr, err))
		}
	}
}

// Sleep waits for d or until ctx is done, without holding any lock.
func Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
