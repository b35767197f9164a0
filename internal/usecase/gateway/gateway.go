// Package gateway lazily resolves the answer provider and caches the outcome.
//
// Resolution runs once. A credential failure degrades to a provider that always
// answers answer.UnavailableMessage; any other failure is cached and returned as
// domain.ErrProviderInit. There is no transition back to Unresolved.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/citeqa/internal/domain"
	"github.com/kailas-cloud/citeqa/internal/domain/failure"
)

// Gateway owns the single provider resolution for one process (or one test).
type Gateway struct {
	resolve Resolver
	limiter *rate.Limiter
	logger  *zap.Logger
	onState []func(State)

	mu       sync.Mutex
	state    State
	done     chan struct{}
	provider Provider
	err      error
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRateLimit throttles the Ready provider to rps requests per second with the given burst.
// rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gateway) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger for the resolution outcome.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithStateHook registers fn to run on every state transition.
// fn runs under the gateway lock and must not call back into the gateway.
func WithStateHook(fn func(State)) Option {
	return func(g *Gateway) {
		if fn != nil {
			g.onState = append(g.onState, fn)
		}
	}
}

// New creates an unresolved gateway.
func New(resolve Resolver, opts ...Option) *Gateway {
	g := &Gateway{resolve: resolve, logger: zap.NewNop()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// State returns the current resolution state.
func (g *Gateway) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Provider returns the cached provider, resolving it on first use.
// Concurrent first callers share one resolution. Canceling ctx abandons the
// wait but not the resolution, whose outcome is still cached.
func (g *Gateway) Provider(ctx context.Context) (Provider, error) {
	g.mu.Lock()
	switch g.state {
	case Ready, Degraded, Failed:
		p, err := g.provider, g.err
		g.mu.Unlock()
		return p, err
	case Unresolved:
		g.done = make(chan struct{})
		g.setStateLocked(Resolving)
		go g.run(context.WithoutCancel(ctx), g.done)
	}
	done := g.done
	g.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for provider: %w", ctx.Err())
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.provider, g.err
}

func (g *Gateway) run(ctx context.Context, done chan struct{}) {
	p, state, err := g.attempt(ctx)

	g.mu.Lock()
	g.provider, g.err = p, err
	g.setStateLocked(state)
	g.mu.Unlock()
	close(done)

	switch state {
	case Ready:
		g.logger.Info("Answer provider ready")
	case Degraded:
		// logged by attempt, which still holds the credential error
	default:
		g.logger.Error("Answer provider init failed", zap.Error(err))
	}
}

// attempt runs the resolver, converting panics into init failures.
func (g *Gateway) attempt(ctx context.Context) (p Provider, state State, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, state, err = nil, Failed, fmt.Errorf("%w: resolver panic: %v", domain.ErrProviderInit, r)
		}
	}()

	if g.resolve == nil {
		return nil, Failed, fmt.Errorf("%w: no resolver configured", domain.ErrProviderInit)
	}

	gen, rerr := g.resolve(ctx)
	switch {
	case rerr == nil && gen == nil:
		return nil, Failed, fmt.Errorf("%w: resolver returned no generator", domain.ErrProviderInit)
	case rerr == nil:
		return newGrounded(gen, g.limiter), Ready, nil
	case isCredential(rerr):
		g.logger.Warn("Answer provider degraded: credentials missing", zap.Error(rerr))
		return Unavailable{}, Degraded, nil
	default:
		return nil, Failed, fmt.Errorf("%w: %w", domain.ErrProviderInit, rerr)
	}
}

func (g *Gateway) setStateLocked(s State) {
	g.state = s
	for _, fn := range g.onState {
		fn(s)
	}
}

func isCredential(err error) bool {
	return errors.Is(err, domain.ErrCredentialMissing) || failure.MarkerOf(err) == failure.Credential
}
