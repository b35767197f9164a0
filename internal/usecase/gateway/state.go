package gateway

// State is the gateway resolution state.
type State int

const (
	// Unresolved means no resolution has started.
	Unresolved State = iota
	// Resolving means one resolution is in flight; callers wait for it.
	Resolving
	// Ready means the real provider is cached.
	Ready
	// Degraded means credentials were missing; the unavailable provider is cached.
	Degraded
	// Failed means resolution failed for another reason; the error is cached.
	Failed
)

var stateNames = [...]string{
	Unresolved: "unresolved",
	Resolving:  "resolving",
	Ready:      "ready",
	Degraded:   "degraded",
	Failed:     "failed",
}

func (s State) String() string {
	if s < Unresolved || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s can no longer change.
func (s State) Terminal() bool {
	return s == Ready || s == Degraded || s == Failed
}

// States lists every state, for gauges that report one series per state.
func States() []State {
	return []State{Unresolved, Resolving, Ready, Degraded, Failed}
}
