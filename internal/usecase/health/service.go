package health

import (
	"context"

	"github.com/kailas-cloud/citeqa/internal/usecase/gateway"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure: answers are still served.
	Degraded Status = "degraded"
	// Unhealthy indicates storage is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDegraded indicates a component running on its fallback.
	CheckDegraded CheckResult = "degraded"
	// CheckPending indicates a lazily initialized component not resolved yet.
	CheckPending CheckResult = "pending"
)

// Check names.
const (
	CheckStorage   = "storage"
	CheckEmbedding = "embedding"
	CheckGateway   = "generation"
)

// Report aggregates health check results.
type Report struct {
	Status       Status
	Checks       map[string]CheckResult
	GatewayState string
}

// Service coordinates health checks.
type Service struct {
	storage   StoragePinger
	gateway   GatewayStater
	embedding EmbeddingChecker
}

// New creates a Service. gw and embedding can be nil.
func New(storage StoragePinger, gw GatewayStater, embedding EmbeddingChecker) *Service {
	return &Service{storage: storage, gateway: gw, embedding: embedding}
}

// Check runs health checks against all components. It never triggers
// provider resolution: an unresolved gateway reports pending.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	r := Report{Status: Healthy, Checks: checks}

	if err := s.storage.Ping(ctx); err != nil {
		checks[CheckStorage] = CheckError
		r.Status = Unhealthy
	} else {
		checks[CheckStorage] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks[CheckEmbedding] = CheckError
			r.degrade()
		} else {
			checks[CheckEmbedding] = CheckOK
		}
	}

	if s.gateway != nil {
		state := s.gateway.State()
		r.GatewayState = state.String()
		switch state {
		case gateway.Ready:
			checks[CheckGateway] = CheckOK
		case gateway.Degraded:
			checks[CheckGateway] = CheckDegraded
			r.degrade()
		case gateway.Failed:
			checks[CheckGateway] = CheckError
			r.degrade()
		default:
			checks[CheckGateway] = CheckPending
		}
	}

	return r
}

func (r *Report) degrade() {
	if r.Status == Healthy {
		r.Status = Degraded
	}
}
