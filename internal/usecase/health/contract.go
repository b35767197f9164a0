package health

import (
	"context"

	"github.com/kailas-cloud/citeqa/internal/usecase/gateway"
)

// StoragePinger checks document storage availability.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// GatewayStater exposes the provider gateway state without resolving it.
type GatewayStater interface {
	State() gateway.State
}
