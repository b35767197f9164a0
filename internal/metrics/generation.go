package metrics

import "github.com/prometheus/client_golang/prometheus"

// Generation, retry and answer Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeqa",
			Name:      "generation_requests_total",
			Help:      "Total number of generation requests sent to the answer provider",
		},
		[]string{"provider", "model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "citeqa",
			Name:      "generation_request_duration_seconds",
			Help:      "Generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"provider", "model"},
	)

	GenerationRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeqa",
			Name:      "generation_retries_total",
			Help:      "Scheduled generation retries by failure marker",
		},
		[]string{"marker", "hinted"},
	)

	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citeqa",
			Name:      "answers_total",
			Help:      "Answers produced by confidence level",
		},
		[]string{"confidence"},
	)

	AnswerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "citeqa",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end question answering duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"}, // "success" / "degraded" / "error"
	)

	GatewayState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "citeqa",
			Name:      "gateway_state",
			Help:      "Provider gateway state (1 for the current state)",
		},
		[]string{"state"},
	)
)

var genMetricsRegistered bool

// RegisterGenerationMetrics registers Prometheus generation metrics. Must be called once from main.
func RegisterGenerationMetrics() {
	if genMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GenerationRetriesTotal)
	prometheus.MustRegister(AnswersTotal)
	prometheus.MustRegister(AnswerDuration)
	prometheus.MustRegister(GatewayState)
	genMetricsRegistered = true
}

// SetGatewayState marks current as the only active gateway state.
func SetGatewayState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		GatewayState.WithLabelValues(s).Set(v)
	}
}
