package metrics

import "github.com/prometheus/client_golang/prometheus"

// Breaker state values exported by CollaboratorBreakerState.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// Collaborator guard metrics. Label "collaborator" is one of the domain.Collaborator* names.
var (
	CollaboratorCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_calls_total",
			Help:      "Calls to external collaborators by outcome",
		},
		[]string{"collaborator", "operation", "status"}, // status: ok / error / timeout / rejected
	)

	CollaboratorCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaborator_call_duration_seconds",
			Help:      "Collaborator call duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"collaborator", "operation"},
	)

	CollaboratorBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collaborator_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"collaborator"},
	)
)
