// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cloudberry"

var registerOnce sync.Once

// Register registers the collaborator, embedding and search collectors with the default registry.
// HTTP collectors register themselves on import. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			CollaboratorCallsTotal,
			CollaboratorCallDuration,
			CollaboratorBreakerState,
			SearchQueriesTotal,
			SearchCandidates,
			IngestPointsTotal,
			PrunedPointsTotal,
		)
	})
}
