package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and ingest metrics.
var (
	SearchQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_slot_queries_total",
			Help:      "Nearest-neighbor queries issued per slot",
		},
		[]string{"slot"},
	)

	SearchCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_fused_candidates",
			Help:      "Distinct tickets after score fusion, before truncation",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	IngestPointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_points_total",
			Help:      "Points written by kind",
		},
		[]string{"kind"},
	)

	PrunedPointsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_pruned_points_total",
			Help:      "Stale image points removed after re-ingest",
		},
	)
)
