package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Duplicate-filter collectors. Label values are drawn from fixed outcome and
// reason sets so cardinality stays bounded.
var (
	// DedupDecisions counts classifier decisions by outcome
	// (skipped|accepted|duplicate) and reason.
	DedupDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_decisions_total",
			Help: "Duplicate filter decisions by outcome and reason.",
		},
		[]string{"outcome", "reason"},
	)

	// DedupCandidates records how many fingerprints each classification scanned.
	DedupCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dedup_candidates_scanned",
			Help:    "Fingerprints compared per classified message.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// DedupClassifyDuration observes end-to-end handling time of one event.
	DedupClassifyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dedup_classify_duration_seconds",
			Help:    "Time spent handling one MessageCreated event.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DispatchRetries counts re-attempts of failed MessageCreated handlers.
	DispatchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_dispatch_retries_total",
			Help: "Retried MessageCreated deliveries.",
		},
	)

	// DispatchDropped counts events abandoned after the last attempt.
	DispatchDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_dispatch_dropped_total",
			Help: "MessageCreated deliveries abandoned after all attempts failed.",
		},
	)

	// FingerprintsPurged counts rows removed by retention.
	FingerprintsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_fingerprints_purged_total",
			Help: "Fingerprints deleted by the retention job.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		DedupDecisions,
		DedupCandidates,
		DedupClassifyDuration,
		DispatchRetries,
		DispatchDropped,
		FingerprintsPurged,
	)
}
