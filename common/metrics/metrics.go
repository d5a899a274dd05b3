// Package metrics exposes the prometheus counters and histograms the
// service's protocol packages update as DKG and signing sessions progress.
// It mirrors the small, package-scoped metrics registration drand performs
// in its own metrics package, but scoped down to the handful of counters
// and the one histogram that matter for a signing service rather than a
// full beacon/HTTP stack.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// DKGSessionsTotal counts completed DKG instances by outcome.
	DKGSessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tbbs",
		Subsystem: "dkg",
		Name:      "sessions_total",
		Help:      "Number of Pedersen-VSS DKG instances, by outcome.",
	}, []string{"outcome"})

	// SigningSessionsTotal counts completed distributed signing sessions by outcome.
	SigningSessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tbbs",
		Subsystem: "signing",
		Name:      "sessions_total",
		Help:      "Number of distributed signing sessions, by outcome.",
	}, []string{"outcome"})

	// InversionRetriesTotal counts distributed-inversion retries caused by alpha == 0.
	InversionRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tbbs",
		Subsystem: "signing",
		Name:      "inversion_retries_total",
		Help:      "Number of times the distributed inversion gadget retried after alpha == 0.",
	})

	// ReconstructDuration observes wall-clock time spent Lagrange-combining shares.
	ReconstructDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tbbs",
		Subsystem: "reconstruct",
		Name:      "duration_seconds",
		Help:      "Time spent combining signature shares into a full BBS+ signature.",
		Buckets:   prometheus.DefBuckets,
	})
)

// MustRegister registers every metric declared here against reg. Call once
// at process start; tests that don't care about metrics can skip it since
// the collectors work unregistered too.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(DKGSessionsTotal, SigningSessionsTotal, InversionRetriesTotal, ReconstructDuration)
}
