// Package metrics provides Prometheus metrics for the Matchmaker service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Matching run outcomes.
const (
	OutcomeMatched   = "matched"
	OutcomeFallback  = "fallback"
	OutcomeUnmatched = "unmatched"
	OutcomeError     = "error"
)

var (
	// MatchingRunsTotal tracks matching runs by outcome
	MatchingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchmaker",
			Subsystem: "matching",
			Name:      "runs_total",
			Help:      "Total number of matching runs by outcome",
		},
		[]string{"outcome"},
	)

	// MatchingCandidates tracks how many manufacturers survive each stage
	MatchingCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matchmaker",
			Subsystem: "matching",
			Name:      "candidates",
			Help:      "Number of manufacturers remaining after each matching stage",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"stage"},
	)

	// MatchingDuration tracks time spent in each stage
	MatchingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matchmaker",
			Subsystem: "matching",
			Name:      "duration_seconds",
			Help:      "Duration of matching stages in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"},
	)

	// CacheLookupsTotal tracks result cache lookups
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchmaker",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of match result cache lookups by result",
		},
		[]string{"result"},
	)

	// BroadcastsTotal tracks broadcast manifests built
	BroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "matchmaker",
			Subsystem: "matching",
			Name:      "broadcasts_total",
			Help:      "Total number of broadcast manifests built",
		},
	)
)

// ObserveStage records the candidate count and elapsed time of one stage.
func ObserveStage(stage string, candidates int, started time.Time) {
	MatchingCandidates.WithLabelValues(stage).Observe(float64(candidates))
	MatchingDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}
