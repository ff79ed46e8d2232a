// Package metrics provides the centralized Prometheus metrics registry
// for the qualification tracker.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	StandingsFetchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "qualprob",
		Name:      "standings_fetches_total",
		Help:      "Total number of standings fetches attempted",
	})
	StandingsFetchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "qualprob",
		Name:      "standings_fetch_failures_total",
		Help:      "Total number of standings fetches that failed after retries",
	})
	DedupSkipsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "qualprob",
		Name:      "dedup_skips_total",
		Help:      "Total number of runs skipped because an identical input was already processed",
	})
	StaleRunsSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "qualprob",
		Name:      "stale_runs_swept_total",
		Help:      "Total number of abandoned runs marked failed by the sweeper",
	})
)

// Gauge metrics
var (
	LookupTableEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "qualprob",
		Name:      "lookup_table_entries",
		Help:      "Number of entries in the historical probability lookup table",
	})
	TrackedTeams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "qualprob",
		Name:      "tracked_teams",
		Help:      "Number of teams with a current slot probability",
	})
)

// Histogram metrics
var (
	StandingsFetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "qualprob",
		Name:      "standings_fetch_latency_seconds",
		Help:      "Latency of per-confederation standings fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(StandingsFetchesTotal)
		registry.MustRegister(StandingsFetchFailuresTotal)
		registry.MustRegister(DedupSkipsTotal)
		registry.MustRegister(StaleRunsSweptTotal)

		// Register gauge metrics
		registry.MustRegister(LookupTableEntries)
		registry.MustRegister(TrackedTeams)

		// Register histogram metrics
		registry.MustRegister(StandingsFetchLatency)

		// Register pipeline metrics
		registry.MustRegister(RunsTotal)
		registry.MustRegister(RunDurationSeconds)
		registry.MustRegister(RowsTotal)
		registry.MustRegister(LookupMatchesTotal)
		registry.MustRegister(BlendedProbability)
		registry.MustRegister(QualifiedTeams)

		// Register API metrics
		registry.MustRegister(HTTPRequestsTotal)
		registry.MustRegister(HTTPRequestDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordStandingsFetch records one completed standings fetch.
func RecordStandingsFetch(durationSeconds float64) {
	StandingsFetchesTotal.Inc()
	StandingsFetchLatency.Observe(durationSeconds)
}

// RecordStandingsFetchFailure records a fetch that exhausted its retries.
func RecordStandingsFetchFailure() {
	StandingsFetchesTotal.Inc()
	StandingsFetchFailuresTotal.Inc()
}

// RecordDedupSkip records a run skipped by input-hash deduplication.
func RecordDedupSkip() {
	DedupSkipsTotal.Inc()
}

// RecordStaleRunsSwept records abandoned runs marked failed.
func RecordStaleRunsSwept(count int) {
	StaleRunsSweptTotal.Add(float64(count))
}

// UpdateLookupTableEntries updates the lookup table size gauge.
func UpdateLookupTableEntries(count float64) {
	LookupTableEntries.Set(count)
}

// UpdateTrackedTeams updates the tracked teams gauge.
func UpdateTrackedTeams(count float64) {
	TrackedTeams.Set(count)
}
