// Package metrics defines pipeline-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline-specific counter vectors
var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qualprob",
		Name:      "runs_total",
		Help:      "Total number of completed runs by job type and terminal status",
	}, []string{"job_type", "status"})

	RowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qualprob",
		Name:      "rows_total",
		Help:      "Total number of standings rows by job type and outcome",
	}, []string{"job_type", "outcome"})

	LookupMatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qualprob",
		Name:      "lookup_matches_total",
		Help:      "Total number of historical lookups by match level",
	}, []string{"level"})
)

// Pipeline-specific histogram vectors
var (
	RunDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qualprob",
		Name:      "run_duration_seconds",
		Help:      "Duration of batch runs in seconds",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	}, []string{"job_type"})

	BlendedProbability = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qualprob",
		Name:      "blended_probability",
		Help:      "Distribution of blended slot probabilities",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	}, []string{"confederation"})
)

// Pipeline-specific gauge vectors
var (
	QualifiedTeams = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qualprob",
		Name:      "qualified_teams",
		Help:      "Number of teams already qualified per confederation",
	}, []string{"confederation"})
)

// RecordRunCompleted records one finished run with its duration.
func RecordRunCompleted(jobType, status string, durationSeconds float64) {
	RunsTotal.WithLabelValues(jobType, status).Inc()
	RunDurationSeconds.WithLabelValues(jobType).Observe(durationSeconds)
}

// RecordRowOutcomes records processed and failed row counts for a run.
func RecordRowOutcomes(jobType string, processed, failed int) {
	RowsTotal.WithLabelValues(jobType, "processed").Add(float64(processed))
	RowsTotal.WithLabelValues(jobType, "failed").Add(float64(failed))
}

// RecordLookupMatch records which lookup level answered a blend query.
func RecordLookupMatch(level string) {
	LookupMatchesTotal.WithLabelValues(level).Inc()
}

// RecordBlendedProbability records one blended probability value.
func RecordBlendedProbability(confederation string, probability float64) {
	BlendedProbability.WithLabelValues(confederation).Observe(probability)
}

// UpdateQualifiedTeams updates the qualified team count for a confederation.
func UpdateQualifiedTeams(confederation string, count float64) {
	QualifiedTeams.WithLabelValues(confederation).Set(count)
}
