// Package metrics defines HTTP API metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// API counter vectors
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qualprob",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})
)

// API histogram vectors
var (
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qualprob",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
