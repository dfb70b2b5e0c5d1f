// Package metrics declares the Prometheus collectors exported by Kestrel.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kestrel_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	Matches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_matches_total",
			Help: "Total number of successful requirement matches by business type and complexity",
		},
		[]string{"business_type", "complexity"},
	)

	MatchedRequirements = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kestrel_matched_requirements",
			Help:    "Number of requirements returned per match",
			Buckets: []float64{0, 2, 4, 6, 8, 10, 15, 20, 30},
		},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_validation_failures_total",
			Help: "Total number of rejected business profiles by field",
		},
		[]string{"field"},
	)

	CatalogGaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_catalog_gaps_total",
			Help: "Mapping rule references to requirement ids missing from the catalog",
		},
		[]string{"rule_id"},
	)

	Reports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_reports_total",
			Help: "Total number of reports built by source",
		},
		[]string{"source"},
	)

	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kestrel_report_duration_seconds",
			Help:    "Duration of report generation in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"source"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kestrel_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	RateLimitErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kestrel_rate_limit_store_errors_total",
			Help: "Counter store failures; such requests are let through",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_events_published_total",
			Help: "Total number of bus publications by topic and result",
		},
		[]string{"topic", "result"},
	)
)

// ObserveHTTP records one finished HTTP request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
