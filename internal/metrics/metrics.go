package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "archmap"
)

var (
	sweepDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Count of API requests by route and status code.",
	}, []string{"method", "route", "code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "API request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Diagram Metrics
	DiagramReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "diagram_reads_total",
		Help:      "Count of diagram reads.",
	}, []string{"kind", "status"})

	DiagramBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "diagram_build_duration_seconds",
		Help:      "Time taken to resolve, build and reconcile a diagram.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	// Layout Metrics
	LayoutWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "layout_writes_total",
		Help:      "Count of layout writes by origin.",
	}, []string{"kind", "origin", "status"})

	// Sweep Metrics
	SweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Time taken for a housekeeping refresh to complete.",
		Buckets:   sweepDurationBuckets,
	}, []string{"scope"})

	SweepRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_removed_total",
		Help:      "Number of records removed or rewritten by housekeeping passes.",
	}, []string{"pass"})

	SweepPassFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_pass_failures_total",
		Help:      "Count of housekeeping passes that failed and were skipped.",
	}, []string{"pass"})

	// Cache Metrics
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Count of cache lookups by result.",
	}, []string{"result"})

	CacheInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_invalidations_total",
		Help:      "Count of cache topic invalidations.",
	}, []string{"topic"})
)
