// Package observability holds the process-wide Prometheus collectors.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream WFS calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "operation"},
	)

	wfsRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfs_requests_total",
			Help: "WFS requests by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	wfsResponseBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wfs_response_bytes_total",
			Help: "Bytes received from the WFS by operation.",
		},
		[]string{"operation"},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Cache results by outcome.",
		},
		[]string{"outcome"},
	)

	cacheOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Duration of cache backend operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "result"},
	)
)

// Collectors returns the request collectors so a dedicated registry can
// expose them. app_build_info belongs to the metrics provider.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		upstreamLatencySeconds,
		wfsRequestsTotal,
		wfsResponseBytes,
		cacheResults,
		cacheOpDurationSeconds,
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream, operation string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream, operation).Observe(durationSeconds)
}

// IncWFSRequest counts one finished WFS call; outcome is "ok" or an error kind.
func IncWFSRequest(operation, outcome string) {
	wfsRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

func AddWFSResponseBytes(operation string, n int64) {
	if n <= 0 {
		return
	}
	wfsResponseBytes.WithLabelValues(operation).Add(float64(n))
}

func IncCacheHit() {
	cacheResults.WithLabelValues("hit").Inc()
}

func IncCacheMiss() {
	cacheResults.WithLabelValues("miss").Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpDurationSeconds.WithLabelValues(op, result).Observe(durationSeconds)
}
