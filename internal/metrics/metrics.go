// Package metrics exposes prometheus collectors for the tentor server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tentor",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route and status class",
		},
		[]string{"route", "status"},
	)

	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tentor",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	blobCacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tentor",
			Name:      "blob_cache_ops_total",
			Help:      "Blob cache operations by result (hit, miss, put, error)",
		},
		[]string{"result"},
	)

	pageRenderFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tentor",
			Name:      "page_render_failures_total",
			Help:      "Pages that failed to render and were replaced by a placeholder",
		},
	)

	lockinSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tentor",
			Name:      "lockin_sessions_total",
			Help:      "Lock-in session transitions (started, expired, exited, replaced)",
		},
		[]string{"transition"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(httpReqs, httpLatency, blobCacheOps, pageRenderFailures, lockinSessions)
}

// Handler returns the http.Handler for /metrics.
func Handler() http.Handler { return promhttp.Handler() }

func ObserveHTTP(route, status string, dur time.Duration) {
	httpReqs.WithLabelValues(route, status).Inc()
	httpLatency.WithLabelValues(route).Observe(dur.Seconds())
}

func IncBlobCache(result string)      { blobCacheOps.WithLabelValues(result).Inc() }
func IncPageRenderFailure()           { pageRenderFailures.Inc() }
func IncLockinTransition(name string) { lockinSessions.WithLabelValues(name).Inc() }
