package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{
		1, 5, 10, 25,
		50, 100, 250,
		500, 1000, 3000,
	}

	RouteDecisionTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_route_decisions_total",
			Help: "Routing decisions by outcome",
		},
		[]string{"decision"},
	)

	VerificationTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_verification_total",
			Help: "Tenant verification outcomes",
		},
		[]string{"outcome"},
	)

	VerificationLatency = promauto.With(registerer).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edge_verification_latency_ms",
			Help:    "Validation endpoint latency in milliseconds",
			Buckets: latencyBuckets,
		},
	)

	CacheHitsTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "edge_tenant_cache_hits_total",
			Help: "Tenant status cache hits",
		},
	)

	CacheMissesTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "edge_tenant_cache_misses_total",
			Help: "Tenant status cache misses",
		},
	)

	RequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_requests_total",
			Help: "Requests handled by the edge",
		},
		[]string{"method", "status"},
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edge_request_latency_ms",
			Help:    "End-to-end request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"method"},
	)
)

// StatusClass collapses a status code to its class ("2xx", "4xx", ...) to
// keep label cardinality down.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return fmt.Sprintf("%dxx", status/100)
}

// Initialize registers process collectors with the private registry.
func Initialize() {
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler serves the private registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
