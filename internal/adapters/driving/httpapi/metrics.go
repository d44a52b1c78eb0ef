package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the HTTP surface. The
// registry is private to the server so tests can run side by side
// without collisions on the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	uploadsAccepted *prometheus.CounterVec
	uploadsRejected *prometheus.CounterVec
	searchesTotal   *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

// NewMetrics creates and registers the server's instruments.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evidentia",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)
	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "evidentia",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	m.uploadsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evidentia",
			Name:      "uploads_accepted_total",
			Help:      "Uploads accepted into the ingestion pipeline.",
		},
		[]string{"tenant"},
	)
	m.uploadsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evidentia",
			Name:      "uploads_rejected_total",
			Help:      "Uploads rejected at validation.",
		},
		[]string{"tenant"},
	)
	m.searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evidentia",
			Name:      "searches_total",
			Help:      "Search requests, by tenant and outcome.",
		},
		[]string{"tenant", "outcome"},
	)
	m.rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evidentia",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-tenant rate limiter.",
		},
		[]string{"tenant"},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.uploadsAccepted,
		m.uploadsRejected,
		m.searchesTotal,
		m.rateLimited,
	)
	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		m.requestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.requestDuration.WithLabelValues(
			c.Request.Method,
			path,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// searchOutcome labels a search request for the searches_total counter.
func searchOutcome(failed, degraded bool) string {
	switch {
	case failed:
		return "failed"
	case degraded:
		return "degraded"
	default:
		return "ok"
	}
}
