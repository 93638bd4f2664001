package web

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatchedRoute = "unmatched"

// PrometheusMetrics exposes request and authentication counters on a private registry.
type PrometheusMetrics struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	authEvents      *prometheus.CounterVec
}

// NewPrometheusMetrics registers the service collectors under namespace.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	authEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Authentication events by outcome",
		},
		[]string{"event"},
	)
	registry.MustRegister(
		requestDuration,
		authEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &PrometheusMetrics{
		registry:        registry,
		requestDuration: requestDuration,
		authEvents:      authEvents,
	}
}

// Increment counts an authentication event such as auth.login.success.
func (metrics *PrometheusMetrics) Increment(event string) {
	metrics.authEvents.WithLabelValues(event).Inc()
}

// Middleware records the duration of every request by route template.
func (metrics *PrometheusMetrics) Middleware() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		start := time.Now()
		contextGin.Next()
		route := contextGin.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.requestDuration.
			WithLabelValues(contextGin.Request.Method, route, strconv.Itoa(contextGin.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (metrics *PrometheusMetrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}))
}

// Registry exposes the underlying registry.
func (metrics *PrometheusMetrics) Registry() *prometheus.Registry {
	return metrics.registry
}
