// Package metrics provides Prometheus metrics for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the service metrics and their registry. Each collector
// carries its own registry so tests can create as many as they need.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	synthesisDuration   prometheus.Histogram
	synthesisFailures   prometheus.Counter
	accentFallbacks     prometheus.Counter
}

// NewCollector creates a collector with the given metric namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		synthesisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "synthesis_duration_seconds",
				Help:      "Wall time of one model inference",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		synthesisFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "synthesis_failures_total",
				Help:      "Total number of failed synthesis runs",
			},
		),
		accentFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accent_fallbacks_total",
				Help:      "Requests synthesized with unaccented text after an accentizer failure",
			},
		),
	}
}

// Handler returns the /metrics HTTP handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one served HTTP request.
func (c *Collector) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveSynthesis records one model inference.
func (c *Collector) ObserveSynthesis(duration time.Duration, err error) {
	if err != nil {
		c.synthesisFailures.Inc()

		return
	}

	c.synthesisDuration.Observe(duration.Seconds())
}

// ObserveAccentFallback records a passthrough after an accentizer failure.
func (c *Collector) ObserveAccentFallback() {
	c.accentFallbacks.Inc()
}
