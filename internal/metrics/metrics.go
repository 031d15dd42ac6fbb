// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cloudprice"

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec

	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
}

// New registers all collectors with reg and returns the handle. Tests pass
// a fresh registry so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		resolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_resolutions_total",
			Help:      "Price resolutions by provider and outcome.",
		}, []string{"provider", "outcome"}),
		resolutionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "price_resolution_duration_seconds",
			Help:      "Upstream price resolution latency by provider.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		cacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_cache_hits_total",
			Help:      "Price lookups served from the cache.",
		}),
		cacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_cache_misses_total",
			Help:      "Price lookups that had to hit the provider.",
		}),
	}
}

// RecordHTTPRequest counts one finished HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordResolution counts one upstream resolution attempt.
func (m *Metrics) RecordResolution(provider, outcome string, duration time.Duration) {
	m.resolutionsTotal.WithLabelValues(provider, outcome).Inc()
	m.resolutionDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordCacheHit counts a lookup served from cache.
func (m *Metrics) RecordCacheHit() { m.cacheHitsTotal.Inc() }

// RecordCacheMiss counts a lookup that went upstream.
func (m *Metrics) RecordCacheMiss() { m.cacheMissesTotal.Inc() }
