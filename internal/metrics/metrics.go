// Package metrics exposes geocoder activity as Prometheus metrics on a
// private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "geocoder"

// Collector records cache, provider and rate-limit activity. It implements
// geocode.Recorder.
type Collector struct {
	registry *prometheus.Registry

	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	cacheEntries     prometheus.Gauge
	providerRequests *prometheus.CounterVec
	providerDuration prometheus.Histogram
	rateLimitWait    prometheus.Histogram
}

// Option configures a Collector.
type Option func(*options)

type options struct {
	runtimeMetrics bool
}

// WithRuntimeMetrics registers the Go runtime and process collectors.
func WithRuntimeMetrics(enabled bool) Option {
	return func(o *options) {
		o.runtimeMetrics = enabled
	}
}

// New creates a Collector with its own registry.
func New(opts ...Option) *Collector {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()
	if o.runtimeMetrics {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	c := &Collector{
		registry: registry,
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Address lookups answered from the geocode cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Address lookups not found in the geocode cache or expired.",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries currently stored in the geocode cache, expired ones included.",
		}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Geocoding provider requests by result.",
		}, []string{"outcome"}),
		providerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of geocoding provider requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		rateLimitWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_limit_wait_seconds",
			Help:      "Time spent waiting for a provider rate-limit slot.",
			Buckets:   []float64{0, 0.1, 0.25, 0.5, 1, 1.1, 2, 5, 10, 30},
		}),
	}

	registry.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.cacheEntries,
		c.providerRequests,
		c.providerDuration,
		c.rateLimitWait,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// CacheHit counts a cache hit.
func (c *Collector) CacheHit() {
	c.cacheHits.Inc()
}

// CacheMiss counts a cache miss.
func (c *Collector) CacheMiss() {
	c.cacheMisses.Inc()
}

// RateLimitWait observes a rate-limit wait.
func (c *Collector) RateLimitWait(d time.Duration) {
	c.rateLimitWait.Observe(d.Seconds())
}

// ProviderRequest counts a provider request and observes its latency.
func (c *Collector) ProviderRequest(result string, d time.Duration) {
	c.providerRequests.WithLabelValues(result).Inc()
	c.providerDuration.Observe(d.Seconds())
}

// SetCacheEntries records the current cache size.
func (c *Collector) SetCacheEntries(n int) {
	c.cacheEntries.Set(float64(n))
}
