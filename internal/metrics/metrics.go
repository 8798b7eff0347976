// Package metrics exposes Prometheus collectors for the zone cache, the
// Strava fetcher and summary building.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zonetrends"

// Collector owns a private registry so tests and multiple commands never
// collide on the global default registry.
type Collector struct {
	registry *prometheus.Registry

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	fetches     *prometheus.CounterVec
	summaries   *prometheus.CounterVec
	duration    prometheus.Histogram
	activities  prometheus.Histogram
}

// New registers every collector on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "zone_cache",
			Name:      "hits_total",
			Help:      "Zone record lookups served from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "zone_cache",
			Name:      "misses_total",
			Help:      "Zone record lookups that required a fetch.",
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strava",
			Name:      "requests_total",
			Help:      "Strava API requests grouped by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "builds_total",
			Help:      "Zone summaries built, grouped by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "duration_seconds",
			Help:      "Time spent building a zone summary.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		activities: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "activities",
			Help:      "Activities considered per summary.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
	}
	c.registry.MustRegister(c.cacheHits, c.cacheMisses, c.fetches, c.summaries, c.duration, c.activities)
	return c
}

// CacheHit records a zone record served from the cache.
func (c *Collector) CacheHit() { c.cacheHits.Inc() }

// CacheMiss records a zone record that had to be fetched.
func (c *Collector) CacheMiss() { c.cacheMisses.Inc() }

// ObserveFetch records one Strava request.
func (c *Collector) ObserveFetch(endpoint string, err error) {
	c.fetches.WithLabelValues(endpoint, outcome(err)).Inc()
}

// ObserveSummary records one summary build.
func (c *Collector) ObserveSummary(elapsed time.Duration, activities int, err error) {
	c.summaries.WithLabelValues(outcome(err)).Inc()
	c.duration.Observe(elapsed.Seconds())
	if err == nil {
		c.activities.Observe(float64(activities))
	}
}

// Registry returns the registry backing the collectors.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
