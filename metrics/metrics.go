// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package metrics exposes Prometheus instrumentation for caches and weight
// assembly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the regridding metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CacheEvictions *prometheus.CounterVec
	CacheBytes     *prometheus.GaugeVec

	AssembleDuration *prometheus.HistogramVec
	DiskCacheTotal   *prometheus.CounterVec
	LockWaitDuration prometheus.Histogram
	PurgePasses      prometheus.Counter
}

// NewCollector registers the metrics on reg under namespace.
func NewCollector(reg prometheus.Registerer, namespace string) *Collector {
	f := promauto.With(reg)
	return &Collector{
		CacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "In-memory cache hits by cache name",
			},
			[]string{"cache"},
		),
		CacheMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "In-memory cache misses by cache name",
			},
			[]string{"cache"},
		),
		CacheEvictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_evictions_total",
				Help:      "Entries evicted from in-memory caches",
			},
			[]string{"cache"},
		),
		CacheBytes: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_footprint_bytes",
				Help:      "Bytes held by each cache and kind of memory",
			},
			[]string{"cache", "kind"},
		),
		AssembleDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "assemble_duration_seconds",
				Help:      "Weight matrix assembly duration by method",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"method"},
		),
		DiskCacheTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "disk_cache_total",
				Help:      "Persistent cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		LockWaitDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lock_wait_seconds",
				Help:      "Time spent acquiring cross-process locks",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		PurgePasses: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "footprint_purges_total",
				Help:      "Purge passes run by the cache registry",
			},
		),
	}
}

// Disk cache outcomes.
const (
	OutcomeHit      = "hit"
	OutcomeCreated  = "created"
	OutcomeRepaired = "repaired"
	OutcomeError    = "error"
)

// Hit records a cache hit.
func (c *Collector) Hit(cache string) {
	if c != nil {
		c.CacheHits.WithLabelValues(cache).Inc()
	}
}

// Miss records a cache miss.
func (c *Collector) Miss(cache string) {
	if c != nil {
		c.CacheMisses.WithLabelValues(cache).Inc()
	}
}

// Evicted records n evicted entries.
func (c *Collector) Evicted(cache string, n int) {
	if c != nil && n > 0 {
		c.CacheEvictions.WithLabelValues(cache).Add(float64(n))
	}
}

// SetFootprint updates the footprint gauges of a cache.
func (c *Collector) SetFootprint(cache string, memory, shared uint64) {
	if c == nil {
		return
	}
	c.CacheBytes.WithLabelValues(cache, "memory").Set(float64(memory))
	c.CacheBytes.WithLabelValues(cache, "shared").Set(float64(shared))
}

// DiskCache records a persistent cache outcome.
func (c *Collector) DiskCache(outcome string) {
	if c != nil {
		c.DiskCacheTotal.WithLabelValues(outcome).Inc()
	}
}

// Purged records a registry purge pass.
func (c *Collector) Purged() {
	if c != nil {
		c.PurgePasses.Inc()
	}
}

// Timer measures an operation into a histogram.
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// AssembleTimer starts timing an assembly for method.
func (c *Collector) AssembleTimer(method string) *Timer {
	t := &Timer{start: time.Now()}
	if c != nil {
		t.observer = c.AssembleDuration.WithLabelValues(method)
	}
	return t
}

// LockTimer starts timing a lock acquisition.
func (c *Collector) LockTimer() *Timer {
	t := &Timer{start: time.Now()}
	if c != nil {
		t.observer = c.LockWaitDuration
	}
	return t
}

// ObserveDuration records the elapsed time since the timer was started.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(d.Seconds())
	}
	return d
}
