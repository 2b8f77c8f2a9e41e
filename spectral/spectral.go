// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package spectral caches per-truncation coefficient tables in shared
// memory so that every process of a job reuses the first one's work. The
// transform itself is supplied by the caller.
package spectral

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/2dChan/s2regrid/cache"
	"github.com/2dChan/s2regrid/logging"
	"github.com/2dChan/s2regrid/metrics"
	"github.com/2dChan/s2regrid/shm"
)

// Handle is a reference to a coefficient table. Handles returned by
// Cache.Get must be released.
type Handle struct {
	Key        string
	Truncation int

	seg  *shm.Segment
	refs atomic.Int32

	// pending is a reference taken for the caller that loaded the handle,
	// so that an eviction during the load cannot unmap it first.
	pending atomic.Bool
}

// Data returns the coefficients. The slice is valid until Release.
func (h *Handle) Data() []float64 {
	return h.seg.Float64s()
}

// Release drops the caller's reference.
func (h *Handle) Release() {
	h.unref()
}

// Close drops the cache's reference. It is called when the handle is
// evicted; the segment is unmapped once every caller has released it.
func (h *Handle) Close() error {
	h.unref()
	return nil
}

func (h *Handle) acquire() bool {
	for {
		n := h.refs.Load()
		if n == 0 {
			return false
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (h *Handle) unref() {
	if h.refs.Add(-1) == 0 {
		h.seg.Close()
	}
}

// Options configures a Cache.
type Options struct {
	Dir         string
	Registry    *cache.Registry
	Metrics     *metrics.Collector
	Logger      *slog.Logger
	LockRetries int
	LockWait    time.Duration
}

// Option is a function that modifies Options.
type Option func(*Options) error

// WithDir sets the shared-memory directory.
func WithDir(dir string) Option {
	return func(o *Options) error {
		o.Dir = dir
		return nil
	}
}

// WithRegistry registers the cache with r.
func WithRegistry(r *cache.Registry) Option {
	return func(o *Options) error {
		o.Registry = r
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Options) error {
		o.Metrics = c
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) error {
		o.Logger = l
		return nil
	}
}

// WithLock sets the retry budget for the segment creation lock.
func WithLock(retries int, wait time.Duration) Option {
	return func(o *Options) error {
		o.LockRetries, o.LockWait = retries, wait
		return nil
	}
}

// Cache holds coefficient handles keyed by name.
type Cache struct {
	handles *cache.Memory[*Handle]
	opts    Options
}

// NewCache returns an empty cache.
func NewCache(setters ...Option) (*Cache, error) {
	opts := Options{Dir: shm.DefaultDir, Logger: logging.Discard(), LockRetries: 600, LockWait: 100 * time.Millisecond}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	memOpts := []cache.MemoryOption{cache.WithMetrics(opts.Metrics), cache.WithLogger(opts.Logger)}
	if opts.Registry != nil {
		memOpts = append(memOpts, cache.WithRegistry(opts.Registry))
	}
	// Handles count only their mapped bytes, so memory overages leave them.
	handles, err := cache.NewMemory("spectral", func(h *Handle) cache.Footprint {
		return cache.Footprint{Shared: uint64(h.seg.Size())}
	}, memOpts...)
	if err != nil {
		return nil, err
	}
	return &Cache{handles: handles, opts: opts}, nil
}

// Get returns the handle for key with n coefficients, calling fill to
// compute them if no process has done so yet. The caller must Release the
// handle.
func (c *Cache) Get(key string, truncation, n int, fill func(coeffs []float64) error) (*Handle, error) {
	for {
		h, err := c.handles.GetOrCompute(key, func() (*Handle, error) {
			seg, err := shm.Open(c.opts.Dir, key, 8*n, func(p []byte) error {
				return fill(shm.Float64s(p))
			}, shm.WithLockRetries(c.opts.LockRetries), shm.WithLockWait(c.opts.LockWait), shm.WithLogger(c.opts.Logger))
			if err != nil {
				return nil, fmt.Errorf("spectral: %s: %w", key, err)
			}
			h := &Handle{Key: key, Truncation: truncation, seg: seg}
			h.refs.Store(2)
			h.pending.Store(true)
			c.opts.Logger.Debug("spectral_handle_loaded", "key", key, "created", seg.Created())
			return h, nil
		})
		if err != nil {
			return nil, err
		}
		if h.pending.CompareAndSwap(true, false) {
			return h, nil
		}
		// A handle evicted between lookup and acquire is retried.
		if h.acquire() {
			return h, nil
		}
	}
}

// Footprint returns the cache footprint.
func (c *Cache) Footprint() cache.Footprint {
	return c.handles.Footprint()
}

// Len returns the number of cached handles.
func (c *Cache) Len() int {
	return c.handles.Len()
}

// Purge evicts handles until target is released.
func (c *Cache) Purge(target cache.Footprint) cache.Footprint {
	return c.handles.Purge(target)
}

// Close drops every handle and deregisters the cache.
func (c *Cache) Close() {
	c.handles.Close()
}
