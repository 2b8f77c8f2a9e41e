// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package cache

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/2dChan/s2regrid/logging"
	"github.com/2dChan/s2regrid/metrics"
)

// Purgeable is a cache that can release memory on request.
type Purgeable interface {
	Name() string
	Footprint() Footprint
	// Purge releases at least target bytes if it can and returns what it
	// released.
	Purge(target Footprint) Footprint
}

// Usage is the footprint of one registered cache.
type Usage struct {
	Name      string
	Footprint Footprint
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// RegistryOption is a function that modifies RegistryOptions.
type RegistryOption func(*RegistryOptions) error

// WithRegistryLogger sets the logger used to report purges.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(o *RegistryOptions) error {
		o.Logger = l
		return nil
	}
}

// WithRegistryMetrics sets the metrics collector.
func WithRegistryMetrics(c *metrics.Collector) RegistryOption {
	return func(o *RegistryOptions) error {
		o.Metrics = c
		return nil
	}
}

// Registry tracks every live cache of a process and keeps their combined
// footprint under a capacity. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	entries  []*Registration
	capacity Footprint

	// checkMu serialises purge passes.
	checkMu sync.Mutex
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewRegistry returns a registry enforcing capacity. A zero component of
// capacity means unlimited.
func NewRegistry(capacity Footprint, setters ...RegistryOption) (*Registry, error) {
	opts := &RegistryOptions{Logger: logging.Discard()}
	for _, set := range setters {
		if err := set(opts); err != nil {
			return nil, err
		}
	}
	return &Registry{capacity: capacity, logger: opts.Logger, metrics: opts.Metrics}, nil
}

// Registration ties a cache to a Registry until Close is called.
type Registration struct {
	r    *Registry
	c    Purgeable
	once sync.Once
}

// Register adds c to the registry. The returned guard must be closed when
// c is discarded.
func (r *Registry) Register(c Purgeable) *Registration {
	g := &Registration{r: r, c: c}
	r.mu.Lock()
	r.entries = append(r.entries, g)
	r.mu.Unlock()
	r.logger.Debug("cache_registered", "cache", c.Name())
	return g
}

// Close removes the cache from the registry. It is idempotent.
func (g *Registration) Close() {
	g.once.Do(func() {
		r := g.r
		r.mu.Lock()
		r.entries = slices.DeleteFunc(r.entries, func(e *Registration) bool { return e == g })
		r.mu.Unlock()
		r.logger.Debug("cache_deregistered", "cache", g.c.Name())
	})
}

// Capacity returns the configured capacity.
func (r *Registry) Capacity() Footprint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capacity
}

// SetCapacity replaces the capacity. It does not purge; call
// CheckTotalFootprint to enforce the new value.
func (r *Registry) SetCapacity(capacity Footprint) {
	r.mu.Lock()
	r.capacity = capacity
	r.mu.Unlock()
}

// Usage returns the footprint of every registered cache in registration order.
func (r *Registry) Usage() []Usage {
	caches := r.caches()
	usage := make([]Usage, len(caches))
	for i, c := range caches {
		usage[i] = Usage{Name: c.Name(), Footprint: c.Footprint()}
	}
	return usage
}

// TotalFootprint sums the footprints of all registered caches.
func (r *Registry) TotalFootprint() Footprint {
	return total(r.caches())
}

// CheckTotalFootprint purges caches while the total footprint exceeds the
// capacity. Each pass splits the excess of each kind of memory equally
// among the caches holding that kind and asks them to purge their share.
// It returns the total released and stops when under capacity or when a
// pass releases nothing.
func (r *Registry) CheckTotalFootprint() Footprint {
	r.checkMu.Lock()
	defer r.checkMu.Unlock()

	capacity := r.Capacity()
	active := r.caches()
	var released Footprint
	for {
		used := total(r.caches())
		excess := used.Excess(capacity)
		if excess.IsZero() {
			return released
		}
		if len(active) == 0 {
			r.logger.Warn("cache_footprint_over_capacity", "used", used, "capacity", capacity)
			return released
		}
		r.metrics.Purged()

		n := holding(active)
		var pass Footprint
		next := active[:0]
		for _, c := range active {
			share := n.share(excess, c.Footprint())
			if share.IsZero() {
				next = append(next, c)
				continue
			}
			freed := c.Purge(share)
			if freed.IsZero() {
				continue
			}
			pass = pass.Add(freed)
			next = append(next, c)
		}
		active = next
		released = released.Add(pass)
		r.logger.Debug("cache_purge_pass", "excess", excess, "released", pass)
		if pass.IsZero() {
			r.logger.Warn("cache_footprint_over_capacity", "used", used.Sub(pass), "capacity", capacity)
			return released
		}
	}
}

// holders counts the caches holding each kind of memory.
type holders struct {
	memory, shared int
}

func holding(caches []Purgeable) holders {
	var n holders
	for _, c := range caches {
		f := c.Footprint()
		if f.Memory > 0 {
			n.memory++
		}
		if f.Shared > 0 {
			n.shared++
		}
	}
	return n
}

// share is the part of excess a cache holding held is asked to purge.
func (n holders) share(excess, held Footprint) Footprint {
	var share Footprint
	if held.Memory > 0 {
		share.Memory = divCeil(excess.Memory, n.memory)
	}
	if held.Shared > 0 {
		share.Shared = divCeil(excess.Shared, n.shared)
	}
	return share
}

func (r *Registry) caches() []Purgeable {
	r.mu.Lock()
	defer r.mu.Unlock()
	caches := make([]Purgeable, len(r.entries))
	for i, e := range r.entries {
		caches[i] = e.c
	}
	return caches
}

func total(caches []Purgeable) Footprint {
	var sum Footprint
	for _, c := range caches {
		sum = sum.Add(c.Footprint())
	}
	return sum
}
