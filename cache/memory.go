// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package cache

import (
	"container/list"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/2dChan/s2regrid/logging"
	"github.com/2dChan/s2regrid/metrics"
	"golang.org/x/sync/singleflight"
)

// MemoryOptions configures a Memory cache.
type MemoryOptions struct {
	Registry *Registry
	Metrics  *metrics.Collector
	Logger   *slog.Logger
	// Capacity bounds this cache alone. Zero components are unlimited.
	Capacity Footprint
}

// MemoryOption is a function that modifies MemoryOptions.
type MemoryOption func(*MemoryOptions) error

// WithRegistry registers the cache with r.
func WithRegistry(r *Registry) MemoryOption {
	return func(o *MemoryOptions) error {
		o.Registry = r
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) MemoryOption {
	return func(o *MemoryOptions) error {
		o.Metrics = c
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) MemoryOption {
	return func(o *MemoryOptions) error {
		o.Logger = l
		return nil
	}
}

// WithCapacity bounds the footprint of the cache itself.
func WithCapacity(c Footprint) MemoryOption {
	return func(o *MemoryOptions) error {
		o.Capacity = c
		return nil
	}
}

type entry[T any] struct {
	key   string
	value T
	size  Footprint
}

// Memory is a named, bounded LRU cache. Concurrent GetOrCompute calls for
// the same key share a single computation; the cache lock is not held
// while computing. Evicted values implementing io.Closer are closed.
type Memory[T any] struct {
	name   string
	sizeOf func(T) Footprint

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	size    Footprint

	group    singleflight.Group
	capacity Footprint
	registry *Registry
	reg      *Registration
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewMemory returns an empty cache. sizeOf reports the footprint of a value.
func NewMemory[T any](name string, sizeOf func(T) Footprint, setters ...MemoryOption) (*Memory[T], error) {
	if sizeOf == nil {
		return nil, errors.New("cache: nil sizeOf")
	}
	opts := &MemoryOptions{Logger: logging.Discard()}
	for _, set := range setters {
		if err := set(opts); err != nil {
			return nil, err
		}
	}
	m := &Memory[T]{
		name:     name,
		sizeOf:   sizeOf,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		capacity: opts.Capacity,
		registry: opts.Registry,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With("cache", name),
	}
	if m.registry != nil {
		m.reg = m.registry.Register(m)
	}
	return m, nil
}

// Name returns the cache name.
func (m *Memory[T]) Name() string {
	return m.name
}

// Get returns the value cached under key and marks it recently used.
func (m *Memory[T]) Get(key string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.entries[key]; ok {
		m.lru.MoveToFront(el)
		return el.Value.(*entry[T]).value, true
	}
	var zero T
	return zero, false
}

// GetOrCompute returns the value cached under key, calling compute at most
// once across concurrent callers on a miss. Errors are not cached.
func (m *Memory[T]) GetOrCompute(key string, compute func() (T, error)) (T, error) {
	if v, ok := m.Get(key); ok {
		m.metrics.Hit(m.name)
		return v, nil
	}
	m.metrics.Miss(m.name)
	v, err, shared := m.group.Do(key, func() (any, error) {
		// A previous flight may have finished between Get and Do.
		if v, ok := m.Get(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return v, err
		}
		m.Insert(key, v)
		return v, nil
	})
	if shared {
		m.logger.Debug("cache_shared_compute", "key", key)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Insert stores v under key, replacing any previous value, then enforces
// the cache capacity and the registry capacity.
func (m *Memory[T]) Insert(key string, v T) {
	size := m.sizeOf(v)
	m.mu.Lock()
	var evicted []*entry[T]
	if el, ok := m.entries[key]; ok {
		old := el.Value.(*entry[T])
		m.size = m.size.Sub(old.size)
		if !sameValue(old.value, v) {
			evicted = append(evicted, &entry[T]{key: key, value: old.value, size: old.size})
		}
		old.value, old.size = v, size
		m.lru.MoveToFront(el)
	} else {
		m.entries[key] = m.lru.PushFront(&entry[T]{key: key, value: v, size: size})
	}
	m.size = m.size.Add(size)
	for m.size.Exceeds(m.capacity) && m.lru.Len() > 1 {
		evicted = append(evicted, m.removeOldest())
	}
	footprint := m.size
	m.mu.Unlock()

	m.closeEvicted(evicted)
	m.metrics.SetFootprint(m.name, footprint.Memory, footprint.Shared)
	if m.registry != nil {
		m.registry.CheckTotalFootprint()
	}
}

// Purge evicts least recently used entries until every kind of memory in
// target is released or the cache holds none of that kind. It returns the
// released footprint.
func (m *Memory[T]) Purge(target Footprint) Footprint {
	m.mu.Lock()
	var (
		released Footprint
		evicted  []*entry[T]
	)
	for m.lru.Len() > 0 && released.ShortOf(target, m.size) {
		e := m.removeOldest()
		released = released.Add(e.size)
		evicted = append(evicted, e)
	}
	footprint := m.size
	m.mu.Unlock()

	m.closeEvicted(evicted)
	m.metrics.SetFootprint(m.name, footprint.Memory, footprint.Shared)
	if len(evicted) > 0 {
		m.logger.Debug("cache_purged", "entries", len(evicted), "released", released)
	}
	return released
}

// Footprint returns the total footprint of the cached values.
func (m *Memory[T]) Footprint() Footprint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Len returns the number of cached values.
func (m *Memory[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Close empties the cache and removes it from its registry.
func (m *Memory[T]) Close() {
	if m.reg != nil {
		m.reg.Close()
	}
	m.mu.Lock()
	evicted := make([]*entry[T], 0, m.lru.Len())
	for m.lru.Len() > 0 {
		evicted = append(evicted, m.removeOldest())
	}
	m.mu.Unlock()
	m.closeEvicted(evicted)
}

// removeOldest must be called with mu held.
func (m *Memory[T]) removeOldest() *entry[T] {
	el := m.lru.Back()
	e := m.lru.Remove(el).(*entry[T])
	delete(m.entries, e.key)
	m.size = m.size.Sub(e.size)
	return e
}

func (m *Memory[T]) closeEvicted(evicted []*entry[T]) {
	if len(evicted) == 0 {
		return
	}
	m.metrics.Evicted(m.name, len(evicted))
	for _, e := range evicted {
		if c, ok := any(e.value).(io.Closer); ok {
			if err := c.Close(); err != nil {
				m.logger.Warn("cache_close_error", "key", e.key, "err", err)
			}
		}
	}
}

func sameValue[T any](a, b T) bool {
	ca, ok := any(a).(io.Closer)
	if !ok {
		return false
	}
	cb, ok := any(b).(io.Closer)
	return ok && ca == cb
}
