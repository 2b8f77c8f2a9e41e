// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package diskcache is a content-addressed on-disk cache safe for use by
// several processes at once. At most one process creates the entry for a
// key; the others wait for it and read the result.
package diskcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/2dChan/s2regrid/internal/lockfile"
	"github.com/2dChan/s2regrid/logging"
	"github.com/2dChan/s2regrid/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	extension          = ".wmat"
	defaultLockRetries = 600
	defaultLockWait    = 100 * time.Millisecond
)

var (
	// ErrLockTimeout is returned when the creation lock of an entry could
	// not be acquired within the configured retries.
	ErrLockTimeout = errors.New("diskcache: lock timeout")
	// ErrCorrupt reports an entry that failed validation. It is handled
	// internally by recreating the entry.
	ErrCorrupt = errors.New("diskcache: corrupt entry")
)

// Options configures a Cache.
type Options struct {
	LockRetries int
	LockWait    time.Duration
	Logger      *slog.Logger
	Metrics     *metrics.Collector
}

// Option is a function that modifies Options.
type Option func(*Options) error

// WithLockRetries sets how many times the creation lock is tried.
func WithLockRetries(n int) Option {
	return func(o *Options) error {
		if n < 1 {
			return fmt.Errorf("diskcache: lock retries %d must be at least 1", n)
		}
		o.LockRetries = n
		return nil
	}
}

// WithLockWait sets the pause between lock attempts.
func WithLockWait(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return fmt.Errorf("diskcache: lock wait %v must be positive", d)
		}
		o.LockWait = d
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

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Options) error {
		o.Metrics = c
		return nil
	}
}

// Cache maps keys to files under a root directory.
type Cache struct {
	root  string
	opts  Options
	group singleflight.Group
}

// New returns a cache rooted at root, creating the directory if needed.
func New(root string, setters ...Option) (*Cache, error) {
	opts := Options{
		LockRetries: defaultLockRetries,
		LockWait:    defaultLockWait,
		Logger:      logging.Discard(),
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("diskcache: %w", err)
	}
	return &Cache{root: root, opts: opts}, nil
}

// Root returns the cache directory.
func (c *Cache) Root() string {
	return c.root
}

// Path returns the file that holds key: <root>/<hh>/<sha256(key)>.wmat.
func (c *Cache) Path(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(c.root, name[:2], name+extension)
}

// GetOrCreate returns the path of the entry for key, calling create with a
// temporary path to produce it if it does not exist. check, if not nil,
// validates an existing entry; an entry failing with ErrCorrupt is removed
// and recreated under the creation lock. Concurrent callers in this
// process share one call.
func (c *Cache) GetOrCreate(key string, create func(tmpPath string) error, check func(path string) error) (string, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.getOrCreate(key, create, check)
	})
	if err != nil {
		c.opts.Metrics.DiskCache(metrics.OutcomeError)
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) getOrCreate(key string, create func(string) error, check func(string) error) (string, error) {
	path := c.Path(key)
	if ok, err := c.valid(path, check); err != nil {
		return "", err
	} else if ok {
		c.opts.Metrics.DiskCache(metrics.OutcomeHit)
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("diskcache: %w", err)
	}
	timer := c.opts.Metrics.LockTimer()
	lock, err := lockfile.Acquire(path+".lock", c.opts.LockRetries, c.opts.LockWait)
	waited := timer.ObserveDuration()
	if errors.Is(err, lockfile.ErrTimeout) {
		c.opts.Logger.Error("diskcache_lock_timeout", "path", path, "waited", waited)
		return "", fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}
	if err != nil {
		return "", fmt.Errorf("diskcache: %w", err)
	}
	defer lock.Release()

	// Another process may have created the entry while we waited.
	repaired := false
	if _, err := os.Stat(path); err == nil {
		ok, err := c.valid(path, check)
		if err != nil {
			return "", err
		}
		if ok {
			c.opts.Metrics.DiskCache(metrics.OutcomeHit)
			return path, nil
		}
		c.opts.Logger.Warn("diskcache_corrupt_entry", "path", path, "key", key)
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("diskcache: remove corrupt entry: %w", err)
		}
		repaired = true
	}

	if err := c.create(path, create); err != nil {
		return "", err
	}
	if repaired {
		c.opts.Metrics.DiskCache(metrics.OutcomeRepaired)
	} else {
		c.opts.Metrics.DiskCache(metrics.OutcomeCreated)
	}
	c.opts.Logger.Debug("diskcache_created", "path", path, "repaired", repaired)
	return path, nil
}

// valid reports whether path exists and passes check. Corrupt entries are
// reported as not valid; other errors are returned.
func (c *Cache) valid(path string, check func(string) error) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("diskcache: %w", err)
	}
	if check == nil {
		return true, nil
	}
	err := check(path)
	if errors.Is(err, ErrCorrupt) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) create(path string, create func(string) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("diskcache: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	if err := create(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("diskcache: %w", err)
	}
	return nil
}
