// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2regrid

import (
	"errors"
	"log/slog"

	"github.com/2dChan/s2regrid/cache"
	"github.com/2dChan/s2regrid/diskcache"
	"github.com/2dChan/s2regrid/metrics"
	"github.com/2dChan/s2regrid/weights"
)

// Options configures a Regridder.
type Options struct {
	// Registry bounds the in-memory matrix cache together with other caches.
	Registry *cache.Registry
	// MatrixCache is shared between regridders when set. Otherwise each
	// Regridder owns one.
	MatrixCache *cache.Memory[*weights.Matrix]
	DiskCache   *diskcache.WeightCache
	Missing     weights.MissingOptions
	Masks       *LandSeaMasks
	Logger      *slog.Logger
	Metrics     *metrics.Collector
}

// Option is a function that modifies Options.
type Option func(*Options) error

// WithRegistry registers the matrix cache with r.
func WithRegistry(r *cache.Registry) Option {
	return func(o *Options) error {
		o.Registry = r
		return nil
	}
}

// WithMatrixCache uses c for assembled matrices.
func WithMatrixCache(c *cache.Memory[*weights.Matrix]) Option {
	return func(o *Options) error {
		if c == nil {
			return errors.New("s2regrid: nil matrix cache")
		}
		o.MatrixCache = c
		return nil
	}
}

// WithDiskCache persists assembled matrices in c.
func WithDiskCache(c *diskcache.WeightCache) Option {
	return func(o *Options) error {
		o.DiskCache = c
		return nil
	}
}

// WithMissingPolicy sets how missing input values are handled.
func WithMissingPolicy(opts weights.MissingOptions) Option {
	return func(o *Options) error {
		o.Missing = opts
		return nil
	}
}

// WithLandSeaMasks applies m to every matrix.
func WithLandSeaMasks(m *LandSeaMasks) Option {
	return func(o *Options) error {
		o.Masks = m
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) error {
		if l == nil {
			return errors.New("s2regrid: nil logger")
		}
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
