// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package diskcache

import (
	"github.com/2dChan/s2regrid/weights"
)

// WeightCache stores weight matrices in a Cache.
type WeightCache struct {
	cache *Cache
}

// NewWeightCache wraps c.
func NewWeightCache(c *Cache) *WeightCache {
	return &WeightCache{cache: c}
}

// Cache returns the underlying file cache.
func (w *WeightCache) Cache() *Cache {
	return w.cache
}

// Fetch returns the matrix stored under key, calling compute and storing
// its result if there is none. Corrupt entries are recomputed.
func (w *WeightCache) Fetch(key string, compute func() (*weights.Matrix, error)) (*weights.Matrix, error) {
	var m *weights.Matrix
	create := func(tmpPath string) error {
		computed, err := compute()
		if err != nil {
			return err
		}
		if err := WriteFile(tmpPath, key, computed); err != nil {
			return err
		}
		m = computed
		return nil
	}
	check := func(path string) error {
		loaded, err := ReadFile(path, key)
		if err != nil {
			return err
		}
		m = loaded
		return nil
	}
	path, err := w.cache.GetOrCreate(key, create, check)
	if err != nil {
		return nil, err
	}
	if m != nil {
		return m, nil
	}
	// The entry was produced by a call this one joined.
	return ReadFile(path, key)
}
