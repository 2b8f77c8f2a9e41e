// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package method

import (
	"github.com/2dChan/s2regrid/cache"
	"github.com/2dChan/s2regrid/geometry"
	"github.com/2dChan/s2regrid/mesh"
	"github.com/2dChan/s2regrid/repres"
	"github.com/2dChan/s2regrid/search"
	"github.com/golang/geo/r3"
)

// neighbourSize approximates the bytes held per indexed point.
const neighbourSize = 8*3 + 8*2

// meshIndex is a mesh over an input representation together with an index
// of its cell centroids and per-cell edge tolerances.
type meshIndex struct {
	mesh    *mesh.Mesh
	index   *search.Index
	edgeEps []float64
}

func (mi *meshIndex) footprint() cache.Footprint {
	return cache.Footprint{Memory: mi.mesh.Footprint() + uint64(mi.index.Len()*neighbourSize+len(mi.edgeEps)*8)}
}

// pointIndex indexes the points of a representation.
type pointIndex struct {
	points []geometry.LatLon
	index  *search.Index
}

func (pi *pointIndex) footprint() cache.Footprint {
	return cache.Footprint{Memory: uint64(len(pi.points)*16 + pi.index.Len()*neighbourSize)}
}

func cacheOptions(opts Options) []cache.MemoryOption {
	setters := []cache.MemoryOption{cache.WithMetrics(opts.Metrics), cache.WithLogger(opts.Logger)}
	if opts.Registry != nil {
		setters = append(setters, cache.WithRegistry(opts.Registry))
	}
	return setters
}

func newMeshCache(opts Options) (*cache.Memory[*meshIndex], error) {
	return cache.NewMemory("mesh", (*meshIndex).footprint, cacheOptions(opts)...)
}

func newPointCache(opts Options) (*cache.Memory[*pointIndex], error) {
	return cache.NewMemory("points", (*pointIndex).footprint, cacheOptions(opts)...)
}

func buildMeshIndex(r repres.Representation) (*meshIndex, error) {
	m, err := mesh.Build(r)
	if err != nil {
		return nil, err
	}
	eps := make([]float64, len(m.Cells))
	for i, c := range m.Cells {
		if c.IsQuad() {
			eps[i] = geometry.EdgeEpsilon(m.Quad(c).Area())
		} else {
			eps[i] = geometry.EdgeEpsilon(m.Triangle(c).Area())
		}
	}
	return &meshIndex{mesh: m, index: search.Build(m.Centroids), edgeEps: eps}, nil
}

func buildPointIndex(r repres.Representation) *pointIndex {
	points := repres.Collect(r)
	vs := make([]r3.Vector, len(points))
	for i, p := range points {
		vs[i] = p.Vector()
	}
	return &pointIndex{points: points, index: search.Build(vs)}
}
