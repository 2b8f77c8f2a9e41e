// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package search provides a k-d tree over points on the unit sphere.
package search

import (
	"cmp"
	"math"
	"slices"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// tieEpsilon widens the k-th distance so that points tied with it are all
// collected before the index tie-break.
const tieEpsilon = 1e-12

// Neighbour is a query result. Index is the position of Point in the slice
// the Index was built from.
type Neighbour struct {
	Index    int
	Point    r3.Vector
	Distance float64
}

// Index answers nearest-neighbour and radius queries. It is immutable and
// safe for concurrent use.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// Build returns an index over pts. Build does not modify pts.
func Build(pts []r3.Vector) *Index {
	ix := &Index{n: len(pts)}
	if len(pts) == 0 {
		return ix
	}
	ps := make(points, len(pts))
	for i, p := range pts {
		ps[i] = point{v: p, idx: i}
	}
	ix.tree = kdtree.New(ps, false)
	return ix
}

// Len returns the number of indexed points.
func (ix *Index) Len() int {
	return ix.n
}

// KNearest returns the k points closest to p ordered by distance, ties
// broken by lower index.
func (ix *Index) KNearest(p r3.Vector, k int) []Neighbour {
	if ix.tree == nil || k <= 0 {
		return nil
	}
	k = min(k, ix.n)
	keeper := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keeper, point{v: p, idx: -1})

	furthest := 0.0
	for _, c := range keeper.Heap {
		if c.Comparable != nil {
			furthest = math.Max(furthest, c.Dist)
		}
	}
	// Collect everything tied with the k-th point, then cut by index.
	result := ix.within(p, furthest*(1+tieEpsilon)+tieEpsilon*tieEpsilon)
	if len(result) > k {
		result = result[:k]
	}
	return result
}

// WithinRadius returns all points at chord distance at most r from p,
// ordered by distance then index.
func (ix *Index) WithinRadius(p r3.Vector, r float64) []Neighbour {
	if ix.tree == nil || r < 0 {
		return nil
	}
	return ix.within(p, r*r)
}

func (ix *Index) within(p r3.Vector, r2 float64) []Neighbour {
	keeper := kdtree.NewDistKeeper(r2)
	ix.tree.NearestSet(keeper, point{v: p, idx: -1})
	result := make([]Neighbour, 0, len(keeper.Heap))
	for _, c := range keeper.Heap {
		if c.Comparable == nil {
			continue
		}
		q := c.Comparable.(point)
		result = append(result, Neighbour{Index: q.idx, Point: q.v, Distance: math.Sqrt(c.Dist)})
	}
	slices.SortFunc(result, func(a, b Neighbour) int {
		return cmp.Or(cmp.Compare(a.Distance, b.Distance), cmp.Compare(a.Index, b.Index))
	})
	return result
}

type point struct {
	v   r3.Vector
	idx int
}

// Compare implements kdtree.Comparable.
func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	switch d {
	case 0:
		return p.v.X - q.v.X
	case 1:
		return p.v.Y - q.v.Y
	case 2:
		return p.v.Z - q.v.Z
	}
	panic("illegal dimension")
}

// Dims implements kdtree.Comparable.
func (p point) Dims() int { return 3 }

// Distance returns the squared Euclidean distance.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	return p.v.Sub(q.v).Norm2()
}

type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements kdtree.Interface.
func (p points) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{points: p, Dim: d}, kdtree.MedianOfRandoms(plane{points: p, Dim: d}, 100))
}

type plane struct {
	points
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.points[i].Compare(p.points[j], p.Dim) < 0
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
