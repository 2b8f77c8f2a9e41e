// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package method

import (
	"fmt"
	"math"

	"github.com/2dChan/s2regrid/cache"
	"github.com/2dChan/s2regrid/geometry"
	"github.com/2dChan/s2regrid/mesh"
	"github.com/2dChan/s2regrid/repres"
	"github.com/2dChan/s2regrid/weights"
	"github.com/golang/geo/r3"
)

// FiniteElement interpolates with the linear (triangle) or bilinear (quad)
// shape functions of the input mesh element containing each output point.
type FiniteElement struct {
	opts   Options
	meshes *cache.Memory[*meshIndex]
}

// NewFiniteElement returns a finite-element method.
func NewFiniteElement(opts Options) (*FiniteElement, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	meshes, err := newMeshCache(opts)
	if err != nil {
		return nil, err
	}
	return &FiniteElement{opts: opts, meshes: meshes}, nil
}

// Name returns FiniteElementName.
func (fe *FiniteElement) Name() string {
	return FiniteElementName
}

// Digest describes the search fraction and the edge tolerance.
func (fe *FiniteElement) Digest() string {
	return fmt.Sprintf("fraction=%g;eps=%g", fe.opts.SearchFraction, geometry.ParametricEpsilon)
}

// Assemble returns the finite-element weights from in to out. Output
// points outside the input domain get empty rows.
func (fe *FiniteElement) Assemble(in, out repres.Representation) (*weights.Matrix, error) {
	if err := checkGridded(in, out); err != nil {
		return nil, err
	}
	defer fe.opts.Metrics.AssembleTimer(fe.Name()).ObserveDuration()
	return fe.assemble(in, out)
}

func (fe *FiniteElement) assemble(in, out repres.Representation) (*weights.Matrix, error) {
	mi, err := fe.meshIndex(in)
	if err != nil {
		return nil, err
	}
	ts, err := mi.project(repres.Collect(out), in.Domain(), fe.opts.SearchFraction)
	if err != nil {
		return nil, err
	}
	fe.opts.Logger.Debug("finite_element_assembled", "in", in.ID(), "out", out.ID(), "nnz", len(ts))
	return weights.FromTriplets(out.NumberOfPoints(), in.NumberOfPoints(), ts), nil
}

// Mesh returns the mesh built over r, from the cache when possible.
func (fe *FiniteElement) Mesh(r repres.Representation) (*mesh.Mesh, error) {
	mi, err := fe.meshIndex(r)
	if err != nil {
		return nil, err
	}
	return mi.mesh, nil
}

func (fe *FiniteElement) meshIndex(r repres.Representation) (*meshIndex, error) {
	return fe.meshes.GetOrCompute(r.ID(), func() (*meshIndex, error) {
		mi, err := buildMeshIndex(r)
		if err != nil {
			return nil, fmt.Errorf("method: mesh %s: %w", r.ID(), err)
		}
		fe.opts.Logger.Debug("mesh_built", "repres", r.ID(), "nodes", len(mi.mesh.Nodes), "cells", len(mi.mesh.Cells))
		return mi, nil
	})
}

// project locates every point inside domain and returns the shape-function
// weights as triplets, one row per point. Points missed by the 3-D search
// are retried on the lon/lat plane; the rest are reported.
func (mi *meshIndex) project(points []geometry.LatLon, domain repres.Domain, fraction float64) ([]weights.Triplet, error) {
	limit := max(1, int(fraction*float64(len(mi.mesh.Cells))))
	var (
		ts       []weights.Triplet
		failures []int
	)
	for j, p := range points {
		if !domain.Contains(p) {
			continue
		}
		c, w, ok := mi.locate(p, limit, mi.intersect3D)
		if !ok {
			failures = append(failures, j)
			continue
		}
		ts = mi.appendRow(ts, j, c, w)
	}

	var failed []geometry.LatLon
	for _, j := range failures {
		c, w, ok := mi.locate(points[j], limit, mi.intersect2D)
		if !ok {
			failed = append(failed, points[j])
			continue
		}
		ts = mi.appendRow(ts, j, c, w)
	}
	if len(failed) > 0 {
		return nil, &ProjectionError{Points: failed[:min(len(failed), MaxReportedFailures)], Count: len(failed)}
	}
	return ts, nil
}

// nodeWeightEpsilon is the shape-function weight below which a node is
// treated as not contributing.
const nodeWeightEpsilon = 1e-12

type intersector func(c int, p geometry.LatLon) ([]float64, bool)

// locate tests the cells whose centroids are nearest to p, doubling the
// candidate count up to limit.
func (mi *meshIndex) locate(p geometry.LatLon, limit int, intersect intersector) (int, []float64, bool) {
	v := p.Vector()
	tested := 0
	for k := 1; ; k *= 2 {
		k = min(k, limit)
		candidates := mi.index.KNearest(v, k)
		for _, n := range candidates[min(tested, len(candidates)):] {
			if w, ok := intersect(n.Index, p); ok {
				return n.Index, w, true
			}
		}
		tested = len(candidates)
		if k == limit {
			return 0, nil, false
		}
	}
}

func (mi *meshIndex) intersect3D(c int, p geometry.LatLon) ([]float64, bool) {
	cell := mi.mesh.Cells[c]
	ray := geometry.RayThrough(p.Vector())
	if cell.IsQuad() {
		q := mi.mesh.Quad(cell)
		is, ok := q.Intersect(ray, mi.edgeEps[c])
		if !ok {
			return nil, false
		}
		return q.Weights(is), true
	}
	t := mi.mesh.Triangle(cell)
	is, ok := t.Intersect(ray, mi.edgeEps[c])
	if !ok {
		return nil, false
	}
	return t.Weights(is), true
}

// intersect2D runs the element tests on (lon, lat) coordinates, with
// longitudes unwrapped around the point and pole nodes placed at the
// point's longitude.
func (mi *meshIndex) intersect2D(c int, p geometry.LatLon) ([]float64, bool) {
	cell := mi.mesh.Cells[c]
	var vs [4]r3.Vector
	for i, n := range cell.Indices() {
		ll := mi.mesh.Nodes[n].LatLon
		lon := p.Lon
		if !ll.IsPole() {
			lon += math.Remainder(ll.Lon-p.Lon, 360)
		}
		vs[i] = r3.Vector{X: lon, Y: ll.Lat}
	}
	ray := geometry.PlanarRay(p.Lon, p.Lat)
	if cell.IsQuad() {
		q := geometry.Quad(vs)
		is, ok := q.Intersect(ray, geometry.EdgeEpsilon(q.Area()))
		if !ok {
			return nil, false
		}
		return q.Weights(is), true
	}
	t := geometry.Triangle{vs[0], vs[1], vs[2]}
	is, ok := t.Intersect(ray, geometry.EdgeEpsilon(t.Area()))
	if !ok {
		return nil, false
	}
	return t.Weights(is), true
}

// appendRow adds the weights of cell c to row j. Weights on virtual nodes
// and real weights at or below nodeWeightEpsilon are dropped and the rest
// renormalised; a row left without real weight stays empty.
func (mi *meshIndex) appendRow(ts []weights.Triplet, j, c int, w []float64) []weights.Triplet {
	nodes := mi.mesh.Cells[c].Indices()
	present := 0.0
	for i, n := range nodes {
		if n < mi.mesh.NumReal && w[i] > nodeWeightEpsilon {
			present += w[i]
		}
	}
	if present <= nodeWeightEpsilon {
		return ts
	}
	for i, n := range nodes {
		if n < mi.mesh.NumReal && w[i] > nodeWeightEpsilon {
			ts = append(ts, weights.Triplet{Row: j, Col: n, Value: w[i] / present})
		}
	}
	return ts
}
