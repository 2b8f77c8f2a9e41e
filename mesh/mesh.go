// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package mesh builds triangle and quad meshes over representations for the
// finite-element methods.
package mesh

import (
	"errors"

	"github.com/2dChan/s2regrid/geometry"
	"github.com/2dChan/s2regrid/repres"
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

var (
	// ErrNoPoints is returned when a representation has no grid points to mesh.
	ErrNoPoints = errors.New("mesh: representation has no grid points")
	// ErrNoTriangulation is returned when Voronoi areas are requested for a
	// mesh that was not built by triangulation.
	ErrNoTriangulation = errors.New("mesh: mesh has no Delaunay triangulation")
)

// Node is a mesh vertex. Virtual nodes are added to close the mesh at a
// pole the grid does not reach; they never carry final weight.
type Node struct {
	LatLon  geometry.LatLon
	Point   r3.Vector
	Virtual bool
}

// Cell is a triangle or quad. Nodes are counter-clockwise when looking
// from outside the sphere.
type Cell struct {
	Nodes [4]int
	Size  int
}

// Indices returns the node indices of c.
func (c Cell) Indices() []int {
	return c.Nodes[:c.Size]
}

// IsQuad reports whether c has four nodes.
func (c Cell) IsQuad() bool {
	return c.Size == 4
}

// Mesh is a surface mesh over a representation. Nodes [0, NumReal) are the
// representation's points in iteration order; virtual nodes follow.
type Mesh struct {
	Nodes     []Node
	Cells     []Cell
	Centroids []r3.Vector
	NumReal   int

	// Triangulation is set when the cells come from Triangulate.
	Triangulation *Triangulation
}

// Build meshes r: structured grids are stitched row by row, scattered
// points are triangulated.
func Build(r repres.Representation) (*Mesh, error) {
	m := &Mesh{}
	for _, p := range r.Points() {
		m.Nodes = append(m.Nodes, Node{LatLon: p, Point: p.Vector()})
	}
	m.NumReal = len(m.Nodes)
	if m.NumReal == 0 {
		return nil, ErrNoPoints
	}

	hints := r.MeshHints()
	if hints.Rows != nil {
		if err := m.stitchRows(hints, r.Domain()); err != nil {
			return nil, err
		}
	} else {
		if err := m.triangulate(); err != nil {
			return nil, err
		}
	}
	m.computeCentroids()
	return m, nil
}

// Triangle returns the triangle of cell c.
func (m *Mesh) Triangle(c Cell) geometry.Triangle {
	return geometry.Triangle{m.Nodes[c.Nodes[0]].Point, m.Nodes[c.Nodes[1]].Point, m.Nodes[c.Nodes[2]].Point}
}

// Quad returns the quad of cell c.
func (m *Mesh) Quad(c Cell) geometry.Quad {
	return geometry.Quad{
		m.Nodes[c.Nodes[0]].Point, m.Nodes[c.Nodes[1]].Point,
		m.Nodes[c.Nodes[2]].Point, m.Nodes[c.Nodes[3]].Point,
	}
}

// SphericalArea returns the area of cell c on the unit sphere.
func (m *Mesh) SphericalArea(c Cell) float64 {
	p := func(i int) s2.Point { return s2.Point{Vector: m.Nodes[c.Nodes[i]].Point} }
	area := s2.PointArea(p(0), p(1), p(2))
	if c.IsQuad() {
		area += s2.PointArea(p(0), p(2), p(3))
	}
	return area
}

// Footprint returns an estimate of the bytes held by m.
func (m *Mesh) Footprint() uint64 {
	const (
		nodeSize = 8*2 + 8*3 + 8
		cellSize = 8*4 + 8
		vecSize  = 8 * 3
	)
	size := uint64(len(m.Nodes)*nodeSize + len(m.Cells)*cellSize + len(m.Centroids)*vecSize)
	if t := m.Triangulation; t != nil {
		size += uint64(len(t.fans)*8 + len(t.offsets)*8)
	}
	return size
}

func (m *Mesh) addVirtual(lat float64) int {
	p := geometry.NewLatLon(lat, 0)
	m.Nodes = append(m.Nodes, Node{LatLon: p, Point: p.Vector(), Virtual: true})
	return len(m.Nodes) - 1
}

func (m *Mesh) addCell(nodes ...int) {
	c := Cell{Size: len(nodes)}
	copy(c.Nodes[:], nodes)
	m.orientCCW(&c)
	m.Cells = append(m.Cells, c)
}

// orientCCW reverses c when its normal points into the sphere.
func (m *Mesh) orientCCW(c *Cell) {
	p0 := m.Nodes[c.Nodes[0]].Point
	p1 := m.Nodes[c.Nodes[1]].Point
	p2 := m.Nodes[c.Nodes[c.Size-1]].Point
	norm := p1.Sub(p0).Cross(p2.Sub(p0))
	if norm.Dot(p0.Add(p1).Add(p2)) >= 0 {
		return
	}
	for i, j := 1, c.Size-1; i < j; i, j = i+1, j-1 {
		c.Nodes[i], c.Nodes[j] = c.Nodes[j], c.Nodes[i]
	}
}

func (m *Mesh) computeCentroids() {
	m.Centroids = make([]r3.Vector, len(m.Cells))
	for i, c := range m.Cells {
		var sum r3.Vector
		for _, n := range c.Indices() {
			sum = sum.Add(m.Nodes[n].Point)
		}
		m.Centroids[i] = sum.Normalize()
	}
}

func (m *Mesh) triangulate() error {
	cells, tr, err := Triangulate(m.Nodes[:m.NumReal], hullEps)
	if err != nil {
		return err
	}
	m.Cells, m.Triangulation = cells, tr
	return nil
}

// circumcentre returns the circumcentre of triangle c on the unit sphere,
// on the same side as the triangle.
func (m *Mesh) circumcentre(c Cell) r3.Vector {
	a, b, d := m.Nodes[c.Nodes[0]].Point, m.Nodes[c.Nodes[1]].Point, m.Nodes[c.Nodes[2]].Point
	n := b.Sub(a).Cross(d.Sub(a))
	if n.Dot(a.Add(b).Add(d)) < 0 {
		n = n.Mul(-1)
	}
	return n.Normalize()
}
