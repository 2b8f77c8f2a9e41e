// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// AreaKind selects how NodeAreas shares the sphere among nodes.
type AreaKind int

const (
	// Lumped gives each node an equal share of every cell it belongs to.
	Lumped AreaKind = iota
	// Voronoi gives each node the area of its spherical Voronoi cell.
	Voronoi
)

func (k AreaKind) String() string {
	switch k {
	case Lumped:
		return "lumped"
	case Voronoi:
		return "voronoi"
	}
	return fmt.Sprintf("AreaKind(%d)", int(k))
}

// ParseAreaKind returns the AreaKind named s.
func ParseAreaKind(s string) (AreaKind, error) {
	switch s {
	case "", "lumped":
		return Lumped, nil
	case "voronoi":
		return Voronoi, nil
	}
	return 0, fmt.Errorf("mesh: unknown node area kind %q", s)
}

// NodeAreas returns the area on the unit sphere attributed to each node of m.
func NodeAreas(m *Mesh, kind AreaKind) ([]float64, error) {
	switch kind {
	case Lumped:
		return lumpedAreas(m), nil
	case Voronoi:
		if m.Triangulation == nil {
			return nil, ErrNoTriangulation
		}
		return voronoiAreas(m), nil
	}
	return nil, fmt.Errorf("mesh: unknown node area kind %v", kind)
}

func lumpedAreas(m *Mesh) []float64 {
	areas := make([]float64, len(m.Nodes))
	for _, c := range m.Cells {
		share := m.SphericalArea(c) / float64(c.Size)
		for _, n := range c.Indices() {
			areas[n] += share
		}
	}
	return areas
}

// voronoiAreas sums, for each real node, the spherical triangles between
// the node and the circumcentres of consecutive cells of its fan.
func voronoiAreas(m *Mesh) []float64 {
	centres := make([]s2.Point, len(m.Cells))
	for i, c := range m.Cells {
		centres[i] = s2.Point{Vector: m.circumcentre(c)}
	}
	areas := make([]float64, m.NumReal)
	for v := range m.NumReal {
		site := s2.Point{Vector: m.Nodes[v].Point}
		fan := m.Triangulation.Fan(v)
		for i, ci := range fan {
			next := fan[(i+1)%len(fan)]
			areas[v] += s2.PointArea(site, centres[ci], centres[next])
		}
	}
	return areas
}
