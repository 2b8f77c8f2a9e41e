// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
)

// hullEps is the quickhull tolerance used by Build.
const hullEps = 1e-12

// Triangulation holds the cells around each node of a triangulated mesh,
// counter-clockwise when looking from outside the sphere.
type Triangulation struct {
	fans    []int
	offsets []int
}

// Fan returns the indices of the cells around node n in counter-clockwise
// order.
func (tr *Triangulation) Fan(n int) []int {
	if n < 0 || n+1 >= len(tr.offsets) {
		panic(fmt.Sprintf("mesh: node %d out of range", n))
	}
	return tr.fans[tr.offsets[n]:tr.offsets[n+1]]
}

// Triangulate returns the spherical Delaunay triangles of nodes, which is
// the convex hull of their points, and the fan of triangles around every
// node. Points must be distinct and on the unit sphere.
func Triangulate(nodes []Node, eps float64) ([]Cell, *Triangulation, error) {
	if eps <= 0 {
		return nil, nil, fmt.Errorf("mesh: hull tolerance must be positive, got %v", eps)
	}
	n := len(nodes)
	if n < 4 {
		return nil, nil, errors.New("mesh: triangulation needs at least 4 nodes")
	}
	points := make([]r3.Vector, n)
	for i, node := range nodes {
		points[i] = node.Point
	}
	hull := new(quickhull.QuickHull).ConvexHull(points, true, true, eps)
	// A closed triangulation of n vertices has 2n - 4 faces.
	if want := 2*n - 4; len(hull.Indices) != 3*want {
		return nil, nil, fmt.Errorf("mesh: hull has %d triangles, want %d; points are duplicate or coplanar",
			len(hull.Indices)/3, want)
	}

	cells := make([]Cell, len(hull.Indices)/3)
	for i := range cells {
		a, b, c := hull.Indices[3*i], hull.Indices[3*i+1], hull.Indices[3*i+2]
		if isClockwise(points[a], points[b], points[c]) {
			b, c = c, b
		}
		cells[i] = Cell{Nodes: [4]int{a, b, c}, Size: 3}
	}
	return cells, newTriangulation(n, cells), nil
}

func isClockwise(a, b, c r3.Vector) bool {
	return b.Sub(a).Cross(c.Sub(a)).Dot(a) < 0
}

func newTriangulation(n int, cells []Cell) *Triangulation {
	tr := &Triangulation{
		fans:    make([]int, 3*len(cells)),
		offsets: make([]int, n+1),
	}
	for _, c := range cells {
		for _, v := range c.Indices() {
			tr.offsets[v+1]++
		}
	}
	for v := range n {
		tr.offsets[v+1] += tr.offsets[v]
	}
	fill := append([]int(nil), tr.offsets[:n]...)
	for i, c := range cells {
		for _, v := range c.Indices() {
			tr.fans[fill[v]] = i
			fill[v]++
		}
	}
	for v := range n {
		orderFan(v, tr.Fan(v), cells)
	}
	return tr
}

// orderFan sorts the cells of a closed fan around v so that each cell
// starts where the previous one ends.
func orderFan(v int, fan []int, cells []Cell) {
	if len(fan) < 2 {
		return
	}
	byStart := make(map[int]int, len(fan))
	for _, ci := range fan {
		byStart[before(cells[ci], v)] = ci
	}
	cur := fan[0]
	for i := 1; i < len(fan); i++ {
		cur = byStart[after(cells[cur], v)]
		fan[i] = cur
	}
}

// before returns the node preceding v in triangle c.
func before(c Cell, v int) int {
	return c.Nodes[(slot(c, v)+2)%3]
}

// after returns the node following v in triangle c.
func after(c Cell, v int) int {
	return c.Nodes[(slot(c, v)+1)%3]
}

func slot(c Cell, v int) int {
	for i, n := range c.Nodes[:3] {
		if n == v {
			return i
		}
	}
	panic(fmt.Sprintf("mesh: node %d not in cell %v", v, c.Nodes[:c.Size]))
}
