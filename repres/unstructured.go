// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package repres

import (
	"iter"
	"slices"

	"github.com/2dChan/s2regrid/geometry"
)

// Unstructured is a list of scattered points. Its domain is the whole globe.
type Unstructured struct {
	points []geometry.LatLon
	id     string
}

// NewUnstructured copies points into a new Unstructured representation.
func NewUnstructured(points []geometry.LatLon) *Unstructured {
	u := &Unstructured{points: slices.Clone(points)}
	coords := make([]float64, 0, 2*len(points))
	for _, p := range u.points {
		coords = append(coords, p.Lat, p.Lon)
	}
	u.id = hashID("unstructured", coords, []int{len(points)})
	return u
}

func (u *Unstructured) representation() {}

// NumberOfPoints returns the number of points.
func (u *Unstructured) NumberOfPoints() int {
	return len(u.points)
}

// Domain is always global.
func (u *Unstructured) Domain() Domain {
	return GlobalDomain()
}

// Points iterates the points in the order they were given.
func (u *Unstructured) Points() iter.Seq2[int, geometry.LatLon] {
	return slices.All(u.points)
}

// ID returns the content hash of the coordinates.
func (u *Unstructured) ID() string {
	return u.id
}

// MeshHints reports no structure.
func (u *Unstructured) MeshHints() MeshHints {
	return MeshHints{}
}

func (u *Unstructured) equal(o *Unstructured) bool {
	return u.id == o.id && slices.Equal(u.points, o.points)
}

// Collect gathers the points of any representation into a slice.
func Collect(r Representation) []geometry.LatLon {
	pts := make([]geometry.LatLon, 0, r.NumberOfPoints())
	for _, p := range r.Points() {
		pts = append(pts, p)
	}
	return pts
}
