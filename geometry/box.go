// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package geometry

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Box is a lon/lat aligned grid box in degrees. West <= East; a box at
// least 360 degrees wide covers every longitude.
type Box struct {
	North, West, South, East float64
}

// Rect returns b as an s2.Rect. Longitudes wrap across the date line.
func (b Box) Rect() s2.Rect {
	if b.North < b.South || b.East < b.West {
		return s2.EmptyRect()
	}
	lat := r1.Interval{Lo: (s1.Angle(b.South) * s1.Degree).Radians(), Hi: (s1.Angle(b.North) * s1.Degree).Radians()}
	lng := s1.FullInterval()
	if b.East-b.West < 360 {
		lng = s1.IntervalFromEndpoints(
			(s1.Angle(b.West) * s1.Degree).Normalized().Radians(),
			(s1.Angle(b.East) * s1.Degree).Normalized().Radians(),
		)
	}
	return s2.Rect{Lat: lat, Lng: lng}
}

// Area returns the area of b on the unit sphere.
func (b Box) Area() float64 {
	return b.Rect().Area()
}

// Contains reports whether p lies inside b.
func (b Box) Contains(p LatLon) bool {
	return b.Rect().ContainsLatLng(p.LatLng())
}

// Corners returns the four corners of b.
func (b Box) Corners() [4]LatLon {
	return [4]LatLon{
		NewLatLon(b.North, b.West),
		NewLatLon(b.North, b.East),
		NewLatLon(b.South, b.East),
		NewLatLon(b.South, b.West),
	}
}

// IntersectionArea returns the area on the unit sphere shared by b and o.
// Boxes whose widths add up to less than 360 degrees overlap in at most one
// piece, which is the case for grid boxes of different points.
func (b Box) IntersectionArea(o Box) float64 {
	return b.Rect().Intersection(o.Rect()).Area()
}
