// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package geometry provides the points, elements and grid boxes used to
// build interpolation weights on the unit sphere.
package geometry

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// LatLon is a geographic position in degrees. Longitudes are kept in
// [0, 360) and latitudes in [-90, 90].
type LatLon struct {
	Lat float64
	Lon float64
}

// NewLatLon returns a LatLon with latitude clamped to [-90, 90] and
// longitude normalised into [0, 360).
func NewLatLon(lat, lon float64) LatLon {
	return LatLon{
		Lat: math.Max(-90, math.Min(90, lat)),
		Lon: NormaliseLongitude(lon, 0),
	}
}

// NormaliseLongitude maps lon into [minimum, minimum+360).
func NormaliseLongitude(lon, minimum float64) float64 {
	lon = math.Mod(lon-minimum, 360)
	if lon < 0 {
		lon += 360
	}
	if lon >= 360 {
		lon = 0
	}
	return lon + minimum
}

// Point returns p on the unit sphere. Both poles map to a single point
// whatever the longitude.
func (p LatLon) Point() s2.Point {
	if p.IsPole() {
		return s2.Point{Vector: r3.Vector{Z: math.Copysign(1, p.Lat)}}
	}
	return s2.PointFromLatLng(p.LatLng())
}

// LatLng returns p as a normalised s2.LatLng.
func (p LatLon) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon).Normalized()
}

// Vector returns p as a unit vector.
func (p LatLon) Vector() r3.Vector {
	return p.Point().Vector
}

// FromPoint converts a point on the sphere back to a normalised LatLon.
func FromPoint(p s2.Point) LatLon {
	ll := s2.LatLngFromPoint(p)
	return NewLatLon(ll.Lat.Degrees(), ll.Lng.Degrees())
}

// IsPole reports whether p sits on either pole.
func (p LatLon) IsPole() bool {
	return math.Abs(math.Abs(p.Lat)-90) < poleEpsilon
}

// Chord returns the straight-line distance between two unit vectors.
func Chord(a, b r3.Vector) float64 {
	return a.Sub(b).Norm()
}

// ChordFromAngle converts a central angle into a chord length on the unit sphere.
func ChordFromAngle(a s1.Angle) float64 {
	return 2 * math.Sin(a.Radians()/2)
}

const poleEpsilon = 1e-10
