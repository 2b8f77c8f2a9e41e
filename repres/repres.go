// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package repres describes the grids and point sets fields are sampled on.
//
// Representation is a closed set of variants (RegularLatLon,
// ReducedGaussian, Unstructured, Spectral). Capabilities that only some
// variants have, such as grid boxes, are expressed as small interfaces and
// discovered with type assertions.
package repres

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"iter"
	"math"

	"github.com/2dChan/s2regrid/geometry"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const domainEpsilon = 1e-9

// Representation is a grid or point-set description that can iterate its points.
type Representation interface {
	// NumberOfPoints returns the number of values a field on r holds.
	NumberOfPoints() int
	// Domain returns the region covered by r.
	Domain() Domain
	// Points returns the points of r in storage order. The sequence is
	// finite, deterministic and can be iterated any number of times.
	Points() iter.Seq2[int, geometry.LatLon]
	// ID returns a stable identifier derived from the full description of r.
	ID() string
	// MeshHints describes how a mesh can be built over r.
	MeshHints() MeshHints

	representation()
}

// Boxed is implemented by representations whose points own non-overlapping
// lon/lat grid boxes.
type Boxed interface {
	GridBoxes() []geometry.Box
}

// Row is one latitude row of a structured grid. Its points are
// West + i*Increment for i in [0, N), stored from index Offset on.
type Row struct {
	Lat       float64
	West      float64
	Increment float64
	N         int
	Offset    int
}

// Lon returns the longitude of the i-th point of the row.
func (r Row) Lon(i int) float64 {
	return r.West + float64(i)*r.Increment
}

// MeshHints tells the mesh builder whether the points form latitude rows.
// A nil Rows slice means the points are scattered and must be triangulated.
type MeshHints struct {
	Rows     []Row
	Periodic bool
}

// Domain is the lon/lat region a representation covers.
type Domain struct {
	North, South float64
	West, East   float64
}

// GlobalDomain covers the whole sphere.
func GlobalDomain() Domain {
	return Domain{North: 90, South: -90, West: 0, East: 360}
}

// IsPeriodic reports whether d wraps around in longitude.
func (d Domain) IsPeriodic() bool {
	return d.East-d.West >= 360-domainEpsilon
}

// IsGlobal reports whether d covers the whole sphere.
func (d Domain) IsGlobal() bool {
	return d.IsPeriodic() && d.IncludesNorthPole() && d.IncludesSouthPole()
}

// IncludesNorthPole reports whether d reaches the north pole.
func (d Domain) IncludesNorthPole() bool {
	return d.North >= 90-domainEpsilon
}

// IncludesSouthPole reports whether d reaches the south pole.
func (d Domain) IncludesSouthPole() bool {
	return d.South <= -90+domainEpsilon
}

// Rect returns d grown by a small tolerance as an s2.Rect.
func (d Domain) Rect() s2.Rect {
	r := geometry.Box{North: d.North, West: d.West, South: d.South, East: d.East}.Rect()
	if d.IsPeriodic() {
		r.Lng = s1.FullInterval()
	}
	margin := (s1.Angle(domainEpsilon) * s1.Degree).Radians()
	return s2.Rect{
		Lat: r.Lat.Expanded(margin).Intersection(r1.Interval{Lo: -math.Pi / 2, Hi: math.Pi / 2}),
		Lng: r.Lng.Expanded(margin),
	}
}

// Contains reports whether p lies in d.
func (d Domain) Contains(p geometry.LatLon) bool {
	return d.Rect().ContainsLatLng(p.LatLng())
}

// ContainsDomain reports whether o lies entirely in d.
func (d Domain) ContainsDomain(o Domain) bool {
	inner := geometry.Box{North: o.North, West: o.West, South: o.South, East: o.East}.Rect()
	if o.IsPeriodic() {
		inner.Lng = s1.FullInterval()
	}
	return d.Rect().Contains(inner)
}

// Equal reports whether a and b describe the same points in the same order.
func Equal(a, b Representation) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch x := a.(type) {
	case *RegularLatLon:
		y, ok := b.(*RegularLatLon)
		return ok && x.equal(y)
	case *ReducedGaussian:
		y, ok := b.(*ReducedGaussian)
		return ok && x.equal(y)
	case *Unstructured:
		y, ok := b.(*Unstructured)
		return ok && x.equal(y)
	case *Spectral:
		y, ok := b.(*Spectral)
		return ok && x.Truncation == y.Truncation
	}
	return false
}

func hashID(kind string, floats []float64, ints []int) string {
	h := sha256.New()
	h.Write([]byte(kind))
	var buf [8]byte
	for _, f := range floats {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	for _, i := range ints {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		h.Write(buf[:])
	}
	return kind + "-" + hex.EncodeToString(h.Sum(nil))[:24]
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= domainEpsilon
}
