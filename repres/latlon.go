// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package repres

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/2dChan/s2regrid/geometry"
)

// RegularLatLon is a regular lat-lon grid scanned north to south, west to east.
type RegularLatLon struct {
	North, West float64
	DLat, DLon  float64
	Nj, Ni      int
}

// NewGlobalLatLon returns the global grid with the given increments,
// including both poles.
func NewGlobalLatLon(dlat, dlon float64) (*RegularLatLon, error) {
	return NewRegionalLatLon(90, 0, -90, 360-dlon, dlat, dlon)
}

// NewRegionalLatLon returns the grid whose corner points are (north, west)
// and (south, east).
func NewRegionalLatLon(north, west, south, east, dlat, dlon float64) (*RegularLatLon, error) {
	if dlat <= 0 || dlon <= 0 {
		return nil, fmt.Errorf("repres: increments must be positive, got %v/%v", dlat, dlon)
	}
	if north < south || north > 90 || south < -90 {
		return nil, fmt.Errorf("repres: invalid latitude range [%v, %v]", south, north)
	}
	if east < west {
		east += 360
	}
	nj := int(math.Round((north-south)/dlat)) + 1
	ni := int(math.Round((east-west)/dlon)) + 1
	if math.Abs(float64(nj-1)*dlat-(north-south)) > 1e-6 || math.Abs(float64(ni-1)*dlon-(east-west)) > 1e-6 {
		return nil, errors.New("repres: bounding box is not a multiple of the increments")
	}
	if float64(ni)*dlon > 360+1e-6 {
		return nil, errors.New("repres: longitudes overlap")
	}
	return &RegularLatLon{North: north, West: west, DLat: dlat, DLon: dlon, Nj: nj, Ni: ni}, nil
}

func (g *RegularLatLon) representation() {}

// NumberOfPoints returns Ni*Nj.
func (g *RegularLatLon) NumberOfPoints() int {
	return g.Ni * g.Nj
}

// IsPeriodic reports whether the longitudes close the circle.
func (g *RegularLatLon) IsPeriodic() bool {
	return math.Abs(float64(g.Ni)*g.DLon-360) < 1e-6
}

func (g *RegularLatLon) south() float64 {
	return g.North - float64(g.Nj-1)*g.DLat
}

// Domain returns the bounding region. A periodic grid whose next row would
// pass a pole is extended to that pole.
func (g *RegularLatLon) Domain() Domain {
	d := Domain{
		North: g.North,
		South: g.south(),
		West:  g.West,
		East:  g.West + float64(g.Ni-1)*g.DLon,
	}
	if g.IsPeriodic() {
		d.East = g.West + 360
		if d.North+g.DLat >= 90 {
			d.North = 90
		}
		if d.South-g.DLat <= -90 {
			d.South = -90
		}
	}
	return d
}

// Points iterates the grid row by row.
func (g *RegularLatLon) Points() iter.Seq2[int, geometry.LatLon] {
	return func(yield func(int, geometry.LatLon) bool) {
		idx := 0
		for j := range g.Nj {
			lat := g.North - float64(j)*g.DLat
			for i := range g.Ni {
				if !yield(idx, geometry.NewLatLon(lat, g.West+float64(i)*g.DLon)) {
					return
				}
				idx++
			}
		}
	}
}

// ID returns the content hash of the grid description.
func (g *RegularLatLon) ID() string {
	return hashID("regular-ll", []float64{g.North, g.West, g.DLat, g.DLon}, []int{g.Nj, g.Ni})
}

// MeshHints returns one row per latitude.
func (g *RegularLatLon) MeshHints() MeshHints {
	rows := make([]Row, g.Nj)
	for j := range rows {
		rows[j] = Row{
			Lat:       g.North - float64(j)*g.DLat,
			West:      g.West,
			Increment: g.DLon,
			N:         g.Ni,
			Offset:    j * g.Ni,
		}
	}
	return MeshHints{Rows: rows, Periodic: g.IsPeriodic()}
}

// GridBoxes returns the box around each point, bounded half way to the
// neighbouring rows and columns and clipped at the poles.
func (g *RegularLatLon) GridBoxes() []geometry.Box {
	boxes := make([]geometry.Box, 0, g.NumberOfPoints())
	for j := range g.Nj {
		lat := g.North - float64(j)*g.DLat
		n := math.Min(90, lat+g.DLat/2)
		s := math.Max(-90, lat-g.DLat/2)
		for i := range g.Ni {
			lon := g.West + float64(i)*g.DLon
			boxes = append(boxes, geometry.Box{North: n, South: s, West: lon - g.DLon/2, East: lon + g.DLon/2})
		}
	}
	return boxes
}

func (g *RegularLatLon) equal(o *RegularLatLon) bool {
	return g.Nj == o.Nj && g.Ni == o.Ni &&
		approxEqual(g.North, o.North) && approxEqual(g.DLat, o.DLat) && approxEqual(g.DLon, o.DLon) &&
		approxEqual(geometry.NormaliseLongitude(g.West, 0), geometry.NormaliseLongitude(o.West, 0))
}
