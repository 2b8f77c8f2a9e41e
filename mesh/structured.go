// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package mesh

import (
	"math"

	"github.com/2dChan/s2regrid/repres"
)

const poleLatitude = 90 - 1e-10

// stitchRows connects consecutive latitude rows: quads where both rows have
// the same longitudes, a zipper of triangles otherwise, and triangle fans
// around poles.
func (m *Mesh) stitchRows(hints repres.MeshHints, d repres.Domain) error {
	rows := hints.Rows
	periodic := hints.Periodic

	if len(rows) > 0 && !isPoleRow(rows[0]) && periodic && d.IncludesNorthPole() {
		m.fan(m.addVirtual(90), rows[0], true)
	}
	for j := 1; j < len(rows); j++ {
		north, south := rows[j-1], rows[j]
		switch {
		case isPoleRow(north) && isPoleRow(south):
			// Degenerate grid with two pole rows and nothing in between.
		case isPoleRow(north):
			m.fan(north.Offset, south, periodic)
		case isPoleRow(south):
			m.fan(south.Offset, north, periodic)
		case sameLongitudes(north, south):
			m.quads(north, south, periodic)
		default:
			m.zipper(north, south, periodic)
		}
	}
	if last := len(rows) - 1; last >= 0 && !isPoleRow(rows[last]) && periodic && d.IncludesSouthPole() {
		m.fan(m.addVirtual(-90), rows[last], true)
	}
	return nil
}

func isPoleRow(r repres.Row) bool {
	return math.Abs(r.Lat) >= poleLatitude
}

func sameLongitudes(a, b repres.Row) bool {
	return a.N == b.N && math.Abs(a.West-b.West) < 1e-9 && math.Abs(a.Increment-b.Increment) < 1e-9
}

// edges returns how many segments a row has: a periodic row closes on itself.
func edges(r repres.Row, periodic bool) int {
	if periodic {
		return r.N
	}
	return r.N - 1
}

func (m *Mesh) fan(pole int, r repres.Row, periodic bool) {
	for i := range edges(r, periodic) {
		m.addCell(pole, r.Offset+i, r.Offset+(i+1)%r.N)
	}
}

func (m *Mesh) quads(north, south repres.Row, periodic bool) {
	for i := range edges(north, periodic) {
		next := (i + 1) % north.N
		m.addCell(north.Offset+i, north.Offset+next, south.Offset+next, south.Offset+i)
	}
}

// zipper walks both rows eastwards, always advancing the row whose next
// point is further west.
func (m *Mesh) zipper(north, south repres.Row, periodic bool) {
	en, es := edges(north, periodic), edges(south, periodic)
	i, k := 0, 0
	for i < en || k < es {
		advanceNorth := k == es || (i < en && north.Lon(i+1) <= south.Lon(k+1))
		if advanceNorth {
			m.addCell(north.Offset+i, north.Offset+(i+1)%north.N, south.Offset+k%south.N)
			i++
		} else {
			m.addCell(north.Offset+i%north.N, south.Offset+(k+1)%south.N, south.Offset+k)
			k++
		}
	}
}
