// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package repres

import (
	"iter"

	"github.com/2dChan/s2regrid/geometry"
)

// Spectral is a triangular spherical-harmonic truncation T<Truncation>.
// It has no grid points.
type Spectral struct {
	Truncation int
}

func (s *Spectral) representation() {}

// NumberOfPoints returns the number of real coefficients,
// (T+1)(T+2) for complex pairs.
func (s *Spectral) NumberOfPoints() int {
	return (s.Truncation + 1) * (s.Truncation + 2)
}

// Domain is always global.
func (s *Spectral) Domain() Domain {
	return GlobalDomain()
}

// Points yields nothing.
func (s *Spectral) Points() iter.Seq2[int, geometry.LatLon] {
	return func(func(int, geometry.LatLon) bool) {}
}

// ID returns the content hash of the truncation.
func (s *Spectral) ID() string {
	return hashID("spectral", nil, []int{s.Truncation})
}

// MeshHints reports no structure.
func (s *Spectral) MeshHints() MeshHints {
	return MeshHints{}
}
