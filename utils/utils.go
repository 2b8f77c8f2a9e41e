// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package utils provides point and field generators for tests, benchmarks
// and examples.
package utils

import (
	"math"
	"math/rand"

	"github.com/2dChan/s2regrid/geometry"
	"github.com/2dChan/s2regrid/repres"
)

// GenerateRandomPoints returns cnt points spread uniformly over the sphere.
// The seed parameter ensures reproducibility.
func GenerateRandomPoints(cnt int, seed int64) []geometry.LatLon {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	points := make([]geometry.LatLon, cnt)
	for i := range cnt {
		lat := math.Asin(2*random.Float64()-1) * 180 / math.Pi
		lon := random.Float64() * 360
		points[i] = geometry.NewLatLon(lat, lon)
	}
	return points
}

// Sample evaluates f at every point of r.
func Sample(r repres.Representation, f func(geometry.LatLon) float64) []float64 {
	values := make([]float64, r.NumberOfPoints())
	for i, p := range r.Points() {
		values[i] = f(p)
	}
	return values
}

// Constant returns a field function equal to c everywhere.
func Constant(c float64) func(geometry.LatLon) float64 {
	return func(geometry.LatLon) float64 { return c }
}

// Wave is a smooth analytic field, continuous across the poles and the
// date line.
func Wave(p geometry.LatLon) float64 {
	lat := p.Lat * math.Pi / 180
	lon := p.Lon * math.Pi / 180
	return 2 + math.Pow(math.Cos(lat), 2)*math.Cos(2*lon)
}
