// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package repres

import (
	"math"
	"testing"

	"github.com/2dChan/s2regrid/geometry"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// RegularLatLon

func TestNewGlobalLatLon(t *testing.T) {
	g, err := NewGlobalLatLon(1, 1)
	if err != nil {
		t.Fatalf("NewGlobalLatLon(1, 1) error = %v, want nil", err)
	}
	if got, want := g.NumberOfPoints(), 181*360; got != want {
		t.Errorf("NumberOfPoints() = %v, want %v", got, want)
	}
	if !g.IsPeriodic() {
		t.Errorf("IsPeriodic() = false, want true")
	}
	if !g.Domain().IsGlobal() {
		t.Errorf("Domain().IsGlobal() = false, want true")
	}
}

func TestNewRegionalLatLon_Invalid(t *testing.T) {
	tests := []struct {
		name                     string
		north, west, south, east float64
		dlat, dlon               float64
	}{
		{"zero increment", 10, 0, 0, 10, 0, 1},
		{"inverted latitudes", 0, 0, 10, 10, 1, 1},
		{"not a multiple", 10, 0, 0, 10, 3, 1},
		{"overlapping longitudes", 10, 0, 0, 360, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegionalLatLon(tt.north, tt.west, tt.south, tt.east, tt.dlat, tt.dlon); err == nil {
				t.Errorf("NewRegionalLatLon(...) error = nil, want non-nil")
			}
		})
	}
}

func TestRegularLatLon_Points(t *testing.T) {
	g, err := NewRegionalLatLon(10, 350, 0, 10, 10, 10)
	if err != nil {
		t.Fatalf("NewRegionalLatLon(...) error = %v, want nil", err)
	}
	want := []geometry.LatLon{
		{Lat: 10, Lon: 350}, {Lat: 10, Lon: 0}, {Lat: 10, Lon: 10},
		{Lat: 0, Lon: 350}, {Lat: 0, Lon: 0}, {Lat: 0, Lon: 10},
	}
	got := Collect(g)
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Points() mismatch (-want +got):\n%s", diff)
	}

	// The sequence is restartable.
	if diff := cmp.Diff(got, Collect(g)); diff != "" {
		t.Errorf("second Points() mismatch (-want +got):\n%s", diff)
	}

	d := g.Domain()
	if d.IsPeriodic() {
		t.Errorf("Domain().IsPeriodic() = true, want false")
	}
	if !d.Contains(geometry.NewLatLon(5, 355)) || !d.Contains(geometry.NewLatLon(5, 5)) {
		t.Errorf("Domain().Contains(...) = false across the date line, want true")
	}
	if d.Contains(geometry.NewLatLon(5, 20)) {
		t.Errorf("Domain().Contains(5, 20) = true, want false")
	}
}

func TestRegularLatLon_GridBoxes(t *testing.T) {
	g, err := NewGlobalLatLon(10, 10)
	if err != nil {
		t.Fatalf("NewGlobalLatLon(10, 10) error = %v, want nil", err)
	}
	boxes := g.GridBoxes()
	if len(boxes) != g.NumberOfPoints() {
		t.Fatalf("len(GridBoxes()) = %v, want %v", len(boxes), g.NumberOfPoints())
	}
	total := 0.0
	for _, b := range boxes {
		total += b.Area()
	}
	if math.Abs(total-4*math.Pi) > 1e-9 {
		t.Errorf("sum of box areas = %v, want 4π", total)
	}
}

// ReducedGaussian

func TestGaussianLatitudes(t *testing.T) {
	lats := GaussianLatitudes(1)
	want := math.Asin(1/math.Sqrt(3)) * 180 / math.Pi
	if diff := cmp.Diff([]float64{want, -want}, lats, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("GaussianLatitudes(1) mismatch (-want +got):\n%s", diff)
	}

	lats = GaussianLatitudes(80)
	for i := 1; i < len(lats); i++ {
		if lats[i] >= lats[i-1] {
			t.Fatalf("GaussianLatitudes(80) not strictly decreasing at %d", i)
		}
	}
	if lats[0] >= 90 || lats[0] < 89 {
		t.Errorf("GaussianLatitudes(80)[0] = %v, want in [89, 90)", lats[0])
	}
}

func TestNewOctahedral(t *testing.T) {
	g, err := NewOctahedral(4)
	if err != nil {
		t.Fatalf("NewOctahedral(4) error = %v, want nil", err)
	}
	if diff := cmp.Diff([]int{20, 24, 28, 32, 32, 28, 24, 20}, g.PL); diff != "" {
		t.Errorf("PL mismatch (-want +got):\n%s", diff)
	}
	if got, want := g.NumberOfPoints(), 208; got != want {
		t.Errorf("NumberOfPoints() = %v, want %v", got, want)
	}
	hints := g.MeshHints()
	if len(hints.Rows) != 8 || !hints.Periodic {
		t.Errorf("MeshHints() = %+v, want 8 periodic rows", hints)
	}
	if got := hints.Rows[3].Offset; got != 20+24+28 {
		t.Errorf("Rows[3].Offset = %v, want %v", got, 72)
	}

	total := 0.0
	for _, b := range g.GridBoxes() {
		total += b.Area()
	}
	if math.Abs(total-4*math.Pi) > 1e-9 {
		t.Errorf("sum of box areas = %v, want 4π", total)
	}
}

func TestNewReducedGaussian_Invalid(t *testing.T) {
	if _, err := NewReducedGaussian(2, []int{4, 4, 4}); err == nil {
		t.Errorf("NewReducedGaussian(2, 3 rows) error = nil, want non-nil")
	}
	if _, err := NewReducedGaussian(1, []int{4, 0}); err == nil {
		t.Errorf("NewReducedGaussian(1, [4 0]) error = nil, want non-nil")
	}
	if _, err := NewOctahedral(0); err == nil {
		t.Errorf("NewOctahedral(0) error = nil, want non-nil")
	}
}

// Identity

func TestEqualAndID(t *testing.T) {
	ll1, _ := NewGlobalLatLon(1, 1)
	ll2, _ := NewGlobalLatLon(1, 1)
	ll3, _ := NewGlobalLatLon(2, 2)
	o1, _ := NewOctahedral(8)
	o2, _ := NewOctahedral(8)
	f8, _ := NewRegularGaussian(8)
	u1 := NewUnstructured([]geometry.LatLon{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}})
	u2 := NewUnstructured([]geometry.LatLon{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}})
	u3 := NewUnstructured([]geometry.LatLon{{Lat: 3, Lon: 4}, {Lat: 1, Lon: 2}})

	tests := []struct {
		name string
		a, b Representation
		want bool
	}{
		{"same lat-lon", ll1, ll2, true},
		{"different increments", ll1, ll3, false},
		{"same octahedral", o1, o2, true},
		{"octahedral vs full", o1, f8, false},
		{"same unstructured", u1, u2, true},
		{"reordered unstructured", u1, u3, false},
		{"different variants", ll1, o1, false},
		{"spectral", &Spectral{Truncation: 63}, &Spectral{Truncation: 63}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(...) = %v, want %v", got, tt.want)
			}
			if got := tt.a.ID() == tt.b.ID(); got != tt.want {
				t.Errorf("ID() equality = %v, want %v", got, tt.want)
			}
		})
	}
}

// Domain

func TestDomain_Contains(t *testing.T) {
	europe := Domain{North: 70, South: 30, West: 350, East: 400}
	tests := []struct {
		name string
		d    Domain
		p    geometry.LatLon
		want bool
	}{
		{"negative longitude", europe, geometry.NewLatLon(50, -5), true},
		{"shifted longitude", europe, geometry.NewLatLon(50, 355), true},
		{"east edge", europe, geometry.NewLatLon(50, 40), true},
		{"south edge", europe, geometry.NewLatLon(30, 0), true},
		{"east of domain", europe, geometry.NewLatLon(50, 45), false},
		{"north of domain", europe, geometry.NewLatLon(75, 0), false},
		{"global pole", GlobalDomain(), geometry.NewLatLon(90, 123), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestDomain_ContainsDomain(t *testing.T) {
	global := GlobalDomain()
	europe := Domain{North: 70, South: 30, West: 350, East: 400}
	tests := []struct {
		name string
		a, b Domain
		want bool
	}{
		{"global contains regional", global, europe, true},
		{"regional does not contain global", europe, global, false},
		{"self", europe, europe, true},
		{"inner box across date line", europe, Domain{North: 60, South: 40, West: 355, East: 365}, true},
		{"too far north", europe, Domain{North: 80, South: 40, West: 0, East: 10}, false},
		{"too far east", europe, Domain{North: 60, South: 40, West: 30, East: 50}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.ContainsDomain(tt.b); got != tt.want {
				t.Errorf("ContainsDomain(...) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpectral(t *testing.T) {
	s := &Spectral{Truncation: 1}
	if got := s.NumberOfPoints(); got != 6 {
		t.Errorf("NumberOfPoints() = %v, want 6", got)
	}
	if got := len(Collect(s)); got != 0 {
		t.Errorf("len(Collect(spectral)) = %v, want 0", got)
	}
}
