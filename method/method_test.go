// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package method

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/2dChan/s2regrid/cache"
	"github.com/2dChan/s2regrid/geometry"
	"github.com/2dChan/s2regrid/mesh"
	"github.com/2dChan/s2regrid/metrics"
	"github.com/2dChan/s2regrid/repres"
	"github.com/2dChan/s2regrid/search"
	"github.com/2dChan/s2regrid/utils"
	"github.com/2dChan/s2regrid/weights"
	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const rowSumTolerance = 1e-9

// New

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{FiniteElementName, FiniteElementName},
		{NearestNeighbourName, NearestNeighbourName},
		{"knn", NearestNeighbourName},
		{GridBoxAverageName, GridBoxAverageName},
		{GridBoxStatisticsName, GridBoxStatisticsName},
		{ConservativeName, ConservativeName},
	}
	for _, tt := range tests {
		m, err := New(tt.name, Options{})
		if err != nil {
			t.Errorf("New(%q) error = %v, want nil", tt.name, err)
			continue
		}
		if got := m.Name(); got != tt.want {
			t.Errorf("New(%q).Name() = %q, want %q", tt.name, got, tt.want)
		}
		if m.Digest() == "" {
			t.Errorf("New(%q).Digest() is empty", tt.name)
		}
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New("bilinear", Options{}); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("New(bilinear) error = %v, want %v", err, ErrUnknownMethod)
	}
	invalid := []Options{
		{K: -1},
		{DistanceTolerance: -1},
		{SearchFraction: 2},
	}
	for _, opts := range invalid {
		if _, err := New(NearestNeighbourName, opts); err == nil {
			t.Errorf("New(%+v) error = nil, want non-nil", opts)
		}
	}
}

func TestDigest_DependsOnOptions(t *testing.T) {
	a, _ := New(NearestNeighbourName, Options{K: 4})
	b, _ := New(NearestNeighbourName, Options{K: 8})
	if a.Digest() == b.Digest() {
		t.Errorf("Digest() = %q for K 4 and 8, want different", a.Digest())
	}
	avg, _ := New(GridBoxAverageName, Options{Normalisation: OutputArea})
	stats, _ := New(GridBoxStatisticsName, Options{})
	if avg.Digest() != stats.Digest() {
		t.Errorf("Digest() = %q and %q, want equal for output-area normalisation", avg.Digest(), stats.Digest())
	}
}

func TestAssemble_NotGridded(t *testing.T) {
	spectral := &repres.Spectral{Truncation: 21}
	grid := mustLatLon(t, 10)
	for _, name := range []string{FiniteElementName, NearestNeighbourName, ConservativeName} {
		m, _ := New(name, Options{})
		if _, err := m.Assemble(spectral, grid); !errors.Is(err, ErrNotGridded) {
			t.Errorf("%s.Assemble(spectral, grid) error = %v, want %v", name, err, ErrNotGridded)
		}
	}
}

// FiniteElement

func TestFiniteElement_RowsSumToOne(t *testing.T) {
	tests := []struct {
		name string
		in   repres.Representation
		out  repres.Representation
	}{
		{"latlon to octahedral", mustLatLon(t, 10), mustOctahedral(t, 8)},
		{"octahedral to latlon", mustOctahedral(t, 8), mustLatLon(t, 5)},
		{"unstructured to octahedral", repres.NewUnstructured(utils.GenerateRandomPoints(500, 1)), mustOctahedral(t, 8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := mustFiniteElement(t, Options{})
			w, err := fe.Assemble(tt.in, tt.out)
			if err != nil {
				t.Fatalf("Assemble(...) error = %v, want nil", err)
			}
			assertDims(t, w, tt.out.NumberOfPoints(), tt.in.NumberOfPoints())
			assertRowsSumToOne(t, w)
		})
	}
}

func TestFiniteElement_Accuracy(t *testing.T) {
	in, out := mustLatLon(t, 5), mustOctahedral(t, 16)
	fe := mustFiniteElement(t, Options{})
	w, err := fe.Assemble(in, out)
	if err != nil {
		t.Fatalf("Assemble(...) error = %v, want nil", err)
	}
	got := w.Multiply(utils.Sample(in, utils.Wave))
	want := utils.Sample(out, utils.Wave)
	for i := range got {
		if math.Abs(got[i]-want[i]) > 0.02 {
			t.Fatalf("value %d = %v, want %v within 0.02", i, got[i], want[i])
		}
	}
}

func TestFiniteElement_OutsideDomain(t *testing.T) {
	in, err := repres.NewRegionalLatLon(60, 0, 0, 60, 10, 10)
	if err != nil {
		t.Fatalf("NewRegionalLatLon(...) error = %v, want nil", err)
	}
	out := repres.NewUnstructured([]geometry.LatLon{
		geometry.NewLatLon(30, 30),
		geometry.NewLatLon(-45, 200),
		geometry.NewLatLon(55, 5),
	})
	w, err := mustFiniteElement(t, Options{}).Assemble(in, out)
	if err != nil {
		t.Fatalf("Assemble(...) error = %v, want nil", err)
	}
	if diff := cmp.Diff([]int{1}, w.EmptyRows()); diff != "" {
		t.Errorf("EmptyRows() mismatch (-want +got):\n%s", diff)
	}
	for _, i := range []int{0, 2} {
		if sum := w.RowSum(i); math.Abs(sum-1) > rowSumTolerance {
			t.Errorf("RowSum(%d) = %v, want 1", i, sum)
		}
	}
	// (30, 30) is a node of the input grid.
	if got := w.At(0, 3*7+3); math.Abs(got-1) > rowSumTolerance {
		t.Errorf("At(0, node) = %v, want 1", got)
	}
}

func TestFiniteElement_NoVirtualColumns(t *testing.T) {
	in := mustOctahedral(t, 8)
	out := repres.NewUnstructured([]geometry.LatLon{
		geometry.NewLatLon(89.9, 0),
		geometry.NewLatLon(-89.9, 120),
	})
	w, err := mustFiniteElement(t, Options{}).Assemble(in, out)
	if err != nil {
		t.Fatalf("Assemble(...) error = %v, want nil", err)
	}
	assertRowsSumToOne(t, w)
	for _, tr := range w.Triplets() {
		if tr.Col >= in.NumberOfPoints() {
			t.Errorf("weight on column %d beyond the real nodes", tr.Col)
		}
	}
}

func TestFiniteElement_PoleRowsAgree(t *testing.T) {
	in, out := mustOctahedral(t, 16), mustLatLon(t, 1)
	w, err := mustFiniteElement(t, Options{}).Assemble(in, out)
	if err != nil {
		t.Fatalf("Assemble(...) error = %v, want nil", err)
	}
	for _, pole := range []float64{90, -90} {
		var rows []int
		for i, p := range out.Points() {
			if p.IsPole() && p.Lat == pole {
				rows = append(rows, i)
			}
		}
		if len(rows) != 360 {
			t.Fatalf("points at latitude %v = %d, want 360", pole, len(rows))
		}
		wantCols, wantVals := w.Row(rows[0])
		for _, i := range rows[1:] {
			cols, vals := w.Row(i)
			if diff := cmp.Diff(wantCols, cols, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("row %d columns mismatch (-want +got):\n%s", i, diff)
			}
			if diff := cmp.Diff(wantVals, vals, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("row %d weights mismatch (-want +got):\n%s", i, diff)
			}
		}
	}
}

func TestFiniteElement_MeshCached(t *testing.T) {
	reg, err := cache.NewRegistry(cache.Footprint{})
	if err != nil {
		t.Fatalf("cache.NewRegistry(...) error = %v, want nil", err)
	}
	fe := mustFiniteElement(t, Options{Registry: reg})
	in := mustLatLon(t, 10)
	a, err := fe.Mesh(in)
	if err != nil {
		t.Fatalf("Mesh(...) error = %v, want nil", err)
	}
	b, err := fe.Mesh(in)
	if err != nil {
		t.Fatalf("second Mesh(...) error = %v, want nil", err)
	}
	if a != b {
		t.Errorf("Mesh(...) rebuilt the mesh")
	}
	usage := reg.Usage()
	if len(usage) != 1 || usage[0].Name != "mesh" || usage[0].Footprint.Memory == 0 {
		t.Errorf("registry usage = %+v, want one non-empty mesh cache", usage)
	}
}

func TestProject_ProjectionError(t *testing.T) {
	mi := singleTriangle()
	points := []geometry.LatLon{
		geometry.NewLatLon(2, 2),
		geometry.NewLatLon(-50, 200),
		geometry.NewLatLon(60, 100),
	}
	_, err := mi.project(points, repres.GlobalDomain(), 0.2)
	var pe *ProjectionError
	if !errors.As(err, &pe) {
		t.Fatalf("project(...) error = %v, want *ProjectionError", err)
	}
	if pe.Count != 2 {
		t.Errorf("Count = %v, want 2", pe.Count)
	}
	if diff := cmp.Diff(points[1:], pe.Points); diff != "" {
		t.Errorf("Points mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(pe.Error(), "2 points") {
		t.Errorf("Error() = %q, want the failure count", pe.Error())
	}
}

func TestProjectionError_Truncated(t *testing.T) {
	pe := &ProjectionError{Points: make([]geometry.LatLon, MaxReportedFailures), Count: MaxReportedFailures + 5}
	if !strings.HasSuffix(pe.Error(), "...") {
		t.Errorf("Error() = %q, want a truncation marker", pe.Error())
	}
}

func TestProject_PlanarFallback(t *testing.T) {
	mi := singleTriangle()
	w, ok := mi.intersect2D(0, geometry.NewLatLon(2, 2))
	if !ok {
		t.Fatalf("intersect2D(inside) = false, want true")
	}
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if math.Abs(sum-1) > rowSumTolerance {
		t.Errorf("planar weights sum = %v, want 1", sum)
	}
	if _, ok := mi.intersect2D(0, geometry.NewLatLon(60, 100)); ok {
		t.Errorf("intersect2D(outside) = true, want false")
	}
}

// NearestNeighbour

func TestNearestNeighbour_Weights(t *testing.T) {
	in := repres.NewUnstructured([]geometry.LatLon{
		geometry.NewLatLon(0, 0),
		geometry.NewLatLon(0, 10),
		geometry.NewLatLon(0, 90),
	})
	out := repres.NewUnstructured([]geometry.LatLon{geometry.NewLatLon(0, 0)})
	w, err := mustMethod(t, NearestNeighbourName, Options{K: 2}).Assemble(in, out)
	if err != nil {
		t.Fatalf("Assemble(...) error = %v, want nil", err)
	}
	d := geometry.Chord(geometry.NewLatLon(0, 0).Vector(), geometry.NewLatLon(0, 10).Vector())
	w0, w1 := 1.0, 1/(1+d*d)
	want := []float64{w0 / (w0 + w1), w1 / (w0 + w1), 0}
	for j, v := range want {
		if got := w.At(0, j); math.Abs(got-v) > 1e-12 {
			t.Errorf("At(0, %d) = %v, want %v", j, got, v)
		}
	}
}

func TestNearestNeighbour_EquidistantWidening(t *testing.T) {
	in := repres.NewUnstructured([]geometry.LatLon{
		geometry.NewLatLon(0, 0),
		geometry.NewLatLon(0, 90),
		geometry.NewLatLon(0, 180),
		geometry.NewLatLon(0, 270),
	})
	out := repres.NewUnstructured([]geometry.LatLon{geometry.NewLatLon(90, 0)})

	tests := []struct {
		name      string
		tolerance float64
		wantMin   int
	}{
		{"tolerance", 1e-9, 4},
		{"far tolerance", 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := mustMethod(t, NearestNeighbourName, Options{K: 3, DistanceTolerance: tt.tolerance}).Assemble(in, out)
			if err != nil {
				t.Fatalf("Assemble(...) error = %v, want nil", err)
			}
			if got := w.NonZeros(); got < tt.wantMin {
				t.Errorf("row entries = %v, want at least %v", got, tt.wantMin)
			}
			assertRowsSumToOne(t, w)
		})
	}
}

func TestNearestNeighbour_NoWideningWhenSpread(t *testing.T) {
	in := repres.NewUnstructured([]geometry.LatLon{
		geometry.NewLatLon(0, 0),
		geometry.NewLatLon(0, 10),
		geometry.NewLatLon(0, 20),
		geometry.NewLatLon(0, 30),
	})
	out := repres.NewUnstructured([]geometry.LatLon{geometry.NewLatLon(0, 0)})
	w, err := mustMethod(t, NearestNeighbourName, Options{K: 3, DistanceTolerance: 1e-9}).Assemble(in, out)
	if err != nil {
		t.Fatalf("Assemble(...) error = %v, want nil", err)
	}
	if got := w.NonZeros(); got != 3 {
		t.Errorf("row entries = %v, want 3", got)
	}
}

func TestNearestNeighbour_Metrics(t *testing.T) {
	mc := metrics.NewCollector(prometheus.NewRegistry(), "test")
	nn := mustMethod(t, NearestNeighbourName, Options{Metrics: mc})
	in, out := mustLatLon(t, 10), mustOctahedral(t, 8)
	for range 2 {
		if _, err := nn.Assemble(in, out); err != nil {
			t.Fatalf("Assemble(...) error = %v, want nil", err)
		}
	}
	if got := testutil.CollectAndCount(mc.AssembleDuration); got != 1 {
		t.Errorf("assemble duration series = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mc.CacheHits.WithLabelValues("points")); got != 1 {
		t.Errorf("points cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mc.CacheMisses.WithLabelValues("points")); got != 1 {
		t.Errorf("points cache misses = %v, want 1", got)
	}
}

// GridBox

func TestGridBox_Containment(t *testing.T) {
	in := mustLatLon(t, 10)
	out, err := repres.NewRegionalLatLon(40, 20, 20, 40, 10, 10)
	if err != nil {
		t.Fatalf("NewRegionalLatLon(...) error = %v, want nil", err)
	}
	w, err := mustMethod(t, GridBoxAverageName, Options{}).Assemble(in, out)
	if err != nil {
		t.Fatalf("Assemble(...) error = %v, want nil", err)
	}
	for j, p := range out.Points() {
		cols, vals := w.Row(j)
		want := int(math.Round((90-p.Lat)/10))*36 + int(math.Round(p.Lon/10))
		if len(cols) != 1 || cols[0] != want || math.Abs(vals[0]-1) > 1e-12 {
			t.Errorf("row %d = %v %v, want [%d] [1]", j, cols, vals, want)
		}
	}
}

func TestGridBox_Normalisation(t *testing.T) {
	in, out := mustLatLon(t, 10), mustLatLon(t, 20)

	avg, err := mustMethod(t, GridBoxAverageName, Options{Normalisation: OutputArea}).Assemble(in, out)
	if err != nil {
		t.Fatalf("Assemble(output area) error = %v, want nil", err)
	}
	assertRowsSumToOne(t, avg)

	mass, err := mustMethod(t, GridBoxAverageName, Options{}).Assemble(in, out)
	if err != nil {
		t.Fatalf("Assemble(input area) error = %v, want nil", err)
	}
	// Every input box is shared out completely among the output boxes.
	assertRowsSumToOne(t, mass.Transpose())
}

func TestGridBox_DomainViolation(t *testing.T) {
	regional, err := repres.NewRegionalLatLon(40, 20, 20, 40, 10, 10)
	if err != nil {
		t.Fatalf("NewRegionalLatLon(...) error = %v, want nil", err)
	}
	tests := []struct {
		name string
		out  repres.Representation
	}{
		{"global grid", mustLatLon(t, 10)},
		{"unstructured", repres.NewUnstructured(utils.GenerateRandomPoints(10, 1))},
	}
	for _, tt := range tests {
		if _, err := mustMethod(t, GridBoxAverageName, Options{}).Assemble(regional, tt.out); !errors.Is(err, ErrDomainViolation) {
			t.Errorf("Assemble(regional, %s) error = %v, want %v", tt.name, err, ErrDomainViolation)
		}
	}
}

func TestGridBox_NoGridBoxes(t *testing.T) {
	in := repres.NewUnstructured(utils.GenerateRandomPoints(10, 1))
	if _, err := mustMethod(t, GridBoxAverageName, Options{}).Assemble(in, mustLatLon(t, 10)); !errors.Is(err, ErrNoGridBoxes) {
		t.Errorf("Assemble(unstructured, grid) error = %v, want %v", err, ErrNoGridBoxes)
	}
}

func TestReduce(t *testing.T) {
	const missing = 9999
	m := weights.FromTriplets(3, 3, []weights.Triplet{
		{Row: 0, Col: 0, Value: 0.25},
		{Row: 0, Col: 1, Value: 0.75},
		{Row: 1, Col: 1, Value: 0.5},
		{Row: 1, Col: 2, Value: 0.5},
	})
	values := []float64{4, 8, missing}

	tests := []struct {
		stat Statistic
		want []float64
	}{
		{Mean, []float64{7, 8, missing}},
		{Minimum, []float64{4, 8, missing}},
		{Maximum, []float64{8, 8, missing}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Reduce(m, values, tt.stat, missing)); diff != "" {
			t.Errorf("Reduce(%v) mismatch (-want +got):\n%s", tt.stat, diff)
		}
	}
}

func TestParseStatistic(t *testing.T) {
	for name, want := range map[string]Statistic{"": Mean, "mean": Mean, "min": Minimum, "maximum": Maximum} {
		got, err := ParseStatistic(name)
		if err != nil || got != want {
			t.Errorf("ParseStatistic(%q) = %v, %v, want %v, nil", name, got, err, want)
		}
	}
	if _, err := ParseStatistic("median"); err == nil {
		t.Errorf("ParseStatistic(median) error = nil, want non-nil")
	}
}

// Conservative

func TestConservative_ConservesIntegral(t *testing.T) {
	tests := []struct {
		name string
		in   repres.Representation
		out  repres.Representation
		opts Options
	}{
		{"octahedral to latlon", mustOctahedral(t, 8), mustLatLon(t, 10), Options{}},
		{"latlon to latlon", mustLatLon(t, 5), mustLatLon(t, 10), Options{}},
		{
			"voronoi areas",
			repres.NewUnstructured(utils.GenerateRandomPoints(300, 2)),
			repres.NewUnstructured(utils.GenerateRandomPoints(200, 3)),
			Options{NodeAreas: mesh.Voronoi},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm, err := NewConservative(tt.opts)
			if err != nil {
				t.Fatalf("NewConservative(...) error = %v, want nil", err)
			}
			w, err := cm.Assemble(tt.in, tt.out)
			if err != nil {
				t.Fatalf("Assemble(...) error = %v, want nil", err)
			}
			assertDims(t, w, tt.out.NumberOfPoints(), tt.in.NumberOfPoints())

			x := utils.Sample(tt.in, utils.Wave)
			y := w.Multiply(x)
			inAreas := mustNodeAreas(t, cm, tt.in)
			outAreas := mustNodeAreas(t, cm, tt.out)
			want, got := dot(inAreas, x), dot(outAreas, y)
			if math.Abs(got-want) > 1e-9*math.Abs(want) {
				t.Errorf("output integral = %v, want %v", got, want)
			}
		})
	}
}

func TestConservative_CoarseToFineLeavesEmptyRows(t *testing.T) {
	cm, err := NewConservative(Options{})
	if err != nil {
		t.Fatalf("NewConservative(...) error = %v, want nil", err)
	}
	// 544 input points touch at most 2176 of the 5248 output nodes.
	in, out := mustOctahedral(t, 8), mustOctahedral(t, 32)
	w, err := cm.Assemble(in, out)
	if err != nil {
		t.Fatalf("Assemble(...) error = %v, want nil", err)
	}
	empty := w.EmptyRows()
	if len(empty) == 0 || len(empty) == out.NumberOfPoints() {
		t.Errorf("len(EmptyRows()) = %v, want in (0, %v)", len(empty), out.NumberOfPoints())
	}

	x := utils.Sample(in, utils.Wave)
	y := w.Multiply(x)
	for _, i := range empty {
		if y[i] != 0 {
			t.Errorf("y[%d] = %v, want 0", i, y[i])
		}
	}
	want, got := dot(mustNodeAreas(t, cm, in), x), dot(mustNodeAreas(t, cm, out), y)
	if math.Abs(got-want) > 1e-9*math.Abs(want) {
		t.Errorf("output integral = %v, want %v", got, want)
	}
}

func TestConservative_VoronoiNeedsTriangulation(t *testing.T) {
	cm, err := NewConservative(Options{NodeAreas: mesh.Voronoi})
	if err != nil {
		t.Fatalf("NewConservative(...) error = %v, want nil", err)
	}
	if _, err := cm.Assemble(mustLatLon(t, 10), mustOctahedral(t, 8)); !errors.Is(err, mesh.ErrNoTriangulation) {
		t.Errorf("Assemble(structured) error = %v, want %v", err, mesh.ErrNoTriangulation)
	}
}

// Helpers

func mustLatLon(t *testing.T, inc float64) *repres.RegularLatLon {
	t.Helper()
	g, err := repres.NewGlobalLatLon(inc, inc)
	if err != nil {
		t.Fatalf("NewGlobalLatLon(%v) error = %v, want nil", inc, err)
	}
	return g
}

func mustOctahedral(t *testing.T, n int) *repres.ReducedGaussian {
	t.Helper()
	g, err := repres.NewOctahedral(n)
	if err != nil {
		t.Fatalf("NewOctahedral(%v) error = %v, want nil", n, err)
	}
	return g
}

func mustMethod(t *testing.T, name string, opts Options) Method {
	t.Helper()
	m, err := New(name, opts)
	if err != nil {
		t.Fatalf("New(%q) error = %v, want nil", name, err)
	}
	return m
}

func mustFiniteElement(t *testing.T, opts Options) *FiniteElement {
	t.Helper()
	fe, err := NewFiniteElement(opts)
	if err != nil {
		t.Fatalf("NewFiniteElement(...) error = %v, want nil", err)
	}
	return fe
}

func mustNodeAreas(t *testing.T, cm *Conservative, r repres.Representation) []float64 {
	t.Helper()
	areas, err := cm.NodeAreas(r)
	if err != nil {
		t.Fatalf("NodeAreas(...) error = %v, want nil", err)
	}
	return areas
}

func assertDims(t *testing.T, w *weights.Matrix, rows, cols int) {
	t.Helper()
	if r, c := w.Dims(); r != rows || c != cols {
		t.Fatalf("Dims() = (%v, %v), want (%v, %v)", r, c, rows, cols)
	}
}

func assertRowsSumToOne(t *testing.T, w *weights.Matrix) {
	t.Helper()
	rows, _ := w.Dims()
	for i := range rows {
		if sum := w.RowSum(i); math.Abs(sum-1) > rowSumTolerance {
			t.Fatalf("RowSum(%d) = %v, want 1", i, sum)
		}
	}
}

// singleTriangle returns a mesh index over one triangle near (0, 0).
func singleTriangle() *meshIndex {
	corners := []geometry.LatLon{
		geometry.NewLatLon(0, 0),
		geometry.NewLatLon(0, 10),
		geometry.NewLatLon(10, 0),
	}
	m := &mesh.Mesh{NumReal: len(corners)}
	var centroid r3.Vector
	for _, p := range corners {
		m.Nodes = append(m.Nodes, mesh.Node{LatLon: p, Point: p.Vector()})
		centroid = centroid.Add(p.Vector())
	}
	m.Cells = []mesh.Cell{{Nodes: [4]int{0, 1, 2}, Size: 3}}
	m.Centroids = []r3.Vector{centroid.Normalize()}
	return &meshIndex{
		mesh:    m,
		index:   search.Build(m.Centroids),
		edgeEps: []float64{geometry.EdgeEpsilon(m.Triangle(m.Cells[0]).Area())},
	}
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Benchmarks

func BenchmarkFiniteElement_Assemble(b *testing.B) {
	in, err := repres.NewGlobalLatLon(2, 2)
	if err != nil {
		b.Fatalf("NewGlobalLatLon(2, 2) error = %v, want nil", err)
	}
	out, err := repres.NewOctahedral(32)
	if err != nil {
		b.Fatalf("NewOctahedral(32) error = %v, want nil", err)
	}
	fe, err := NewFiniteElement(Options{})
	if err != nil {
		b.Fatalf("NewFiniteElement(...) error = %v, want nil", err)
	}
	for b.Loop() {
		if _, err := fe.Assemble(in, out); err != nil {
			b.Fatalf("Assemble(...) error = %v, want nil", err)
		}
	}
}
