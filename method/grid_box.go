// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package method

import (
	"fmt"
	"math"

	"github.com/2dChan/s2regrid/cache"
	"github.com/2dChan/s2regrid/geometry"
	"github.com/2dChan/s2regrid/repres"
	"github.com/2dChan/s2regrid/weights"
)

// overlapEpsilon is the relative overlap below which two boxes are taken
// to share only an edge.
const overlapEpsilon = 1e-10

// GridBox weights each input grid box by its overlap with the output box.
// The statistics variant always normalises by the output box area so that
// the row spans exactly the input boxes a statistic is taken over.
type GridBox struct {
	opts       Options
	statistics bool
	points     *cache.Memory[*pointIndex]
}

// NewGridBox returns the grid-box-average method, or grid-box-statistics
// when statistics is set.
func NewGridBox(opts Options, statistics bool) (*GridBox, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	switch opts.Normalisation {
	case InputArea, OutputArea:
	default:
		return nil, fmt.Errorf("method: unknown normalisation %v", opts.Normalisation)
	}
	points, err := newPointCache(opts)
	if err != nil {
		return nil, err
	}
	return &GridBox{opts: opts, statistics: statistics, points: points}, nil
}

// Name returns GridBoxAverageName or GridBoxStatisticsName.
func (gb *GridBox) Name() string {
	if gb.statistics {
		return GridBoxStatisticsName
	}
	return GridBoxAverageName
}

// Digest describes the normalisation.
func (gb *GridBox) Digest() string {
	return "normalisation=" + gb.normalisation().String()
}

func (gb *GridBox) normalisation() Normalisation {
	if gb.statistics {
		return OutputArea
	}
	return gb.opts.Normalisation
}

// Assemble returns the grid-box weights from in to out. The output domain
// must lie inside the input domain.
func (gb *GridBox) Assemble(in, out repres.Representation) (*weights.Matrix, error) {
	if !in.Domain().ContainsDomain(out.Domain()) {
		return nil, fmt.Errorf("%w: %s in %s", ErrDomainViolation, out.ID(), in.ID())
	}
	if err := checkGridded(in, out); err != nil {
		return nil, err
	}
	inBoxed, ok := in.(repres.Boxed)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoGridBoxes, in.ID())
	}
	outBoxed, ok := out.(repres.Boxed)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoGridBoxes, out.ID())
	}
	defer gb.opts.Metrics.AssembleTimer(gb.Name()).ObserveDuration()

	pi, err := pointIndexOf(gb.points, in)
	if err != nil {
		return nil, err
	}
	inBoxes, outBoxes := inBoxed.GridBoxes(), outBoxed.GridBoxes()
	maxInRadius := 0.0
	for i, b := range inBoxes {
		maxInRadius = math.Max(maxInRadius, boxRadius(pi.points[i], b))
	}

	norm := gb.normalisation()
	var ts []weights.Triplet
	for j, p := range out.Points() {
		ob := outBoxes[j]
		outArea := ob.Area()
		v := p.Vector()
		nearest := pi.index.KNearest(v, 1)
		if len(nearest) == 0 || outArea <= 0 {
			continue
		}
		radius := math.Max(2*nearest[0].Distance, boxRadius(p, ob)+maxInRadius)
		for _, n := range pi.index.WithinRadius(v, radius) {
			ib := inBoxes[n.Index]
			overlap := ob.IntersectionArea(ib)
			if overlap <= overlapEpsilon*outArea {
				continue
			}
			w := overlap / outArea
			if norm == InputArea {
				w = overlap / ib.Area()
			}
			ts = append(ts, weights.Triplet{Row: j, Col: n.Index, Value: w})
		}
	}
	return weights.FromTriplets(out.NumberOfPoints(), in.NumberOfPoints(), ts), nil
}

// boxRadius returns the chord distance from centre to the furthest corner of b.
func boxRadius(centre geometry.LatLon, b geometry.Box) float64 {
	c := centre.Vector()
	r := 0.0
	for _, corner := range b.Corners() {
		r = math.Max(r, geometry.Chord(c, corner.Vector()))
	}
	return r
}

// Statistic reduces the values a grid-box-statistics row spans.
type Statistic int

const (
	// Mean is the overlap-weighted mean.
	Mean Statistic = iota
	// Minimum is the smallest value with non-zero overlap.
	Minimum
	// Maximum is the largest value with non-zero overlap.
	Maximum
)

// ParseStatistic returns the Statistic named s.
func ParseStatistic(s string) (Statistic, error) {
	switch s {
	case "", "mean":
		return Mean, nil
	case "minimum", "min":
		return Minimum, nil
	case "maximum", "max":
		return Maximum, nil
	}
	return 0, fmt.Errorf("method: unknown statistic %q", s)
}

// Reduce applies s to the values each row of m spans, skipping missing
// values. Rows with no present value produce missing.
func Reduce(m *weights.Matrix, values []float64, s Statistic, missing float64) []float64 {
	rows, _ := m.Dims()
	out := make([]float64, rows)
	for i := range rows {
		cols, vals := m.Row(i)
		var (
			acc, sum float64
			n        int
		)
		for k, c := range cols {
			v := values[c]
			if weights.IsMissing(v, missing) {
				continue
			}
			switch {
			case s == Mean:
				acc += vals[k] * v
				sum += vals[k]
			case n == 0:
				acc = v
			case s == Minimum:
				acc = math.Min(acc, v)
			case s == Maximum:
				acc = math.Max(acc, v)
			}
			n++
		}
		switch {
		case n == 0:
			out[i] = missing
		case s == Mean:
			out[i] = acc / sum
		default:
			out[i] = acc
		}
	}
	return out
}
