// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package method

import (
	"fmt"

	"github.com/2dChan/s2regrid/cache"
	"github.com/2dChan/s2regrid/repres"
	"github.com/2dChan/s2regrid/search"
	"github.com/2dChan/s2regrid/weights"
	"github.com/golang/geo/r3"
)

// radiusSlack absorbs rounding when a distance is turned back into a radius.
const radiusSlack = 1e-12

// NearestNeighbour weights the K input points closest to each output point
// by 1/(1+d²), d being the chord distance, normalised over the row.
type NearestNeighbour struct {
	opts   Options
	points *cache.Memory[*pointIndex]
}

// NewNearestNeighbour returns a nearest-neighbour method.
func NewNearestNeighbour(opts Options) (*NearestNeighbour, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	points, err := newPointCache(opts)
	if err != nil {
		return nil, err
	}
	return &NearestNeighbour{opts: opts, points: points}, nil
}

// Name returns NearestNeighbourName.
func (nn *NearestNeighbour) Name() string {
	return NearestNeighbourName
}

// Digest describes K and the distance tolerance.
func (nn *NearestNeighbour) Digest() string {
	return fmt.Sprintf("k=%d;tolerance=%g", nn.opts.K, nn.opts.DistanceTolerance)
}

// Assemble returns the nearest-neighbour weights from in to out.
func (nn *NearestNeighbour) Assemble(in, out repres.Representation) (*weights.Matrix, error) {
	if err := checkGridded(in, out); err != nil {
		return nil, err
	}
	defer nn.opts.Metrics.AssembleTimer(nn.Name()).ObserveDuration()

	pi, err := pointIndexOf(nn.points, in)
	if err != nil {
		return nil, err
	}
	var ts []weights.Triplet
	for j, p := range out.Points() {
		ns := neighbours(pi.index, p.Vector(), nn.opts.K, nn.opts.DistanceTolerance)
		sum := 0.0
		for _, n := range ns {
			sum += inverseDistance(n.Distance)
		}
		for _, n := range ns {
			ts = append(ts, weights.Triplet{Row: j, Col: n.Index, Value: inverseDistance(n.Distance) / sum})
		}
	}
	return weights.FromTriplets(out.NumberOfPoints(), in.NumberOfPoints(), ts), nil
}

// neighbours returns the k points nearest to p. When the k-th is within tol
// of the nearest, every point within tol of the nearest is returned, so
// the result may hold more than k points.
func neighbours(ix *search.Index, p r3.Vector, k int, tol float64) []search.Neighbour {
	ns := ix.KNearest(p, k)
	if len(ns) == 0 {
		return nil
	}
	nearest, furthest := ns[0].Distance, ns[len(ns)-1].Distance
	if furthest-nearest > tol {
		return ns
	}
	if wide := ix.WithinRadius(p, (nearest+tol)*(1+radiusSlack)); len(wide) > len(ns) {
		return wide
	}
	return ns
}

func inverseDistance(d float64) float64 {
	return 1 / (1 + d*d)
}

func pointIndexOf(c *cache.Memory[*pointIndex], r repres.Representation) (*pointIndex, error) {
	return c.GetOrCompute(r.ID(), func() (*pointIndex, error) {
		return buildPointIndex(r), nil
	})
}
