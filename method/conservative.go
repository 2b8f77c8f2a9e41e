// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package method

import (
	"fmt"

	"github.com/2dChan/s2regrid/mesh"
	"github.com/2dChan/s2regrid/repres"
	"github.com/2dChan/s2regrid/weights"
)

// Conservative is the mass-weighted transpose of the finite-element
// interpolation from the output mesh back to the input points:
//
//	W = M_out⁻¹ · Aᵀ · M_in
//
// where A interpolates from out to in and M holds node areas. The
// area-weighted integral Σ M_out·(W·x) equals Σ M_in·x whenever every input
// point is located in the output mesh.
//
// An output node receives weight only from input points inside its cells,
// so going from a coarse input to a finer output leaves empty rows. Those
// points are missing after Execute; the integral still holds.
type Conservative struct {
	fe *FiniteElement
}

// NewConservative returns a conservative method.
func NewConservative(opts Options) (*Conservative, error) {
	switch opts.NodeAreas {
	case mesh.Lumped, mesh.Voronoi:
	default:
		return nil, fmt.Errorf("method: unknown node areas %v", opts.NodeAreas)
	}
	fe, err := NewFiniteElement(opts)
	if err != nil {
		return nil, err
	}
	return &Conservative{fe: fe}, nil
}

// Name returns ConservativeName.
func (cm *Conservative) Name() string {
	return ConservativeName
}

// Digest describes the node areas and the underlying finite-element options.
func (cm *Conservative) Digest() string {
	return fmt.Sprintf("areas=%v;%s", cm.fe.opts.NodeAreas, cm.fe.Digest())
}

// Assemble returns the conservative weights from in to out.
func (cm *Conservative) Assemble(in, out repres.Representation) (*weights.Matrix, error) {
	if err := checkGridded(in, out); err != nil {
		return nil, err
	}
	defer cm.fe.opts.Metrics.AssembleTimer(cm.Name()).ObserveDuration()

	inAreas, err := cm.nodeAreas(in)
	if err != nil {
		return nil, err
	}
	outAreas, err := cm.nodeAreas(out)
	if err != nil {
		return nil, err
	}
	a, err := cm.fe.assemble(out, in)
	if err != nil {
		return nil, err
	}
	ts := a.Triplets()
	kept := ts[:0]
	for _, t := range ts {
		i, j := t.Row, t.Col
		if outAreas[j] <= 0 {
			continue
		}
		kept = append(kept, weights.Triplet{Row: j, Col: i, Value: t.Value * inAreas[i] / outAreas[j]})
	}
	return weights.FromTriplets(out.NumberOfPoints(), in.NumberOfPoints(), kept), nil
}

// NodeAreas returns the area attributed to each point of r.
func (cm *Conservative) NodeAreas(r repres.Representation) ([]float64, error) {
	if err := checkGridded(r); err != nil {
		return nil, err
	}
	return cm.nodeAreas(r)
}

func (cm *Conservative) nodeAreas(r repres.Representation) ([]float64, error) {
	m, err := cm.fe.Mesh(r)
	if err != nil {
		return nil, err
	}
	areas, err := mesh.NodeAreas(m, cm.fe.opts.NodeAreas)
	if err != nil {
		return nil, fmt.Errorf("method: %w", err)
	}
	return areas[:m.NumReal], nil
}
