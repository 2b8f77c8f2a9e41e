// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2regrid

import (
	"fmt"

	"github.com/2dChan/s2regrid/repres"
	"github.com/2dChan/s2regrid/weights"
)

// LandSeaMasks weakens weights that link land to sea. A true value marks
// land. Without an Output mask each output point takes the mask of its
// heaviest contributor.
type LandSeaMasks struct {
	Input  []bool
	Output []bool
	// InputID and OutputID identify the masks in cache keys.
	InputID  string
	OutputID string
	// Factor multiplies mismatched weights before the row is renormalised.
	Factor float64
}

// ID describes the masks for cache keys. It is empty for nil masks.
func (l *LandSeaMasks) ID() string {
	if l == nil {
		return ""
	}
	return fmt.Sprintf("lsm;in=%s;out=%s;factor=%g", l.InputID, l.OutputID, l.Factor)
}

func (l *LandSeaMasks) validate(in, out repres.Representation) error {
	if l == nil {
		return nil
	}
	if len(l.Input) != in.NumberOfPoints() {
		return fmt.Errorf("%w: input mask has %d points, want %d", ErrMaskSize, len(l.Input), in.NumberOfPoints())
	}
	if l.Output != nil && len(l.Output) != out.NumberOfPoints() {
		return fmt.Errorf("%w: output mask has %d points, want %d", ErrMaskSize, len(l.Output), out.NumberOfPoints())
	}
	if l.Factor < 0 || l.Factor > 1 {
		return fmt.Errorf("s2regrid: land-sea factor %v must be in [0, 1]", l.Factor)
	}
	return nil
}

// Apply returns a masked copy of m. Rows whose weights would all vanish
// are kept unchanged.
func (l *LandSeaMasks) Apply(m *weights.Matrix) *weights.Matrix {
	rows, cols := m.Dims()
	var ts []weights.Triplet
	row := make([]float64, 0, 16)
	for i := range rows {
		idx, vals := m.Row(i)
		if len(idx) == 0 {
			continue
		}
		land := l.outputMask(i, idx, vals)
		row = row[:0]
		sum := 0.0
		for k, c := range idx {
			w := vals[k]
			if l.Input[c] != land {
				w *= l.Factor
			}
			row = append(row, w)
			sum += w
		}
		if sum == 0 {
			row, sum = append(row[:0], vals...), 1
		}
		for k, c := range idx {
			ts = append(ts, weights.Triplet{Row: i, Col: c, Value: row[k] / sum})
		}
	}
	return weights.FromTriplets(rows, cols, ts)
}

func (l *LandSeaMasks) outputMask(i int, idx []int, vals []float64) bool {
	if l.Output != nil {
		return l.Output[i]
	}
	heaviest := 0
	for k := range vals {
		if vals[k] > vals[heaviest] {
			heaviest = k
		}
	}
	return l.Input[idx[heaviest]]
}
