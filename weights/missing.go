// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package weights

import (
	"errors"
	"fmt"
	"math"
)

// DefaultMissingValue marks output points that have no value.
const DefaultMissingValue = 9999

// DefaultDegenerateEpsilon is the present-weight sum at or below which a row
// is treated as degenerate.
const DefaultDegenerateEpsilon = 1e-10

// ErrUnknownPolicy is returned by ParseMissingPolicy for unknown names.
var ErrUnknownPolicy = errors.New("weights: unknown missing-value policy")

// MissingPolicy decides the output of rows with missing input values.
type MissingPolicy int

const (
	// MissingIfAllMissing outputs missing only when every contributing
	// value is missing.
	MissingIfAllMissing MissingPolicy = iota
	// MissingIfHeaviestMissing outputs missing when the heaviest
	// contributing value is missing.
	MissingIfHeaviestMissing
)

func (p MissingPolicy) String() string {
	switch p {
	case MissingIfAllMissing:
		return "missing-if-all-missing"
	case MissingIfHeaviestMissing:
		return "missing-if-heaviest-missing"
	}
	return fmt.Sprintf("MissingPolicy(%d)", int(p))
}

// ParseMissingPolicy returns the policy with the given name. The empty
// string selects MissingIfAllMissing.
func ParseMissingPolicy(name string) (MissingPolicy, error) {
	switch name {
	case "", "missing-if-all-missing":
		return MissingIfAllMissing, nil
	case "missing-if-heaviest-missing":
		return MissingIfHeaviestMissing, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// HeaviestTieBreak selects the heaviest column among columns of equal weight.
type HeaviestTieBreak int

const (
	// TieLowestColumn picks the lowest column index.
	TieLowestColumn HeaviestTieBreak = iota
	// TiePreferPresent picks the lowest present column, if any.
	TiePreferPresent
)

// MissingOptions configures ApplyMissing.
type MissingOptions struct {
	Policy   MissingPolicy
	TieBreak HeaviestTieBreak
	// Epsilon is the degenerate present-weight threshold. Zero means
	// DefaultDegenerateEpsilon.
	Epsilon float64
}

// IsMissing reports whether v equals the missing marker. A NaN marker
// matches NaN values.
func IsMissing(v, missing float64) bool {
	if math.IsNaN(missing) {
		return math.IsNaN(v)
	}
	return v == missing
}

// ApplyMissing multiplies m into values, redistributing the weight of
// missing values over the present ones row by row. It returns the adjusted
// copy of m and the output values; m itself is not modified. Empty rows and
// rows resolved as missing by the policy yield the missing marker and a
// zero row.
func ApplyMissing(m *Matrix, values []float64, missing float64, opts MissingOptions) (*Matrix, []float64) {
	if len(values) != m.cols {
		panic(fmt.Sprintf("weights: %d values for %d columns", len(values), m.cols))
	}
	eps := opts.Epsilon
	if eps == 0 {
		eps = DefaultDegenerateEpsilon
	}
	adj := m.Clone()
	out := make([]float64, m.rows)
	for i := range m.rows {
		lo, hi := adj.offsets[i], adj.offsets[i+1]
		out[i] = adjustRow(adj.indices[lo:hi], adj.values[lo:hi], values, missing, opts, eps)
	}
	return adj, out
}

// adjustRow rewrites vals in place and returns the row's output value.
func adjustRow(cols []int, vals, values []float64, missing float64, opts MissingOptions, eps float64) float64 {
	if len(cols) == 0 {
		return missing
	}
	present, nMissing := 0.0, 0
	for k, c := range cols {
		if IsMissing(values[c], missing) {
			nMissing++
		} else {
			present += vals[k]
		}
	}
	if nMissing == 0 {
		return dot(cols, vals, values)
	}
	if nMissing == len(cols) {
		clear(vals)
		return missing
	}

	heaviest := heaviestColumn(cols, vals, values, missing, opts)
	if opts.Policy == MissingIfHeaviestMissing && IsMissing(values[cols[heaviest]], missing) {
		clear(vals)
		return missing
	}
	if math.Abs(present) <= eps {
		// Degenerate: fall back to the heaviest present neighbour.
		k := heaviest
		if IsMissing(values[cols[k]], missing) {
			k = heaviestPresent(cols, vals, values, missing)
		}
		clear(vals)
		vals[k] = 1
		return values[cols[k]]
	}

	sum := 0.0
	for k, c := range cols {
		if IsMissing(values[c], missing) {
			vals[k] = 0
			continue
		}
		vals[k] /= present
		sum += vals[k] * values[c]
	}
	return sum
}

func heaviestColumn(cols []int, vals, values []float64, missing float64, opts MissingOptions) int {
	best := 0
	for k := 1; k < len(cols); k++ {
		switch {
		case vals[k] > vals[best]:
			best = k
		case vals[k] == vals[best] && opts.TieBreak == TiePreferPresent &&
			IsMissing(values[cols[best]], missing) && !IsMissing(values[cols[k]], missing):
			best = k
		}
	}
	return best
}

func heaviestPresent(cols []int, vals, values []float64, missing float64) int {
	best := -1
	for k, c := range cols {
		if IsMissing(values[c], missing) {
			continue
		}
		if best < 0 || vals[k] > vals[best] {
			best = k
		}
	}
	return best
}

func dot(cols []int, vals, values []float64) float64 {
	sum := 0.0
	for k, c := range cols {
		sum += vals[k] * values[c]
	}
	return sum
}
