// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package weights implements the sparse interpolation operator and the
// missing-value redistribution applied when it is multiplied into data.
package weights

import (
	"cmp"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Triplet is a single (row, column, value) entry.
type Triplet struct {
	Row, Col int
	Value    float64
}

// Matrix is an immutable sparse matrix in compressed sparse row form. Rows
// correspond to output points and columns to input points.
//
// Matrix implements mat.Matrix.
type Matrix struct {
	rows, cols int
	// offsets has rows+1 entries; row i occupies [offsets[i], offsets[i+1]).
	offsets []int
	indices []int
	values  []float64
}

var _ mat.Matrix = (*Matrix)(nil)

// FromTriplets builds a rows x cols matrix. Duplicate entries are summed and
// entries summing to zero are dropped. The result does not depend on the
// order of ts. FromTriplets panics if an entry is out of range.
func FromTriplets(rows, cols int, ts []Triplet) *Matrix {
	if rows < 0 || cols < 0 {
		panic(mat.ErrShape)
	}
	sorted := slices.Clone(ts)
	for _, t := range sorted {
		if t.Row < 0 || t.Row >= rows {
			panic(fmt.Sprintf("weights: triplet row %d out of range [0, %d)", t.Row, rows))
		}
		if t.Col < 0 || t.Col >= cols {
			panic(fmt.Sprintf("weights: triplet col %d out of range [0, %d)", t.Col, cols))
		}
	}
	// Value is part of the key so duplicates are summed in a fixed order.
	slices.SortFunc(sorted, func(a, b Triplet) int {
		return cmp.Or(cmp.Compare(a.Row, b.Row), cmp.Compare(a.Col, b.Col), cmp.Compare(a.Value, b.Value))
	})

	m := &Matrix{
		rows:    rows,
		cols:    cols,
		offsets: make([]int, rows+1),
		indices: make([]int, 0, len(sorted)),
		values:  make([]float64, 0, len(sorted)),
	}
	for i := 0; i < len(sorted); {
		j, sum := i, 0.0
		for ; j < len(sorted) && sorted[j].Row == sorted[i].Row && sorted[j].Col == sorted[i].Col; j++ {
			sum += sorted[j].Value
		}
		if sum != 0 {
			m.indices = append(m.indices, sorted[i].Col)
			m.values = append(m.values, sum)
			m.offsets[sorted[i].Row+1]++
		}
		i = j
	}
	for i := range rows {
		m.offsets[i+1] += m.offsets[i]
	}
	return m
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Matrix {
	m := &Matrix{
		rows:    n,
		cols:    n,
		offsets: make([]int, n+1),
		indices: make([]int, n),
		values:  make([]float64, n),
	}
	for i := range n {
		m.offsets[i+1] = i + 1
		m.indices[i] = i
		m.values[i] = 1
	}
	return m
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (r, c int) {
	return m.rows, m.cols
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	if uint(i) >= uint(m.rows) {
		panic(mat.ErrRowAccess)
	}
	if uint(j) >= uint(m.cols) {
		panic(mat.ErrColAccess)
	}
	cols, vals := m.Row(i)
	if k, ok := slices.BinarySearch(cols, j); ok {
		return vals[k]
	}
	return 0
}

// T returns the implicit transpose of m.
func (m *Matrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// Row returns the column indices and values of row i. The slices alias m
// and must not be modified.
func (m *Matrix) Row(i int) (cols []int, vals []float64) {
	if uint(i) >= uint(m.rows) {
		panic(mat.ErrRowAccess)
	}
	lo, hi := m.offsets[i], m.offsets[i+1]
	return m.indices[lo:hi:hi], m.values[lo:hi:hi]
}

// RowSum returns the sum of the entries of row i.
func (m *Matrix) RowSum(i int) float64 {
	_, vals := m.Row(i)
	return floats.Sum(vals)
}

// NonZeros returns the number of stored entries.
func (m *Matrix) NonZeros() int {
	return len(m.values)
}

// Triplets returns the entries of m in row-major order.
func (m *Matrix) Triplets() []Triplet {
	ts := make([]Triplet, 0, len(m.values))
	for i := range m.rows {
		for k := m.offsets[i]; k < m.offsets[i+1]; k++ {
			ts = append(ts, Triplet{Row: i, Col: m.indices[k], Value: m.values[k]})
		}
	}
	return ts
}

// Footprint returns the bytes held by m.
func (m *Matrix) Footprint() uint64 {
	return uint64(8 * (len(m.offsets) + len(m.indices) + len(m.values)))
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{
		rows:    m.rows,
		cols:    m.cols,
		offsets: slices.Clone(m.offsets),
		indices: slices.Clone(m.indices),
		values:  slices.Clone(m.values),
	}
}

// Multiply returns m * x. It panics if len(x) differs from the number of
// columns.
func (m *Matrix) Multiply(x []float64) []float64 {
	if len(x) != m.cols {
		panic(mat.ErrShape)
	}
	y := make([]float64, m.rows)
	for i := range m.rows {
		sum := 0.0
		for k := m.offsets[i]; k < m.offsets[i+1]; k++ {
			sum += m.values[k] * x[m.indices[k]]
		}
		y[i] = sum
	}
	return y
}

// Equal reports whether m and o have the same shape and bit-identical entries.
func (m *Matrix) Equal(o *Matrix) bool {
	return m.rows == o.rows && m.cols == o.cols &&
		slices.Equal(m.offsets, o.offsets) &&
		slices.Equal(m.indices, o.indices) &&
		slices.Equal(m.values, o.values)
}

// Transpose returns the explicit transpose of m.
func (m *Matrix) Transpose() *Matrix {
	ts := m.Triplets()
	for i := range ts {
		ts[i].Row, ts[i].Col = ts[i].Col, ts[i].Row
	}
	return FromTriplets(m.cols, m.rows, ts)
}

// ScaleRows multiplies row i by factors[i] in place. It must only be used
// on a matrix the caller owns.
func (m *Matrix) ScaleRows(factors []float64) {
	if len(factors) != m.rows {
		panic(mat.ErrShape)
	}
	for i, f := range factors {
		floats.Scale(f, m.values[m.offsets[i]:m.offsets[i+1]])
	}
}

// NormaliseRows scales every row with a non-zero sum to sum to one, in place.
func (m *Matrix) NormaliseRows() {
	factors := make([]float64, m.rows)
	for i := range m.rows {
		factors[i] = 1
		if sum := m.RowSum(i); sum != 0 {
			factors[i] = 1 / sum
		}
	}
	m.ScaleRows(factors)
}

// EmptyRows returns the indices of rows with no entries.
func (m *Matrix) EmptyRows() []int {
	var empty []int
	for i := range m.rows {
		if m.offsets[i] == m.offsets[i+1] {
			empty = append(empty, i)
		}
	}
	return empty
}
