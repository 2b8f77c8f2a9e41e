// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package s2regrid

// Field holds one or more value arrays sampled on the same representation,
// e.g. the levels of a variable or the components of a vector.
type Field struct {
	Values     [][]float64
	Missing    float64
	HasMissing bool
}

// NewField returns a field without missing values.
func NewField(values ...[]float64) *Field {
	return &Field{Values: values}
}

// Dimensions returns the number of value arrays.
func (f *Field) Dimensions() int {
	return len(f.Values)
}

// ValuesAt returns the i-th value array. It is not copied.
func (f *Field) ValuesAt(i int) []float64 {
	return f.Values[i]
}
