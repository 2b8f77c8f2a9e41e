// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package s2regrid interpolates fields between representations of the
// sphere by sparse weight matrices. Matrices are assembled once per method,
// input and output and reused from memory or from a persistent cache.
package s2regrid

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/2dChan/s2regrid/cache"
	"github.com/2dChan/s2regrid/logging"
	"github.com/2dChan/s2regrid/method"
	"github.com/2dChan/s2regrid/metrics"
	"github.com/2dChan/s2regrid/repres"
	"github.com/2dChan/s2regrid/weights"
)

var (
	// ErrFieldSize is returned when field values do not match the input.
	ErrFieldSize = errors.New("s2regrid: field size mismatch")
	// ErrMaskSize is returned when a land-sea mask does not match its grid.
	ErrMaskSize = errors.New("s2regrid: mask size mismatch")
)

// Regridder applies the weights of one method to fields.
type Regridder struct {
	method   method.Method
	opts     Options
	matrices *cache.Memory[*weights.Matrix]
	owned    bool
	logger   *slog.Logger
}

// New returns a Regridder for m.
func New(m method.Method, setters ...Option) (*Regridder, error) {
	if m == nil {
		return nil, errors.New("s2regrid: nil method")
	}
	opts := Options{Logger: logging.Discard()}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	r := &Regridder{
		method:   m,
		opts:     opts,
		matrices: opts.MatrixCache,
		logger:   opts.Logger.With("method", m.Name()),
	}
	if r.matrices == nil {
		c, err := NewMatrixCache(opts.Registry, opts.Metrics, opts.Logger)
		if err != nil {
			return nil, err
		}
		r.matrices, r.owned = c, true
	}
	return r, nil
}

// NewMatrixCache returns an in-memory matrix cache for WithMatrixCache.
func NewMatrixCache(reg *cache.Registry, c *metrics.Collector, l *slog.Logger) (*cache.Memory[*weights.Matrix], error) {
	setters := []cache.MemoryOption{cache.WithMetrics(c)}
	if reg != nil {
		setters = append(setters, cache.WithRegistry(reg))
	}
	if l != nil {
		setters = append(setters, cache.WithLogger(l))
	}
	return cache.NewMemory("weights", matrixFootprint, setters...)
}

func matrixFootprint(m *weights.Matrix) cache.Footprint {
	return cache.Footprint{Memory: m.Footprint()}
}

// Method returns the interpolation method.
func (r *Regridder) Method() method.Method {
	return r.method
}

// Close releases the matrix cache when the Regridder owns it.
func (r *Regridder) Close() {
	if r.owned {
		r.matrices.Close()
	}
}

// Matrix returns the weights from in to out. Equal representations yield
// the identity without touching any cache.
func (r *Regridder) Matrix(in, out repres.Representation) (*weights.Matrix, error) {
	if in == nil || out == nil {
		return nil, errors.New("s2regrid: nil representation")
	}
	if repres.Equal(in, out) {
		return weights.Identity(in.NumberOfPoints()), nil
	}
	masks := r.opts.Masks
	if err := masks.validate(in, out); err != nil {
		return nil, err
	}
	if masks == nil {
		return r.lookup(Key(r.method, in, out, nil), func() (*weights.Matrix, error) {
			return r.assemble(in, out)
		})
	}
	return r.lookup(Key(r.method, in, out, masks), func() (*weights.Matrix, error) {
		base, err := r.lookup(Key(r.method, in, out, nil), func() (*weights.Matrix, error) {
			return r.assemble(in, out)
		})
		if err != nil {
			return nil, err
		}
		return masks.Apply(base), nil
	})
}

func (r *Regridder) lookup(key string, compute func() (*weights.Matrix, error)) (*weights.Matrix, error) {
	return r.matrices.GetOrCompute(key, func() (*weights.Matrix, error) {
		if r.opts.DiskCache == nil {
			return compute()
		}
		return r.opts.DiskCache.Fetch(key, compute)
	})
}

func (r *Regridder) assemble(in, out repres.Representation) (*weights.Matrix, error) {
	r.logger.Debug("assembling weights", "input", in.ID(), "output", out.ID())
	m, err := r.method.Assemble(in, out)
	if err != nil {
		return nil, fmt.Errorf("s2regrid: %s: %w", r.method.Name(), err)
	}
	if empty := m.EmptyRows(); len(empty) > 0 {
		r.logger.Info("output points without weights", "count", len(empty))
	}
	return m, nil
}

// Execute interpolates every dimension of f from in to out. Output points
// without weights, and points resolved as missing, are set to the missing
// marker, which is f.Missing or weights.DefaultMissingValue.
func (r *Regridder) Execute(f *Field, in, out repres.Representation) (*Field, error) {
	if f == nil {
		return nil, errors.New("s2regrid: nil field")
	}
	if in == nil || out == nil {
		return nil, errors.New("s2regrid: nil representation")
	}
	n := in.NumberOfPoints()
	for i, v := range f.Values {
		if len(v) != n {
			return nil, fmt.Errorf("%w: dimension %d has %d values, want %d", ErrFieldSize, i, len(v), n)
		}
	}
	m, err := r.Matrix(in, out)
	if err != nil {
		return nil, err
	}

	missing := float64(weights.DefaultMissingValue)
	if f.HasMissing {
		missing = f.Missing
	}
	empty := m.EmptyRows()
	res := &Field{
		Values:     make([][]float64, len(f.Values)),
		Missing:    missing,
		HasMissing: f.HasMissing || len(empty) > 0,
	}
	for d, v := range f.Values {
		if f.HasMissing {
			_, res.Values[d] = weights.ApplyMissing(m, v, missing, r.opts.Missing)
			continue
		}
		vals := m.Multiply(v)
		for _, i := range empty {
			vals[i] = missing
		}
		res.Values[d] = vals
	}
	return res, nil
}
