// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package method assembles interpolation weight matrices between two
// representations.
//
// Every method maps an (input, output) pair to a matrix with one row per
// output point and one column per input point. Methods are safe for
// concurrent use; the meshes and spatial indexes they build are cached per
// input representation.
package method

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2dChan/s2regrid/cache"
	"github.com/2dChan/s2regrid/geometry"
	"github.com/2dChan/s2regrid/logging"
	"github.com/2dChan/s2regrid/mesh"
	"github.com/2dChan/s2regrid/metrics"
	"github.com/2dChan/s2regrid/repres"
	"github.com/2dChan/s2regrid/weights"
)

// Method names accepted by New.
const (
	FiniteElementName     = "finite-element"
	NearestNeighbourName  = "nearest-neighbour"
	GridBoxAverageName    = "grid-box-average"
	GridBoxStatisticsName = "grid-box-statistics"
	ConservativeName      = "conservative"
)

// MaxReportedFailures bounds the points listed by a ProjectionError.
const MaxReportedFailures = 10

var (
	// ErrUnknownMethod is returned by New for an unregistered name.
	ErrUnknownMethod = errors.New("method: unknown method")
	// ErrNotGridded is returned when a representation has no grid points,
	// such as spectral coefficients.
	ErrNotGridded = errors.New("method: representation has no grid points")
	// ErrNoGridBoxes is returned by the grid-box methods for representations
	// without grid boxes.
	ErrNoGridBoxes = errors.New("method: representation has no grid boxes")
	// ErrDomainViolation is returned when the output domain is not inside
	// the input domain of a method that requires it.
	ErrDomainViolation = errors.New("method: output domain not contained in input domain")
)

// ProjectionError lists output points that could not be located in any
// input mesh element.
type ProjectionError struct {
	// Points holds at most MaxReportedFailures of the failed points.
	Points []geometry.LatLon
	// Count is the total number of failed points.
	Count int
}

func (e *ProjectionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "method: %d points could not be projected onto the input mesh:", e.Count)
	for _, p := range e.Points {
		fmt.Fprintf(&b, " (%.6f, %.6f)", p.Lat, p.Lon)
	}
	if e.Count > len(e.Points) {
		b.WriteString(" ...")
	}
	return b.String()
}

// Method assembles weight matrices.
type Method interface {
	// Name returns the method name as accepted by New.
	Name() string
	// Digest describes every option that changes the assembled weights.
	// It is used verbatim in cache keys.
	Digest() string
	// Assemble returns the matrix interpolating fields on in onto out.
	Assemble(in, out repres.Representation) (*weights.Matrix, error)
}

// Normalisation selects the divisor of grid-box weights.
type Normalisation int

const (
	// InputArea divides overlaps by the input box area, conserving mass
	// from input to output.
	InputArea Normalisation = iota
	// OutputArea divides overlaps by the output box area; rows of fully
	// covered boxes sum to one.
	OutputArea
)

func (n Normalisation) String() string {
	switch n {
	case InputArea:
		return "input-area"
	case OutputArea:
		return "output-area"
	}
	return fmt.Sprintf("Normalisation(%d)", int(n))
}

// Options configures the methods built by New. Fields a method does not
// use are ignored and excluded from its digest.
type Options struct {
	// K is the number of neighbours of the nearest-neighbour method.
	K int
	// DistanceTolerance widens nearest-neighbour rows to every point within
	// this chord distance of the nearest one when the K-th neighbour is.
	DistanceTolerance float64
	// SearchFraction caps the share of input cells examined per output
	// point by the finite-element search.
	SearchFraction float64
	// Normalisation applies to grid-box-average.
	Normalisation Normalisation
	// NodeAreas selects the node areas of the conservative method.
	NodeAreas mesh.AreaKind

	Registry *cache.Registry
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{K: 4, SearchFraction: 0.2}
}

func (o Options) withDefaults() (Options, error) {
	def := DefaultOptions()
	if o.K == 0 {
		o.K = def.K
	}
	if o.SearchFraction == 0 {
		o.SearchFraction = def.SearchFraction
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	switch {
	case o.K < 0:
		return o, fmt.Errorf("method: K %d must be positive", o.K)
	case o.DistanceTolerance < 0:
		return o, fmt.Errorf("method: distance tolerance %v must not be negative", o.DistanceTolerance)
	case o.SearchFraction < 0 || o.SearchFraction > 1:
		return o, fmt.Errorf("method: search fraction %v must be in (0, 1]", o.SearchFraction)
	}
	return o, nil
}

// New returns the method registered under name.
func New(name string, opts Options) (Method, error) {
	var (
		m   Method
		err error
	)
	switch name {
	case FiniteElementName:
		m, err = NewFiniteElement(opts)
	case NearestNeighbourName, "knn":
		m, err = NewNearestNeighbour(opts)
	case GridBoxAverageName:
		m, err = NewGridBox(opts, false)
	case GridBoxStatisticsName:
		m, err = NewGridBox(opts, true)
	case ConservativeName:
		m, err = NewConservative(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func checkGridded(rs ...repres.Representation) error {
	for _, r := range rs {
		if _, ok := r.(*repres.Spectral); ok || r.NumberOfPoints() == 0 {
			return fmt.Errorf("%w: %s", ErrNotGridded, r.ID())
		}
	}
	return nil
}
