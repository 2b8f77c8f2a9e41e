// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package repres

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"sync"

	"github.com/2dChan/s2regrid/geometry"
)

// ReducedGaussian is a global Gaussian grid with PL[j] equally spaced
// points on latitude row j, starting at longitude 0. Rows run north to south.
type ReducedGaussian struct {
	N  int
	PL []int

	once    sync.Once
	lats    []float64
	offsets []int
}

// NewReducedGaussian returns the Gaussian grid of number n with the given
// points per latitude.
func NewReducedGaussian(n int, pl []int) (*ReducedGaussian, error) {
	if n <= 0 {
		return nil, fmt.Errorf("repres: Gaussian number must be positive, got %d", n)
	}
	if len(pl) != 2*n {
		return nil, fmt.Errorf("repres: expected %d pl entries, got %d", 2*n, len(pl))
	}
	for j, p := range pl {
		if p <= 0 {
			return nil, fmt.Errorf("repres: pl[%d] = %d, want positive", j, p)
		}
	}
	return &ReducedGaussian{N: n, PL: slices.Clone(pl)}, nil
}

// NewOctahedral returns the octahedral reduced Gaussian grid O<n>: 20
// points on the row nearest each pole, four more on every row towards the
// equator.
func NewOctahedral(n int) (*ReducedGaussian, error) {
	if n <= 0 {
		return nil, fmt.Errorf("repres: Gaussian number must be positive, got %d", n)
	}
	pl := make([]int, 2*n)
	for j := range n {
		pl[j] = 20 + 4*j
		pl[2*n-1-j] = pl[j]
	}
	return NewReducedGaussian(n, pl)
}

// NewRegularGaussian returns the full Gaussian grid F<n> with 4n points per row.
func NewRegularGaussian(n int) (*ReducedGaussian, error) {
	pl := make([]int, 2*n)
	for j := range pl {
		pl[j] = 4 * n
	}
	return NewReducedGaussian(n, pl)
}

func (g *ReducedGaussian) representation() {}

func (g *ReducedGaussian) setup() {
	g.once.Do(func() {
		g.lats = GaussianLatitudes(g.N)
		g.offsets = make([]int, len(g.PL)+1)
		for j, p := range g.PL {
			g.offsets[j+1] = g.offsets[j] + p
		}
	})
}

// Latitudes returns the Gaussian latitudes of the rows, north to south.
func (g *ReducedGaussian) Latitudes() []float64 {
	g.setup()
	return g.lats
}

// NumberOfPoints returns the sum of PL.
func (g *ReducedGaussian) NumberOfPoints() int {
	g.setup()
	return g.offsets[len(g.PL)]
}

// Domain is always global.
func (g *ReducedGaussian) Domain() Domain {
	return GlobalDomain()
}

// Points iterates the grid row by row.
func (g *ReducedGaussian) Points() iter.Seq2[int, geometry.LatLon] {
	g.setup()
	return func(yield func(int, geometry.LatLon) bool) {
		idx := 0
		for j, p := range g.PL {
			inc := 360 / float64(p)
			for i := range p {
				if !yield(idx, geometry.NewLatLon(g.lats[j], float64(i)*inc)) {
					return
				}
				idx++
			}
		}
	}
}

// ID returns the content hash of the grid description.
func (g *ReducedGaussian) ID() string {
	return hashID("reduced-gg", nil, append([]int{g.N}, g.PL...))
}

// MeshHints returns one row per latitude; the grid is periodic.
func (g *ReducedGaussian) MeshHints() MeshHints {
	g.setup()
	rows := make([]Row, len(g.PL))
	for j, p := range g.PL {
		rows[j] = Row{Lat: g.lats[j], West: 0, Increment: 360 / float64(p), N: p, Offset: g.offsets[j]}
	}
	return MeshHints{Rows: rows, Periodic: true}
}

// GridBoxes returns boxes bounded half way between Gaussian latitudes and
// at the poles for the outermost rows.
func (g *ReducedGaussian) GridBoxes() []geometry.Box {
	g.setup()
	boxes := make([]geometry.Box, 0, g.NumberOfPoints())
	for j, p := range g.PL {
		n, s := 90.0, -90.0
		if j > 0 {
			n = (g.lats[j-1] + g.lats[j]) / 2
		}
		if j < len(g.PL)-1 {
			s = (g.lats[j] + g.lats[j+1]) / 2
		}
		inc := 360 / float64(p)
		for i := range p {
			lon := float64(i) * inc
			boxes = append(boxes, geometry.Box{North: n, South: s, West: lon - inc/2, East: lon + inc/2})
		}
	}
	return boxes
}

func (g *ReducedGaussian) equal(o *ReducedGaussian) bool {
	return g.N == o.N && slices.Equal(g.PL, o.PL)
}

// GaussianLatitudes returns the 2n Gaussian latitudes in degrees, north to
// south: the arcsines of the roots of the Legendre polynomial of degree 2n.
func GaussianLatitudes(n int) []float64 {
	nlat := 2 * n
	lats := make([]float64, nlat)
	for i := range n {
		z := math.Cos(math.Pi * (float64(i) + 0.75) / (float64(nlat) + 0.5))
		for range 100 {
			p1, p2 := 1.0, 0.0
			for j := 1; j <= nlat; j++ {
				p3 := p2
				p2 = p1
				p1 = ((2*float64(j)-1)*z*p2 - (float64(j)-1)*p3) / float64(j)
			}
			pp := float64(nlat) * (z*p1 - p2) / (z*z - 1)
			z1 := z
			z = z1 - p1/pp
			if math.Abs(z-z1) < 1e-15 {
				break
			}
		}
		lat := math.Asin(z) * 180 / math.Pi
		lats[i] = lat
		lats[nlat-1-i] = -lat
	}
	return lats
}
