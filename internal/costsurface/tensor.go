// Package costsurface builds directional traversal-cost tensors from terrain
// inputs: per-direction slope from a DEM, Tobler walking speeds, land-cover
// cost mapping, and the inversion that turns speed factors into costs.
package costsurface

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/grid"
)

// Impassable is the large finite cost written where a cell cannot be
// traversed. It comes from inverting a zero speed factor.
const Impassable = 1e6

// Bands is a directional stack: one flat row-major band per movement
// direction, in grid.Directions order.
type Bands [grid.NumDirections][]float64

// NewBands allocates an 8-band stack for a grid.
func NewBands(g grid.Grid) Bands {
	var b Bands
	for i := range b {
		b[i] = make([]float64, g.Nodes())
	}
	return b
}

// Fill sets every cell of every band to v.
func (b *Bands) Fill(v float64) {
	for i := range b {
		for j := range b[i] {
			b[i][j] = v
		}
	}
}

// Band returns the flat band for a direction.
func (b *Bands) Band(d grid.Direction) []float64 { return b[d] }

// Tensor is a validated directional cost surface over a grid. All finite
// costs are non-negative; NaN and values at or above Impassable mark cells
// that cannot be entered from the corresponding direction.
type Tensor struct {
	Grid  grid.Grid
	Bands Bands
}

// NewTensor validates band shapes and cost signs and returns a Tensor.
// A negative finite cost fails construction rather than surfacing later
// as a bad edge weight.
func NewTensor(g grid.Grid, bands Bands) (*Tensor, error) {
	n := g.Nodes()
	for i := range bands {
		if bands[i] == nil {
			return nil, eris.Errorf("costsurface: band %s is nil", grid.Direction(i))
		}
		if len(bands[i]) != n {
			return nil, eris.Errorf("costsurface: band %s has %d cells, grid has %d",
				grid.Direction(i), len(bands[i]), n)
		}
		for j, v := range bands[i] {
			if v < 0 && !math.IsNaN(v) {
				return nil, eris.Errorf("costsurface: negative cost %g in band %s at node %d",
					v, grid.Direction(i), j)
			}
		}
	}
	return &Tensor{Grid: g, Bands: bands}, nil
}

// Cost returns the directional cost of leaving (r, c) in direction d.
func (t *Tensor) Cost(d grid.Direction, r, c int) float64 {
	return t.Bands[d][t.Grid.Node(r, c)]
}

// Uniform builds a tensor with the same cost in every cell and direction.
// Used heavily by tests and calibration runs.
func Uniform(g grid.Grid, cost float64) (*Tensor, error) {
	b := NewBands(g)
	b.Fill(cost)
	return NewTensor(g, b)
}

// ExpandSingleBand turns a single-band cost layer into an 8-band stack,
// multiplying the four diagonal bands by sqrt(2) to account for the longer
// diagonal step. Layers saved single-band (the slope-only and landcover-only
// decomposition inputs) are expanded this way before use.
func ExpandSingleBand(g grid.Grid, band []float64) (Bands, error) {
	if len(band) != g.Nodes() {
		return Bands{}, eris.Errorf("costsurface: band has %d cells, grid has %d", len(band), g.Nodes())
	}
	out := NewBands(g)
	for _, d := range grid.Directions {
		scale := 1.0
		if d.Diagonal() {
			scale = math.Sqrt2
		}
		for j, v := range band {
			out[d][j] = v * scale
		}
	}
	return out, nil
}
