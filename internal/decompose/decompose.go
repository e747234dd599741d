// Package decompose attributes a reconstructed path's total cost to the
// physical factors that built the cost surface, by re-costing the same edge
// sequence under each factor's directional layer.
package decompose

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/costsurface"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/grid"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/route"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/safezone"
)

// Mode selects how per-step layer costs accumulate along the path.
type Mode int

const (
	// AccumulateLinear sums step costs directly.
	AccumulateLinear Mode = iota
	// AccumulateLog sums log(cost); attribution then compares multiplicative
	// factor magnitudes rather than additive ones.
	AccumulateLog
)

// Layer is one directional cost factor (slope-derived, land-cover-derived).
type Layer struct {
	Name  string
	Bands costsurface.Bands
}

// Contributions maps layer name to its percentage of the path's total cost.
// Percentages are normalized over exactly the provided layers; a degenerate
// or invalid path yields NaN for every layer.
type Contributions map[string]float64

// Path re-costs a path under each layer and returns per-layer percentages.
// The step cost of layer L for a move from cell X in direction d is L's band
// value for d at X, matching how the movement graph was built.
//
// Step costs must be positive and finite in every layer; a violation means
// the layers disagree with the path's cost surface, and the whole
// decomposition is NaN rather than a partial answer.
func Path(p route.Path, layers []Layer, g grid.Grid, mode Mode) (Contributions, error) {
	if len(layers) < 2 {
		return nil, eris.Errorf("decompose: need at least two layers, got %d", len(layers))
	}
	names := make(map[string]bool, len(layers))
	for _, l := range layers {
		if l.Name == "" {
			return nil, eris.New("decompose: layer with empty name")
		}
		if names[l.Name] {
			return nil, eris.Errorf("decompose: duplicate layer %q", l.Name)
		}
		names[l.Name] = true
		for _, d := range grid.Directions {
			if len(l.Bands[d]) != g.Nodes() {
				return nil, eris.Errorf("decompose: layer %q band %s has %d cells, grid has %d",
					l.Name, d, len(l.Bands[d]), g.Nodes())
			}
		}
	}

	nan := func() Contributions {
		out := make(Contributions, len(layers))
		for _, l := range layers {
			out[l.Name] = math.NaN()
		}
		return out
	}

	if len(p) < 2 {
		return nan(), nil // degenerate path: source equals target or no path
	}

	totals := make([]float64, len(layers))
	for i := 0; i < len(p)-1; i++ {
		d, ok := grid.Between(p[i], p[i+1])
		if !ok {
			return nil, eris.Errorf("decompose: path cells %v -> %v are not adjacent", p[i], p[i+1])
		}
		node := g.NodeOf(p[i])
		for li, l := range layers {
			v := l.Bands[d][node]
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				zap.L().Debug("decomposition skipped: invalid layer cost",
					zap.String("layer", l.Name),
					zap.Int("row", p[i].Row),
					zap.Int("col", p[i].Col),
					zap.Float64("value", v),
				)
				return nan(), nil
			}
			if mode == AccumulateLog {
				totals[li] += math.Log(v)
			} else {
				totals[li] += v
			}
		}
	}

	var sum float64
	for _, t := range totals {
		sum += t
	}
	if sum == 0 {
		return nan(), nil
	}

	out := make(Contributions, len(layers))
	for li, l := range layers {
		out[l.Name] = totals[li] / sum * 100
	}
	return out, nil
}

// Target pairs a safe-zone threshold with the cell where its minimum travel
// time was achieved.
type Target struct {
	Threshold safezone.Threshold
	Cell      grid.Cell
	Found     bool
}

// Row is one line of the decomposition table.
type Row struct {
	Threshold     safezone.Threshold
	Contributions Contributions
}

// Table reconstructs the optimal path to each target from one source's
// predecessor row and decomposes it. Targets without a valid cell are
// skipped, as are paths the layers cannot cost.
func Table(pred []int32, source int, targets []Target, layers []Layer, g grid.Grid, mode Mode) ([]Row, error) {
	rows := make([]Row, 0, len(targets))
	for _, tg := range targets {
		if !tg.Found {
			zap.L().Info("decomposition target has no reachable safe cell",
				zap.String("threshold", tg.Threshold.ID))
			continue
		}
		p, err := route.Reconstruct(pred, source, g.NodeOf(tg.Cell), g.Cols)
		if err != nil {
			return nil, eris.Wrapf(err, "decompose: reconstruct path for threshold %s", tg.Threshold.ID)
		}
		contrib, err := Path(p, layers, g, mode)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Threshold: tg.Threshold, Contributions: contrib})
	}
	return rows, nil
}
