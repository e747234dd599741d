// Package safezone locates the minimum travel time into threshold-defined
// safe regions, per walking speed and evacuation source.
package safezone

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/grid"
)

// Comparison fixes the direction of a threshold test. Distance-based safety
// grows with the value; hazard probability shrinks with it.
type Comparison int

const (
	// DistanceAtLeast marks a cell safe when the safety field (distance from
	// the hazard source, meters) is >= the threshold value.
	DistanceAtLeast Comparison = iota
	// ProbabilityAtMost marks a cell safe when the safety field (hazard
	// probability) is <= the threshold value.
	ProbabilityAtMost
)

func (c Comparison) String() string {
	switch c {
	case DistanceAtLeast:
		return "distance>="
	case ProbabilityAtMost:
		return "probability<="
	default:
		return "invalid"
	}
}

// Threshold defines one safe region over a safety field.
type Threshold struct {
	ID    string
	Value float64
	Cmp   Comparison
}

// Contains reports whether a safety-field value satisfies the threshold.
// NaN safety values never qualify.
func (t Threshold) Contains(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	switch t.Cmp {
	case DistanceAtLeast:
		return v >= t.Value
	case ProbabilityAtMost:
		return v <= t.Value
	default:
		return false
	}
}

// DistanceThresholds builds distance thresholds named by meters, e.g. "500m".
func DistanceThresholds(meters []float64) []Threshold {
	out := make([]Threshold, len(meters))
	for i, m := range meters {
		out[i] = Threshold{ID: fmt.Sprintf("%gm", m), Value: m, Cmp: DistanceAtLeast}
	}
	return out
}

// ProbabilityThresholds builds hazard-probability thresholds, e.g. "p<=0.3".
func ProbabilityThresholds(probs []float64) []Threshold {
	out := make([]Threshold, len(probs))
	for i, p := range probs {
		out[i] = Threshold{ID: fmt.Sprintf("p<=%g", p), Value: p, Cmp: ProbabilityAtMost}
	}
	return out
}

// Speed is a named walking speed.
type Speed struct {
	Name            string
	MetersPerSecond float64
}

// Entry is the outcome for one (speed, threshold, source) combination.
// Found=false means no cell of the safe region has a finite travel time; the
// time is then NaN and the cell meaningless.
type Entry struct {
	Time  float64
	Cell  grid.Cell
	Found bool
}

// Result is the strongly-typed safe-zone table: entries indexed by speed,
// threshold, and source position, with the axis definitions carried along.
type Result struct {
	Speeds     []Speed
	Thresholds []Threshold
	Sources    []string
	entries    [][][]Entry // [speed][threshold][source]
}

// At returns the entry for the given axis indices.
func (r *Result) At(speed, threshold, source int) Entry {
	return r.entries[speed][threshold][source]
}

// Analyzer scans travel-time fields against a safety field.
type Analyzer struct {
	grid grid.Grid
}

// NewAnalyzer returns an analyzer for one grid.
func NewAnalyzer(g grid.Grid) *Analyzer {
	return &Analyzer{grid: g}
}

// Analyze finds, for every (speed, threshold, source), the minimum finite
// travel time over all cells in the threshold's safe region, together with
// the cell achieving it. travelTimes is indexed [speed][source] and each
// field is a flat row-major table of hours with NaN for unreachable cells.
//
// Infeasible combinations are encoded as NaN entries, never errors, so a
// batch over thousands of combinations always completes.
func (a *Analyzer) Analyze(
	safety []float64,
	travelTimes [][][]float64,
	speeds []Speed,
	thresholds []Threshold,
	sources []string,
) (*Result, error) {
	n := a.grid.Nodes()
	if len(safety) != n {
		return nil, eris.Errorf("safezone: safety field has %d cells, grid has %d", len(safety), n)
	}
	if len(speeds) == 0 {
		return nil, eris.New("safezone: no walking speeds")
	}
	if len(thresholds) == 0 {
		return nil, eris.New("safezone: no thresholds")
	}
	if len(sources) == 0 {
		return nil, eris.New("safezone: no sources")
	}
	if len(travelTimes) != len(speeds) {
		return nil, eris.Errorf("safezone: %d travel-time speed rows, %d speeds", len(travelTimes), len(speeds))
	}
	for si := range travelTimes {
		if len(travelTimes[si]) != len(sources) {
			return nil, eris.Errorf("safezone: speed %s has %d source fields, %d sources",
				speeds[si].Name, len(travelTimes[si]), len(sources))
		}
		for pi := range travelTimes[si] {
			if len(travelTimes[si][pi]) != n {
				return nil, eris.Errorf("safezone: travel-time field [%d][%d] has %d cells, grid has %d",
					si, pi, len(travelTimes[si][pi]), n)
			}
		}
	}

	res := &Result{
		Speeds:     append([]Speed(nil), speeds...),
		Thresholds: append([]Threshold(nil), thresholds...),
		Sources:    append([]string(nil), sources...),
		entries:    make([][][]Entry, len(speeds)),
	}

	for si := range speeds {
		res.entries[si] = make([][]Entry, len(thresholds))
		for ti, th := range thresholds {
			res.entries[si][ti] = make([]Entry, len(sources))
			for pi := range sources {
				res.entries[si][ti][pi] = minOverRegion(a.grid, safety, travelTimes[si][pi], th)
			}
		}
		zap.L().Debug("safe zones analyzed for speed",
			zap.String("speed", speeds[si].Name),
			zap.Int("thresholds", len(thresholds)),
		)
	}
	return res, nil
}

// minOverRegion is the exhaustive scan the optimized variants must agree
// with: minimum finite time over every cell satisfying the threshold. The
// first cell in row-major order wins ties, keeping the result deterministic.
func minOverRegion(g grid.Grid, safety, times []float64, th Threshold) Entry {
	e := Entry{Time: math.NaN()}
	for node, s := range safety {
		if !th.Contains(s) {
			continue
		}
		t := times[node]
		if math.IsNaN(t) || math.IsInf(t, 0) {
			continue
		}
		if !e.Found || t < e.Time {
			e.Time = t
			e.Cell = g.CellOf(node)
			e.Found = true
		}
	}
	return e
}

// DistanceField computes straight-line distance in meters from one cell to
// every cell of the grid, the safety field used by distance thresholds.
func DistanceField(g grid.Grid, from grid.Cell) []float64 {
	out := make([]float64, g.Nodes())
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			dr := float64(r - from.Row)
			dc := float64(c - from.Col)
			out[g.Node(r, c)] = math.Hypot(dr, dc) * g.CellSize
		}
	}
	return out
}
