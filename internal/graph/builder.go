package graph

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/costsurface"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/grid"
)

// WeightFunc computes an edge weight from the directional costs of the
// source and destination cells. Diagonal steps carry the sqrt(2) geometric
// scaling inside the policy so both variants stay comparable.
type WeightFunc func(srcCost, dstCost float64, diagonal bool) float64

// SourceCellWeight uses the source cell's directional cost alone. This is
// the default policy.
func SourceCellWeight(srcCost, _ float64, diagonal bool) float64 {
	if diagonal {
		return srcCost * math.Sqrt2
	}
	return srcCost
}

// AveragedCellWeight averages the source and destination cells' costs in the
// movement direction before the diagonal scaling.
func AveragedCellWeight(srcCost, dstCost float64, diagonal bool) float64 {
	w := (srcCost + dstCost) / 2
	if diagonal {
		return w * math.Sqrt2
	}
	return w
}

// BuildOptions control graph construction.
type BuildOptions struct {
	// Weight is the edge-weight policy; nil means SourceCellWeight.
	Weight WeightFunc
	// ImpassableThreshold marks directional costs at or above it as walls.
	// Zero means costsurface.Impassable.
	ImpassableThreshold float64
	// AverageDestination must be set when Weight reads the destination cost,
	// so the builder validates it too.
	AverageDestination bool
}

type triplet struct {
	from, to int32
	weight   float64
}

// Build converts a directional cost tensor into the movement graph. For each
// cell and direction, the neighbor must lie inside the grid; a directional
// cost that is zero, NaN, infinite, or at/above the impassable threshold
// produces no edge. Zero is never inserted as a free edge.
//
// Edges are gathered into a triplet arena in one pass and compiled once into
// the immutable CSR form.
func Build(t *costsurface.Tensor, opts BuildOptions) (*Graph, error) {
	if t == nil {
		return nil, eris.New("graph: nil cost tensor")
	}
	weightFn := opts.Weight
	if weightFn == nil {
		weightFn = SourceCellWeight
	}
	threshold := opts.ImpassableThreshold
	if threshold == 0 {
		threshold = costsurface.Impassable
	}
	if threshold < 0 {
		return nil, eris.Errorf("graph: impassable threshold must be positive, got %g", threshold)
	}

	g := t.Grid
	n := g.Nodes()

	// Interior nodes emit up to 8 edges; reserve for the common case.
	arena := make([]triplet, 0, n*grid.NumDirections)

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			u := g.Node(r, c)
			for _, d := range grid.Directions {
				dr, dc := d.Offset()
				nr, nc := r+dr, c+dc
				if !g.InBounds(nr, nc) {
					continue
				}
				src := t.Bands[d][u]
				if !passable(src, threshold) {
					continue
				}
				v := g.Node(nr, nc)
				dst := src
				if opts.AverageDestination {
					dst = t.Bands[d][v]
					if !passable(dst, threshold) {
						continue
					}
				}
				w := weightFn(src, dst, d.Diagonal())
				if !passable(w, threshold*math.Sqrt2) {
					continue
				}
				arena = append(arena, triplet{from: int32(u), to: int32(v), weight: w})
			}
		}
	}

	compiled := compile(n, arena)
	zap.L().Debug("movement graph built",
		zap.Int("nodes", n),
		zap.Int("edges", compiled.Edges()),
	)
	return compiled, nil
}

// passable reports whether a directional cost can form an edge.
func passable(v, threshold float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0 && v < threshold
}

// compile packs a row-ordered triplet arena into CSR. The arena is produced
// in ascending source-node order, so a single counting pass suffices.
func compile(n int, arena []triplet) *Graph {
	rowPtr := make([]int32, n+1)
	for _, tr := range arena {
		rowPtr[tr.from+1]++
	}
	for i := 1; i <= n; i++ {
		rowPtr[i] += rowPtr[i-1]
	}

	colIdx := make([]int32, len(arena))
	weight := make([]float64, len(arena))
	for i, tr := range arena {
		colIdx[i] = tr.to
		weight[i] = tr.weight
	}

	return &Graph{nodes: n, rowPtr: rowPtr, colIdx: colIdx, weight: weight}
}
