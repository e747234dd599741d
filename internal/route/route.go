// Package route reconstructs coordinate paths from predecessor tables and
// re-derives their per-step costs from the movement graph.
package route

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/graph"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/grid"
)

// Path is an ordered sequence of cells from source to target, inclusive.
// An empty path means the target is unreachable; that is data, not an error.
type Path []grid.Cell

// Metrics summarizes a reconstructed path. Per-step costs come from the
// movement graph, not the distance table, so the same geometric path can be
// re-costed under alternate layers during decomposition.
type Metrics struct {
	PixelCount int
	StepCosts  []float64
	TotalCost  float64
}

// Reconstruct walks backward from target through the predecessor row of one
// source, then reverses. Node ids convert to (row, col) through cols. An
// unreachable target yields an empty path.
func Reconstruct(pred []int32, source, target, cols int) (Path, error) {
	if cols <= 0 {
		return nil, eris.Errorf("route: cols must be positive, got %d", cols)
	}
	if source < 0 || source >= len(pred) {
		return nil, eris.Errorf("route: source node %d outside [0,%d)", source, len(pred))
	}
	if target < 0 || target >= len(pred) {
		return nil, eris.Errorf("route: target node %d outside [0,%d)", target, len(pred))
	}

	if target != source && pred[target] == graph.NoPredecessor {
		return Path{}, nil
	}

	// A correct predecessor table is acyclic; the step bound guards against
	// corrupted input rather than normal operation.
	nodes := make([]int, 0, 64)
	cur := target
	for steps := 0; cur != source; steps++ {
		if steps > len(pred) {
			return nil, eris.Errorf("route: predecessor cycle at node %d", cur)
		}
		nodes = append(nodes, cur)
		p := pred[cur]
		if p == graph.NoPredecessor {
			return Path{}, nil
		}
		cur = int(p)
	}
	nodes = append(nodes, source)

	path := make(Path, len(nodes))
	for i, node := range nodes {
		path[len(nodes)-1-i] = grid.Cell{Row: node / cols, Col: node % cols}
	}
	return path, nil
}

// Measure re-derives each step's edge weight from the graph and totals them.
// The total must agree with the shortest-path distance to the target within
// floating-point tolerance; callers verify that as a consistency check.
func Measure(path Path, g *graph.Graph, cols int) (Metrics, error) {
	m := Metrics{PixelCount: len(path)}
	if len(path) < 2 {
		return m, nil
	}
	m.StepCosts = make([]float64, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		u := path[i].Row*cols + path[i].Col
		v := path[i+1].Row*cols + path[i+1].Col
		w, ok := g.Weight(u, v)
		if !ok {
			return Metrics{}, eris.Errorf("route: path step %d->%d has no edge in graph", u, v)
		}
		m.StepCosts = append(m.StepCosts, w)
		m.TotalCost += w
	}
	return m, nil
}

// ConsistentWithDistance reports whether a measured total matches a distance
// table entry within a relative tolerance.
func ConsistentWithDistance(total, distance, tol float64) bool {
	if math.IsInf(distance, 1) || math.IsNaN(distance) {
		return false
	}
	diff := math.Abs(total - distance)
	scale := math.Max(1, math.Abs(distance))
	return diff <= tol*scale
}
