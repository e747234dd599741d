package graph

import (
	"container/heap"
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NoPredecessor is the reserved predecessor value for nodes with no shortest
// path from the source. It lies outside the valid node-id range.
const NoPredecessor int32 = -9999

// Result holds the multi-source shortest-path tables. Row i belongs to
// Sources[i]; unreachable nodes carry +Inf distance and NoPredecessor.
type Result struct {
	Sources []int
	Dist    [][]float64
	Pred    [][]int32
}

// Engine runs per-source Dijkstra searches, fanning sources out over a
// bounded worker pool. Searches only read the shared graph; each writes its
// own pre-assigned result row, so rows always stack in source order.
type Engine struct {
	workers int
}

// NewEngine returns an engine running at most workers searches at once.
// Non-positive workers means serial execution.
func NewEngine(workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{workers: workers}
}

// Compute runs one single-source search per source node. Sources are
// independent; ctx cancellation is honored between sources, not inside a
// running search.
func (e *Engine) Compute(ctx context.Context, g *Graph, sources []int) (*Result, error) {
	if g == nil {
		return nil, eris.New("graph: nil graph")
	}
	if len(sources) == 0 {
		return nil, eris.New("graph: no source nodes")
	}
	for _, s := range sources {
		if s < 0 || s >= g.Nodes() {
			return nil, eris.Errorf("graph: source node %d outside [0,%d)", s, g.Nodes())
		}
	}

	res := &Result{
		Sources: append([]int(nil), sources...),
		Dist:    make([][]float64, len(sources)),
		Pred:    make([][]int32, len(sources)),
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)

	for i, src := range sources {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			dist, pred := singleSource(g, src)
			res.Dist[i] = dist
			res.Pred[i] = pred
			zap.L().Debug("dijkstra source complete",
				zap.Int("source", src),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "graph: shortest paths")
	}
	return res, nil
}

// singleSource is a textbook Dijkstra with a lazy-decrease-key binary heap:
// duplicates are pushed and stale entries skipped on pop. Neighbor order is
// the CSR order, so one run of one build is deterministic.
func singleSource(g *Graph, src int) ([]float64, []int32) {
	n := g.Nodes()
	dist := make([]float64, n)
	pred := make([]int32, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		pred[i] = NoPredecessor
	}
	dist[src] = 0

	pq := make(nodeQueue, 0, 64)
	heap.Push(&pq, queueItem{node: int32(src), dist: 0})

	for pq.Len() > 0 {
		it := heap.Pop(&pq).(queueItem)
		u := it.node
		if it.dist > dist[u] {
			continue // stale entry
		}
		for k := g.rowPtr[u]; k < g.rowPtr[u+1]; k++ {
			v := g.colIdx[k]
			nd := it.dist + g.weight[k]
			if nd < dist[v] {
				dist[v] = nd
				pred[v] = u
				heap.Push(&pq, queueItem{node: v, dist: nd})
			}
		}
	}
	return dist, pred
}

type queueItem struct {
	node int32
	dist float64
}

// nodeQueue is a min-heap on distance.
type nodeQueue []queueItem

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(queueItem)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
