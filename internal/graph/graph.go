// Package graph builds the anisotropic movement graph from a directional
// cost surface and computes multi-source shortest paths over it.
//
// The graph is compiled once per cost tensor into a compressed sparse row
// structure and treated as immutable from then on; every source, speed, and
// threshold downstream shares the same compiled graph.
package graph

// Graph is a sparse directed weighted graph in CSR form. Node ids are the
// grid's row-major ids; an interior node has at most 8 outgoing edges.
type Graph struct {
	nodes  int
	rowPtr []int32
	colIdx []int32
	weight []float64
}

// Nodes returns the node count.
func (g *Graph) Nodes() int { return g.nodes }

// Edges returns the edge count.
func (g *Graph) Edges() int { return len(g.colIdx) }

// OutDegree returns the number of outgoing edges of node u.
func (g *Graph) OutDegree(u int) int {
	return int(g.rowPtr[u+1] - g.rowPtr[u])
}

// Weight returns the edge weight from u to v and whether the edge exists.
// Rows hold at most 8 entries, so the scan is constant time.
func (g *Graph) Weight(u, v int) (float64, bool) {
	for k := g.rowPtr[u]; k < g.rowPtr[u+1]; k++ {
		if int(g.colIdx[k]) == v {
			return g.weight[k], true
		}
	}
	return 0, false
}
