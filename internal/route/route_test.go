package route

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/costsurface"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/graph"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/grid"
)

// buildFixture runs the real pipeline on a small non-uniform grid so the
// reconstruction tests exercise genuine predecessor tables.
func buildFixture(t *testing.T) (grid.Grid, *graph.Graph, *graph.Result) {
	t.Helper()

	g, err := grid.New(5, 5, 100)
	require.NoError(t, err)
	bands := costsurface.NewBands(g)
	for i := range bands {
		for j := range bands[i] {
			bands[i][j] = 1 + float64((i+j)%3)
		}
	}
	tensor, err := costsurface.NewTensor(g, bands)
	require.NoError(t, err)

	mg, err := graph.Build(tensor, graph.BuildOptions{})
	require.NoError(t, err)

	res, err := graph.NewEngine(1).Compute(context.Background(), mg, []int{g.Node(0, 0)})
	require.NoError(t, err)
	return g, mg, res
}

func TestReconstructEndpoints(t *testing.T) {
	t.Parallel()
	g, _, res := buildFixture(t)

	src := g.Node(0, 0)
	dst := g.Node(4, 4)
	path, err := Reconstruct(res.Pred[0], src, dst, g.Cols)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	assert.Equal(t, grid.Cell{Row: 0, Col: 0}, path[0])
	assert.Equal(t, grid.Cell{Row: 4, Col: 4}, path[len(path)-1])

	// Every step is grid-adjacent.
	for i := 0; i < len(path)-1; i++ {
		_, ok := grid.Between(path[i], path[i+1])
		assert.True(t, ok, "step %d not adjacent", i)
	}
}

func TestReconstructSourceIsTarget(t *testing.T) {
	t.Parallel()
	g, _, res := buildFixture(t)

	src := g.Node(0, 0)
	path, err := Reconstruct(res.Pred[0], src, src, g.Cols)
	require.NoError(t, err)
	require.Len(t, path, 1)
	assert.Equal(t, grid.Cell{Row: 0, Col: 0}, path[0])
}

func TestReconstructUnreachable(t *testing.T) {
	t.Parallel()

	pred := make([]int32, 9)
	for i := range pred {
		pred[i] = graph.NoPredecessor
	}
	path, err := Reconstruct(pred, 0, 8, 3)
	require.NoError(t, err)
	assert.Empty(t, path, "unreachable target yields empty path, not an error")
}

func TestReconstructValidation(t *testing.T) {
	t.Parallel()
	pred := make([]int32, 4)

	_, err := Reconstruct(pred, 0, 1, 0)
	assert.Error(t, err)
	_, err = Reconstruct(pred, -1, 1, 2)
	assert.Error(t, err)
	_, err = Reconstruct(pred, 0, 9, 2)
	assert.Error(t, err)
}

func TestReconstructCycleGuard(t *testing.T) {
	t.Parallel()

	// 0 <- 1 <- 2 <- 1: corrupted table must error, not hang.
	pred := []int32{graph.NoPredecessor, 2, 1, graph.NoPredecessor}
	_, err := Reconstruct(pred, 0, 2, 2)
	assert.Error(t, err)
}

func TestMeasureMatchesDistanceTable(t *testing.T) {
	t.Parallel()
	g, mg, res := buildFixture(t)

	src := g.Node(0, 0)
	for _, target := range []grid.Cell{{Row: 4, Col: 4}, {Row: 0, Col: 4}, {Row: 3, Col: 1}} {
		dst := g.NodeOf(target)
		path, err := Reconstruct(res.Pred[0], src, dst, g.Cols)
		require.NoError(t, err)
		require.NotEmpty(t, path)

		m, err := Measure(path, mg, g.Cols)
		require.NoError(t, err)

		assert.Equal(t, len(path), m.PixelCount)
		assert.Len(t, m.StepCosts, len(path)-1)

		var sum float64
		for _, c := range m.StepCosts {
			sum += c
		}
		assert.InDelta(t, sum, m.TotalCost, 1e-12, "total equals the step sum")
		assert.True(t, ConsistentWithDistance(m.TotalCost, res.Dist[0][dst], 1e-9),
			"path cost %g disagrees with distance %g", m.TotalCost, res.Dist[0][dst])
	}
}

func TestMeasureDegenerate(t *testing.T) {
	t.Parallel()
	_, mg, _ := buildFixture(t)

	m, err := Measure(Path{}, mg, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, m.PixelCount)
	assert.Zero(t, m.TotalCost)

	m, err = Measure(Path{{Row: 1, Col: 1}}, mg, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, m.PixelCount)
	assert.Zero(t, m.TotalCost)
}

func TestMeasureMissingEdge(t *testing.T) {
	t.Parallel()
	_, mg, _ := buildFixture(t)

	// Cells two columns apart share no edge.
	_, err := Measure(Path{{Row: 0, Col: 0}, {Row: 0, Col: 2}}, mg, 5)
	assert.Error(t, err)
}

func TestConsistentWithDistance(t *testing.T) {
	t.Parallel()

	assert.True(t, ConsistentWithDistance(10, 10+1e-12, 1e-9))
	assert.False(t, ConsistentWithDistance(10, 11, 1e-9))
	assert.False(t, ConsistentWithDistance(10, math.Inf(1), 1e-9))
	assert.False(t, ConsistentWithDistance(10, math.NaN(), 1e-9))
}
