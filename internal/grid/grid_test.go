package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rows     int
		cols     int
		cellSize float64
		wantErr  bool
	}{
		{"valid", 10, 20, 100, false},
		{"single cell", 1, 1, 0.5, false},
		{"zero rows", 0, 20, 100, true},
		{"negative cols", 10, -1, 100, true},
		{"zero cell size", 10, 20, 0, true},
		{"negative cell size", 10, 20, -100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, err := New(tt.rows, tt.cols, tt.cellSize)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rows*tt.cols, g.Nodes())
		})
	}
}

func TestNodeRoundTrip(t *testing.T) {
	t.Parallel()
	g, err := New(7, 5, 100)
	require.NoError(t, err)

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			node := g.Node(r, c)
			assert.Equal(t, Cell{Row: r, Col: c}, g.CellOf(node))
		}
	}

	// Row-major order: same as the reference indexing r*cols+c.
	assert.Equal(t, 13, g.Node(2, 3))
}

func TestInBounds(t *testing.T) {
	t.Parallel()
	g, err := New(3, 4, 100)
	require.NoError(t, err)

	assert.True(t, g.InBounds(0, 0))
	assert.True(t, g.InBounds(2, 3))
	assert.False(t, g.InBounds(-1, 0))
	assert.False(t, g.InBounds(0, -1))
	assert.False(t, g.InBounds(3, 0))
	assert.False(t, g.InBounds(0, 4))
}

func TestDirections(t *testing.T) {
	t.Parallel()

	// All eight offsets are distinct unit steps.
	seen := make(map[[2]int]bool)
	for _, d := range Directions {
		dr, dc := d.Offset()
		assert.True(t, dr >= -1 && dr <= 1)
		assert.True(t, dc >= -1 && dc <= 1)
		assert.False(t, dr == 0 && dc == 0)
		seen[[2]int{dr, dc}] = true
	}
	assert.Len(t, seen, 8)

	// Diagonals are exactly the last four bands.
	assert.False(t, North.Diagonal())
	assert.False(t, West.Diagonal())
	assert.True(t, NorthEast.Diagonal())
	assert.True(t, SouthWest.Diagonal())
}

func TestBetween(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from Cell
		to   Cell
		want Direction
		ok   bool
	}{
		{"north", Cell{5, 5}, Cell{4, 5}, North, true},
		{"south", Cell{5, 5}, Cell{6, 5}, South, true},
		{"east", Cell{5, 5}, Cell{5, 6}, East, true},
		{"west", Cell{5, 5}, Cell{5, 4}, West, true},
		{"north-east", Cell{5, 5}, Cell{4, 6}, NorthEast, true},
		{"south-west", Cell{5, 5}, Cell{6, 4}, SouthWest, true},
		{"same cell", Cell{5, 5}, Cell{5, 5}, 0, false},
		{"two apart", Cell{5, 5}, Cell{5, 7}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, ok := Between(tt.from, tt.to)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, d)
			}
		})
	}
}
