// Package grid defines the dense raster grid descriptor, node indexing, and
// the 8-direction movement set shared by the evacuation analysis components.
package grid

import (
	"github.com/rotisserie/eris"
)

// Grid describes a rectangular raster: dimensions plus cell size in meters.
// Node ids are row-major: node = row*Cols + col.
type Grid struct {
	Rows     int
	Cols     int
	CellSize float64
}

// Cell is a (row, col) position on a Grid.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// New validates the dimensions and returns a Grid.
func New(rows, cols int, cellSize float64) (Grid, error) {
	if rows <= 0 || cols <= 0 {
		return Grid{}, eris.Errorf("grid: dimensions must be positive, got %dx%d", rows, cols)
	}
	if cellSize <= 0 {
		return Grid{}, eris.Errorf("grid: cell size must be positive, got %g", cellSize)
	}
	return Grid{Rows: rows, Cols: cols, CellSize: cellSize}, nil
}

// Nodes returns the total node count Rows*Cols.
func (g Grid) Nodes() int { return g.Rows * g.Cols }

// Node converts (row, col) to a 1D node id. No bounds checking; callers use
// InBounds first.
func (g Grid) Node(r, c int) int { return r*g.Cols + c }

// NodeOf converts a Cell to its node id.
func (g Grid) NodeOf(cell Cell) int { return g.Node(cell.Row, cell.Col) }

// CellOf converts a node id back to its (row, col) position.
func (g Grid) CellOf(node int) Cell {
	return Cell{Row: node / g.Cols, Col: node % g.Cols}
}

// InBounds reports whether (row, col) lies inside the grid.
func (g Grid) InBounds(r, c int) bool {
	return r >= 0 && r < g.Rows && c >= 0 && c < g.Cols
}
