package grid

// Direction identifies one of the eight movement directions. The order
// matches the band order of directional cost tensors: the four cardinal
// directions first, then the four diagonals.
type Direction int

const (
	North Direction = iota
	South
	East
	West
	NorthEast
	NorthWest
	SouthEast
	SouthWest

	// NumDirections is the size of the movement set.
	NumDirections = 8
)

// Directions lists all eight directions in band order.
var Directions = [NumDirections]Direction{
	North, South, East, West, NorthEast, NorthWest, SouthEast, SouthWest,
}

var offsets = [NumDirections][2]int{
	{-1, 0},  // North
	{1, 0},   // South
	{0, 1},   // East
	{0, -1},  // West
	{-1, 1},  // NorthEast
	{-1, -1}, // NorthWest
	{1, 1},   // SouthEast
	{1, -1},  // SouthWest
}

var names = [NumDirections]string{
	"N", "S", "E", "W", "NE", "NW", "SE", "SW",
}

// Offset returns the (row, col) step for the direction.
func (d Direction) Offset() (dr, dc int) {
	return offsets[d][0], offsets[d][1]
}

// Diagonal reports whether the direction is one of the four diagonals.
func (d Direction) Diagonal() bool { return d >= NorthEast }

func (d Direction) String() string {
	if d < 0 || d >= NumDirections {
		return "invalid"
	}
	return names[d]
}

// Between returns the direction of a single step from one cell to an
// adjacent cell, and false when the cells are not grid-adjacent.
func Between(from, to Cell) (Direction, bool) {
	dr := to.Row - from.Row
	dc := to.Col - from.Col
	for i, off := range offsets {
		if off[0] == dr && off[1] == dc {
			return Direction(i), true
		}
	}
	return 0, false
}
