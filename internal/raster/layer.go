// Package raster holds in-memory raster layers and the ESRI ASCII grid codec
// used to exchange them, plus the distance-to-travel-time conversion applied
// to shortest-path outputs.
package raster

import (
	"math"

	"github.com/rotisserie/eris"
)

// Layer is a single-band raster stored row-major. Missing data is NaN.
type Layer struct {
	Rows int
	Cols int
	Data []float64
}

// NewLayer allocates a zero-filled layer.
func NewLayer(rows, cols int) (*Layer, error) {
	if rows <= 0 || cols <= 0 {
		return nil, eris.Errorf("raster: dimensions must be positive, got %dx%d", rows, cols)
	}
	return &Layer{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}, nil
}

// At returns the value at (row, col).
func (l *Layer) At(r, c int) float64 { return l.Data[r*l.Cols+c] }

// Set writes the value at (row, col).
func (l *Layer) Set(r, c int, v float64) { l.Data[r*l.Cols+c] = v }

// Fill sets every cell to v.
func (l *Layer) Fill(v float64) {
	for i := range l.Data {
		l.Data[i] = v
	}
}

// Clone returns a deep copy.
func (l *Layer) Clone() *Layer {
	data := make([]float64, len(l.Data))
	copy(data, l.Data)
	return &Layer{Rows: l.Rows, Cols: l.Cols, Data: data}
}

// TravelTimes converts a flat cost-distance table into travel times in hours
// for a given walking speed: hours = distance * cellSize / speed / 3600.
// Infinite or NaN distances (unreachable cells) become NaN.
func TravelTimes(distances []float64, cellSize, speed float64) ([]float64, error) {
	if speed <= 0 {
		return nil, eris.Errorf("raster: walking speed must be positive, got %g", speed)
	}
	if cellSize <= 0 {
		return nil, eris.Errorf("raster: cell size must be positive, got %g", cellSize)
	}
	out := make([]float64, len(distances))
	for i, d := range distances {
		if math.IsInf(d, 0) || math.IsNaN(d) {
			out[i] = math.NaN()
			continue
		}
		out[i] = d * cellSize / speed / 3600
	}
	return out, nil
}
