package costsurface

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/grid"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/raster"
)

// Slope8 computes the per-direction slope (rise over run) from a DEM.
// The run is the cell size for cardinal directions and cellSize*sqrt(2) for
// diagonals. Border cells and cells without elevation stay NaN.
func Slope8(dem *raster.Layer, g grid.Grid) (Bands, error) {
	if dem.Rows != g.Rows || dem.Cols != g.Cols {
		return Bands{}, eris.Errorf("costsurface: DEM is %dx%d, grid is %dx%d",
			dem.Rows, dem.Cols, g.Rows, g.Cols)
	}

	out := NewBands(g)
	out.Fill(math.NaN())

	runCardinal := g.CellSize
	runDiagonal := g.CellSize * math.Sqrt2

	for r := 1; r < g.Rows-1; r++ {
		for c := 1; c < g.Cols-1; c++ {
			z := dem.At(r, c)
			if math.IsNaN(z) {
				continue
			}
			node := g.Node(r, c)
			for _, d := range grid.Directions {
				dr, dc := d.Offset()
				nz := dem.At(r+dr, c+dc)
				if math.IsNaN(nz) {
					continue
				}
				run := runCardinal
				if d.Diagonal() {
					run = runDiagonal
				}
				out[d][node] = (nz - z) / run
			}
		}
	}
	return out, nil
}

// ToblerSpeed converts per-direction slopes into walking speeds (km/h) using
// Tobler's hiking function: v = 6 * exp(-3.5 * |s + 0.05|).
func ToblerSpeed(slopes Bands) Bands {
	var out Bands
	for i := range slopes {
		out[i] = make([]float64, len(slopes[i]))
		for j, s := range slopes[i] {
			if math.IsNaN(s) {
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = 6 * math.Exp(-3.5*math.Abs(s+0.05))
		}
	}
	return out
}

// MaxToblerSpeed is the walking speed at zero slope, the normalization
// denominator.
func MaxToblerSpeed() float64 {
	return 6 * math.Exp(-3.5*0.05)
}

// NormalizeSpeed scales a speed stack into [0, 1] by the zero-slope maximum.
func NormalizeSpeed(speeds Bands) Bands {
	maxV := MaxToblerSpeed()
	var out Bands
	for i := range speeds {
		out[i] = make([]float64, len(speeds[i]))
		for j, v := range speeds[i] {
			out[i][j] = v / maxV
		}
	}
	return out
}
