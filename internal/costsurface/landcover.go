package costsurface

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/grid"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/raster"
)

// LandcoverCost maps land-cover class codes to traversability factors.
// Cells whose class has no mapping keep a zero factor and end up impassable
// after inversion.
func LandcoverCost(landcover *raster.Layer, mapping map[int]float64) ([]float64, error) {
	if len(mapping) == 0 {
		return nil, eris.New("costsurface: land-cover cost mapping is empty")
	}
	out := make([]float64, len(landcover.Data))
	for i, v := range landcover.Data {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = mapping[int(v)]
	}
	return out, nil
}

// ApplyOverrides stamps linear features onto a land-cover cost band: stream
// cells become impassable (factor 0) and hiking-path cells fully passable
// (factor 1). Either layer may be nil. Cells that are NaN in the cost band
// stay NaN.
func ApplyOverrides(cost []float64, streams, hikingPaths *raster.Layer) []float64 {
	out := make([]float64, len(cost))
	copy(out, cost)
	for i := range out {
		if math.IsNaN(out[i]) {
			continue
		}
		if streams != nil && !math.IsNaN(streams.Data[i]) {
			out[i] = 0
		}
		if hikingPaths != nil && !math.IsNaN(hikingPaths.Data[i]) {
			out[i] = 1
		}
	}
	return out
}

// Combine multiplies a normalized per-direction speed stack by a single-band
// land-cover factor, producing the adjusted speed surface.
func Combine(speed Bands, landcover []float64) (Bands, error) {
	var out Bands
	for i := range speed {
		if len(speed[i]) != len(landcover) {
			return Bands{}, eris.Errorf("costsurface: band %s has %d cells, land-cover has %d",
				grid.Direction(i), len(speed[i]), len(landcover))
		}
		out[i] = make([]float64, len(speed[i]))
		for j, v := range speed[i] {
			out[i][j] = v * landcover[j]
		}
	}
	return out, nil
}

// Invert turns a speed-factor stack into a cost stack: cost = 1/factor, with
// zero, NaN, and non-finite factors mapped to the Impassable sentinel.
func Invert(factors Bands) Bands {
	var out Bands
	for i := range factors {
		out[i] = make([]float64, len(factors[i]))
		for j, v := range factors[i] {
			if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				out[i][j] = Impassable
				continue
			}
			out[i][j] = 1 / v
		}
	}
	return out
}

// InvertBand is Invert for a single band.
func InvertBand(factors []float64) []float64 {
	out := make([]float64, len(factors))
	for j, v := range factors {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			out[j] = Impassable
			continue
		}
		out[j] = 1 / v
	}
	return out
}
