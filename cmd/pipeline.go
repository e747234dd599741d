package main

import (
	"context"
	"math"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/costsurface"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/decompose"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/graph"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/grid"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/raster"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/safezone"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/sources"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/store"
)

// analysisEnv bundles everything the analysis commands share: the grid, the
// cost tensor, the per-factor layers kept for decomposition, and the resolved
// evacuation sources.
type analysisEnv struct {
	Grid    grid.Grid
	Meta    raster.Meta
	Tensor  *costsurface.Tensor
	Layers  []decompose.Layer
	Sources []sources.Source
}

func readRaster(path string) (*raster.Layer, raster.Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, raster.Meta{}, eris.Wrapf(err, "open raster %s", path)
	}
	defer f.Close()
	return raster.ReadASCIIGrid(f)
}

// loadAnalysis reads the input rasters and shapefile and assembles the
// directional cost tensor: Tobler walking speeds from DEM slopes, scaled by
// land-cover traversability, inverted into costs.
func loadAnalysis() (*analysisEnv, error) {
	dem, meta, err := readRaster(cfg.Inputs.DEM)
	if err != nil {
		return nil, err
	}
	landcover, lcMeta, err := readRaster(cfg.Inputs.Landcover)
	if err != nil {
		return nil, err
	}
	if landcover.Rows != dem.Rows || landcover.Cols != dem.Cols {
		return nil, eris.Errorf("land cover is %dx%d, DEM is %dx%d",
			landcover.Rows, landcover.Cols, dem.Rows, dem.Cols)
	}
	if lcMeta.CellSize != meta.CellSize {
		return nil, eris.Errorf("land cover cell size %g differs from DEM %g",
			lcMeta.CellSize, meta.CellSize)
	}

	cellSize := meta.CellSize
	if cellSize <= 0 {
		cellSize = cfg.Grid.CellSize
	}
	g, err := grid.New(dem.Rows, dem.Cols, cellSize)
	if err != nil {
		return nil, err
	}

	slopes, err := costsurface.Slope8(dem, g)
	if err != nil {
		return nil, err
	}
	speed := costsurface.NormalizeSpeed(costsurface.ToblerSpeed(slopes))

	mapping, err := landcoverMapping(cfg.Analysis.LandcoverFactors)
	if err != nil {
		return nil, err
	}
	factors, err := costsurface.LandcoverCost(landcover, mapping)
	if err != nil {
		return nil, err
	}
	factors = costsurface.ApplyOverrides(factors,
		maskLayer(landcover, cfg.Analysis.StreamCode),
		maskLayer(landcover, cfg.Analysis.HikingPathCode),
	)

	combined, err := costsurface.Combine(speed, factors)
	if err != nil {
		return nil, err
	}
	tensor, err := costsurface.NewTensor(g, costsurface.Invert(combined))
	if err != nil {
		return nil, err
	}

	points, err := sources.ReadPoints(cfg.Inputs.Sources, cfg.Inputs.SourceNameCol)
	if err != nil {
		return nil, err
	}
	srcs, err := sources.MapToGrid(points, sources.NewTransform(meta, g), g)
	if err != nil {
		return nil, err
	}

	layers, err := decompositionLayers(g, speed, factors)
	if err != nil {
		return nil, err
	}

	zap.L().Info("analysis inputs loaded",
		zap.Int("rows", g.Rows),
		zap.Int("cols", g.Cols),
		zap.Float64("cell_size", g.CellSize),
		zap.Int("sources", len(srcs)),
	)

	return &analysisEnv{
		Grid:    g,
		Meta:    meta,
		Tensor:  tensor,
		Layers:  layers,
		Sources: srcs,
	}, nil
}

// decompositionLayers builds the per-factor cost layers re-applied along
// reconstructed paths. Slope is already directional; land cover is a single
// band expanded to eight directions, diagonals carrying the longer step.
func decompositionLayers(g grid.Grid, speed costsurface.Bands, factors []float64) ([]decompose.Layer, error) {
	land, err := costsurface.ExpandSingleBand(g, costsurface.InvertBand(factors))
	if err != nil {
		return nil, err
	}
	return []decompose.Layer{
		{Name: "slope", Bands: costsurface.Invert(speed)},
		{Name: "landcover", Bands: land},
	}, nil
}

// landcoverMapping converts the string-keyed config map into class codes.
func landcoverMapping(raw map[string]float64) (map[int]float64, error) {
	out := make(map[int]float64, len(raw))
	for k, v := range raw {
		code, err := strconv.Atoi(k)
		if err != nil {
			return nil, eris.Errorf("landcover factor key %q is not a class code", k)
		}
		out[code] = v
	}
	return out, nil
}

// maskLayer marks cells of one land-cover class; everything else stays NaN.
// A non-positive code disables the mask.
func maskLayer(landcover *raster.Layer, code int) *raster.Layer {
	if code <= 0 {
		return nil
	}
	mask := landcover.Clone()
	mask.Fill(math.NaN())
	for i, v := range landcover.Data {
		if !math.IsNaN(v) && int(v) == code {
			mask.Data[i] = 1
		}
	}
	return mask
}

// buildOptions translates the configured diagonal policy.
func buildOptions() (graph.BuildOptions, error) {
	opts := graph.BuildOptions{ImpassableThreshold: cfg.Analysis.ImpassableThreshold}
	switch cfg.Analysis.DiagonalPolicy {
	case "source", "":
		opts.Weight = graph.SourceCellWeight
	case "averaged":
		opts.Weight = graph.AveragedCellWeight
		opts.AverageDestination = true
	default:
		return opts, eris.Errorf("unknown diagonal policy %q", cfg.Analysis.DiagonalPolicy)
	}
	return opts, nil
}

// decompositionMode translates the configured accumulation mode.
func decompositionMode() (decompose.Mode, error) {
	switch cfg.Analysis.DecompositionMode {
	case "linear", "":
		return decompose.AccumulateLinear, nil
	case "log":
		return decompose.AccumulateLog, nil
	default:
		return 0, eris.Errorf("unknown decomposition mode %q", cfg.Analysis.DecompositionMode)
	}
}

// walkingSpeeds converts the configured speeds.
func walkingSpeeds() ([]safezone.Speed, error) {
	if len(cfg.Analysis.Speeds) == 0 {
		return nil, eris.New("no walking speeds configured")
	}
	out := make([]safezone.Speed, len(cfg.Analysis.Speeds))
	for i, s := range cfg.Analysis.Speeds {
		if s.MetersPerSecond <= 0 {
			return nil, eris.Errorf("walking speed %q must be positive", s.Name)
		}
		out[i] = safezone.Speed{Name: s.Name, MetersPerSecond: s.MetersPerSecond}
	}
	return out, nil
}

// computeShortestPaths builds the movement graph and runs the multi-source
// engine over every evacuation source.
func computeShortestPaths(ctx context.Context, env *analysisEnv) (*graph.Graph, *graph.Result, error) {
	opts, err := buildOptions()
	if err != nil {
		return nil, nil, err
	}
	mg, err := graph.Build(env.Tensor, opts)
	if err != nil {
		return nil, nil, err
	}

	nodes := make([]int, len(env.Sources))
	for i, s := range env.Sources {
		nodes[i] = s.Node
	}
	res, err := graph.NewEngine(cfg.Analysis.Workers).Compute(ctx, mg, nodes)
	if err != nil {
		return nil, nil, err
	}
	return mg, res, nil
}

// travelTimeFields converts distance tables to hours, indexed
// [speed][source].
func travelTimeFields(env *analysisEnv, res *graph.Result, speeds []safezone.Speed) ([][][]float64, error) {
	out := make([][][]float64, len(speeds))
	for si, sp := range speeds {
		out[si] = make([][]float64, len(res.Dist))
		for pi, dist := range res.Dist {
			tt, err := raster.TravelTimes(dist, env.Grid.CellSize, sp.MetersPerSecond)
			if err != nil {
				return nil, err
			}
			out[si][pi] = tt
		}
	}
	return out, nil
}

// sourceNames extracts the resolved source labels in order.
func sourceNames(srcs []sources.Source) []string {
	names := make([]string, len(srcs))
	for i, s := range srcs {
		names[i] = s.Name
	}
	return names
}

// safeZoneRecords flattens an analyzer result for persistence.
func safeZoneRecords(res *safezone.Result) []store.SafeZoneRecord {
	var records []store.SafeZoneRecord
	for pi, src := range res.Sources {
		for si, sp := range res.Speeds {
			for ti, th := range res.Thresholds {
				e := res.At(si, ti, pi)
				rec := store.SafeZoneRecord{Source: src, Speed: sp.Name, Threshold: th.ID}
				if e.Found {
					t := e.Time
					r, c := e.Cell.Row, e.Cell.Col
					rec.TravelTimeHours = &t
					rec.Row = &r
					rec.Col = &c
				}
				records = append(records, rec)
			}
		}
	}
	return records
}

// runParams snapshots the configuration that shaped a run.
func runParams(env *analysisEnv, thresholds []safezone.Threshold, speeds []safezone.Speed) store.RunParams {
	p := store.RunParams{
		Volcano:           cfg.Inputs.Volcano,
		CellSize:          env.Grid.CellSize,
		Rows:              env.Grid.Rows,
		Cols:              env.Grid.Cols,
		DiagonalPolicy:    cfg.Analysis.DiagonalPolicy,
		DecompositionMode: cfg.Analysis.DecompositionMode,
	}
	for _, s := range speeds {
		p.Speeds = append(p.Speeds, s.MetersPerSecond)
	}
	for _, th := range thresholds {
		p.Thresholds = append(p.Thresholds, th.Value)
	}
	return p
}
