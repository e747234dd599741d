package main

import (
	"context"
	"math"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/decompose"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/report"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/safezone"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/sources"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/store"
)

var decomposeSource string

var decomposeCmd = &cobra.Command{
	Use:   "decompose",
	Short: "Attribute optimal-path costs to slope and land cover",
	Long:  "Reconstructs the optimal path from one source to each distance threshold's fastest safe cell and reports how much of its cost each physical factor contributes.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := loadAnalysis()
		if err != nil {
			return err
		}

		src, srcIdx, err := pickSource(env.Sources, decomposeSource)
		if err != nil {
			return err
		}

		mode, err := decompositionMode()
		if err != nil {
			return err
		}

		_, paths, err := computeShortestPaths(ctx, env)
		if err != nil {
			return err
		}

		// The fastest safe cell per threshold does not depend on walking
		// speed, so one reference speed suffices to locate the targets.
		hazard := env.Sources[0]
		safety := safezone.DistanceField(env.Grid, hazard.Cell)
		thresholds := safezone.DistanceThresholds(cfg.SafeZones.Distances)
		speeds := []safezone.Speed{{Name: "reference", MetersPerSecond: 1}}

		times, err := travelTimeFields(env, paths, speeds)
		if err != nil {
			return err
		}
		res, err := safezone.NewAnalyzer(env.Grid).Analyze(
			safety, times, speeds, thresholds, sourceNames(env.Sources))
		if err != nil {
			return err
		}

		targets := make([]decompose.Target, len(thresholds))
		for ti, th := range thresholds {
			e := res.At(0, ti, srcIdx)
			targets[ti] = decompose.Target{Threshold: th, Cell: e.Cell, Found: e.Found}
		}

		rows, err := decompose.Table(paths.Pred[srcIdx], src.Node, targets, env.Layers, env.Grid, mode)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return eris.Errorf("no reachable safe zones to decompose for source %s", src.Name)
		}

		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}
		out, err := os.Create(filepath.Join(cfg.Output.Dir, "decomposition.csv"))
		if err != nil {
			return eris.Wrap(err, "create decomposition report")
		}
		defer out.Close()
		if err := report.WriteDecompositionCSV(out, src.Name, rows); err != nil {
			return err
		}
		wb := filepath.Join(cfg.Output.Dir, "decomposition.xlsx")
		if err := report.WriteDecompositionWorkbook(wb, src.Name, rows); err != nil {
			return err
		}

		if err := persistDecomposition(ctx, env, thresholds, src.Name, rows); err != nil {
			return err
		}

		zap.L().Info("decomposition complete",
			zap.String("source", src.Name),
			zap.Int("thresholds", len(rows)),
		)
		return nil
	},
}

// pickSource selects a source by name, defaulting to the first.
func pickSource(srcs []sources.Source, name string) (sources.Source, int, error) {
	if name == "" {
		return srcs[0], 0, nil
	}
	for i, s := range srcs {
		if s.Name == name {
			return s, i, nil
		}
	}
	return sources.Source{}, 0, eris.Errorf("source %q not in shapefile", name)
}

func persistDecomposition(
	ctx context.Context,
	env *analysisEnv,
	thresholds []safezone.Threshold,
	source string,
	rows []decompose.Row,
) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	speeds, err := walkingSpeeds()
	if err != nil {
		return err
	}
	run, err := st.CreateRun(ctx, runParams(env, thresholds, speeds))
	if err != nil {
		return err
	}

	var records []store.DecompositionRecord
	for _, row := range rows {
		for layer, pct := range row.Contributions {
			rec := store.DecompositionRecord{
				Source:    source,
				Threshold: row.Threshold.ID,
				Layer:     layer,
			}
			if !math.IsNaN(pct) {
				v := pct
				rec.Percent = &v
			}
			records = append(records, rec)
		}
	}
	if err := st.SaveDecomposition(ctx, run.ID, records); err != nil {
		return err
	}
	return st.CompleteRun(ctx, run.ID)
}

func init() {
	decomposeCmd.Flags().StringVar(&decomposeSource, "source", "", "source name to decompose (default: first in shapefile)")
	rootCmd.AddCommand(decomposeCmd)
}
