package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/report"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/safezone"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the distance-based evacuation analysis",
	Long:  "Builds the movement graph, computes shortest paths from every evacuation source, and reports minimum travel times into distance-ringed safe zones around the hazard source.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := loadAnalysis()
		if err != nil {
			return err
		}

		// Distance rings are measured from the hazard source, the first
		// point of the shapefile by convention.
		hazard := env.Sources[0]
		safety := safezone.DistanceField(env.Grid, hazard.Cell)
		thresholds := safezone.DistanceThresholds(cfg.SafeZones.Distances)

		return runSafeZoneAnalysis(ctx, env, safety, thresholds)
	},
}

// runSafeZoneAnalysis is the shared tail of the analyze and safezone
// commands: shortest paths, travel times, safe-zone scan, reports, and
// persistence.
func runSafeZoneAnalysis(ctx context.Context, env *analysisEnv, safety []float64, thresholds []safezone.Threshold) error {
	speeds, err := walkingSpeeds()
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run, err := st.CreateRun(ctx, runParams(env, thresholds, speeds))
	if err != nil {
		return err
	}

	res, err := analyzeSafeZones(ctx, env, safety, thresholds, speeds)
	if err != nil {
		markRunFailed(ctx, st, run.ID, err)
		return err
	}

	if err := writeReports(run.ID, env, res); err != nil {
		markRunFailed(ctx, st, run.ID, err)
		return err
	}

	if err := finishRun(ctx, st, run.ID, res); err != nil {
		return err
	}

	zap.L().Info("analysis complete",
		zap.String("run", run.ID),
		zap.Int("sources", len(res.Sources)),
		zap.Int("thresholds", len(res.Thresholds)),
	)
	return nil
}

// markRunFailed records a failure on the run, logging when even that fails.
func markRunFailed(ctx context.Context, st store.Store, runID string, cause error) {
	if err := st.FailRun(ctx, runID, cause.Error()); err != nil {
		zap.L().Error("mark run failed", zap.String("run", runID), zap.Error(err))
	}
}

// finishRun persists the safe-zone entries and closes out the run record. A
// run must never be left in running status, so either step failing marks the
// run failed before the error propagates.
func finishRun(ctx context.Context, st store.Store, runID string, res *safezone.Result) error {
	if err := st.SaveSafeZoneEntries(ctx, runID, safeZoneRecords(res)); err != nil {
		markRunFailed(ctx, st, runID, err)
		return err
	}
	if err := st.CompleteRun(ctx, runID); err != nil {
		markRunFailed(ctx, st, runID, err)
		return err
	}
	return nil
}

func analyzeSafeZones(
	ctx context.Context,
	env *analysisEnv,
	safety []float64,
	thresholds []safezone.Threshold,
	speeds []safezone.Speed,
) (*safezone.Result, error) {
	_, paths, err := computeShortestPaths(ctx, env)
	if err != nil {
		return nil, err
	}
	times, err := travelTimeFields(env, paths, speeds)
	if err != nil {
		return nil, err
	}
	return safezone.NewAnalyzer(env.Grid).Analyze(safety, times, speeds, thresholds, sourceNames(env.Sources))
}

func writeReports(runID string, env *analysisEnv, res *safezone.Result) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return eris.Wrap(err, "create output dir")
	}

	h := report.Header{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		CellSize:    env.Grid.CellSize,
		Rows:        env.Grid.Rows,
		Cols:        env.Grid.Cols,
	}

	txt, err := os.Create(filepath.Join(cfg.Output.Dir, "analysis.txt"))
	if err != nil {
		return eris.Wrap(err, "create text report")
	}
	defer txt.Close()
	if err := report.WriteText(txt, h, res); err != nil {
		return err
	}

	csvFile, err := os.Create(filepath.Join(cfg.Output.Dir, "analysis.csv"))
	if err != nil {
		return eris.Wrap(err, "create csv report")
	}
	defer csvFile.Close()
	if err := report.WriteCSV(csvFile, res); err != nil {
		return err
	}

	return report.WriteWorkbook(filepath.Join(cfg.Output.Dir, "analysis.xlsx"), res)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
