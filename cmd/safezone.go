package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/safezone"
)

var safezoneCmd = &cobra.Command{
	Use:   "safezone",
	Short: "Run the hazard-probability evacuation analysis",
	Long:  "Like analyze, but safe zones are defined by a hazard-probability raster: a cell is safe when its probability is at or below each configured threshold.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cfg.Inputs.Probability == "" {
			return eris.New("safezone: no probability raster configured (inputs.probability)")
		}

		env, err := loadAnalysis()
		if err != nil {
			return err
		}

		prob, probMeta, err := readRaster(cfg.Inputs.Probability)
		if err != nil {
			return err
		}
		if prob.Rows != env.Grid.Rows || prob.Cols != env.Grid.Cols {
			return eris.Errorf("probability raster is %dx%d, grid is %dx%d",
				prob.Rows, prob.Cols, env.Grid.Rows, env.Grid.Cols)
		}
		if probMeta.CellSize != env.Meta.CellSize {
			return eris.Errorf("probability cell size %g differs from DEM %g",
				probMeta.CellSize, env.Meta.CellSize)
		}

		thresholds := safezone.ProbabilityThresholds(cfg.SafeZones.Probabilities)
		return runSafeZoneAnalysis(ctx, env, prob.Data, thresholds)
	},
}

func init() {
	rootCmd.AddCommand(safezoneCmd)
}
