package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so a developer's local
// config.yaml cannot leak into assertions.
func chdirTemp(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100.0, cfg.Grid.CellSize)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "source", cfg.Analysis.DiagonalPolicy)
	assert.Equal(t, "linear", cfg.Analysis.DecompositionMode)
	assert.Equal(t, 1e6, cfg.Analysis.ImpassableThreshold)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)

	require.Len(t, cfg.Analysis.Speeds, 3)
	assert.Equal(t, "slow", cfg.Analysis.Speeds[0].Name)
	assert.Equal(t, 0.91, cfg.Analysis.Speeds[0].MetersPerSecond)

	require.Len(t, cfg.SafeZones.Distances, 9)
	assert.Equal(t, 500.0, cfg.SafeZones.Distances[0])
	assert.Equal(t, 4500.0, cfg.SafeZones.Distances[8])

	assert.Equal(t, 1.0, cfg.Analysis.LandcoverFactors["1"])
	assert.Equal(t, 0.0, cfg.Analysis.LandcoverFactors["6"])
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("EVAC_LOG_LEVEL", "debug")
	t.Setenv("EVAC_STORE_DRIVER", "postgres")
	t.Setenv("EVAC_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfigFile(t *testing.T) {
	chdirTemp(t)

	wd, err := os.Getwd()
	require.NoError(t, err)
	yaml := `
grid:
  cell_size: 30
inputs:
  volcano: merapi
  dem: data/dem.asc
safe_zones:
  distances: [750, 1250]
`
	require.NoError(t, os.WriteFile(filepath.Join(wd, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30.0, cfg.Grid.CellSize)
	assert.Equal(t, "merapi", cfg.Inputs.Volcano)
	assert.Equal(t, "data/dem.asc", cfg.Inputs.DEM)
	assert.Equal(t, []float64{750, 1250}, cfg.SafeZones.Distances)
	assert.Equal(t, "sqlite", cfg.Store.Driver, "defaults survive partial files")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
