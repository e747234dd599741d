package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testParams() RunParams {
	return RunParams{
		Volcano:        "merapi",
		CellSize:       100,
		Rows:           500,
		Cols:           400,
		Speeds:         []float64{0.91, 1.22, 1.52},
		Thresholds:     []float64{500, 1000, 1500},
		DiagonalPolicy: "source",
	}
}

func TestSQLiteRunLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testParams())
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "merapi", got.Params.Volcano)
	assert.Equal(t, []float64{0.91, 1.22, 1.52}, got.Params.Speeds)

	require.NoError(t, s.CompleteRun(ctx, run.ID))
	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)

	run2, err := s.CreateRun(ctx, testParams())
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run2.ID, "dem raster missing"))
	got, err = s.GetRun(ctx, run2.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "dem raster missing", got.Error)
}

func TestSQLiteRunNotFound(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "no-such-run")
	assert.Error(t, err)
	assert.Error(t, s.CompleteRun(ctx, "no-such-run"))
	assert.Error(t, s.FailRun(ctx, "no-such-run", "boom"))
}

func TestSQLiteListRuns(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	p1 := testParams()
	run1, err := s.CreateRun(ctx, p1)
	require.NoError(t, err)

	p2 := testParams()
	p2.Volcano = "awu"
	run2, err := s.CreateRun(ctx, p2)
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, run2.ID))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, run2.ID, complete[0].ID)

	byVolcano, err := s.ListRuns(ctx, RunFilter{Volcano: "merapi"})
	require.NoError(t, err)
	require.Len(t, byVolcano, 1)
	assert.Equal(t, run1.ID, byVolcano[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteSafeZoneEntries(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testParams())
	require.NoError(t, err)

	hours := 2.75
	row, col := 120, 88
	entries := []SafeZoneRecord{
		{Source: "summit", Speed: "slow", Threshold: "500m", TravelTimeHours: &hours, Row: &row, Col: &col},
		{Source: "summit", Speed: "slow", Threshold: "4500m"}, // no access
	}
	require.NoError(t, s.SaveSafeZoneEntries(ctx, run.ID, entries))

	got, err := s.ListSafeZoneEntries(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Sorted by threshold: "4500m" before "500m".
	assert.Nil(t, got[0].TravelTimeHours, "no-access entry round-trips as NULL")
	require.NotNil(t, got[1].TravelTimeHours)
	assert.Equal(t, 2.75, *got[1].TravelTimeHours)
	require.NotNil(t, got[1].Row)
	assert.Equal(t, 120, *got[1].Row)
}

func TestSQLiteSaveDecomposition(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testParams())
	require.NoError(t, err)

	pct := 62.5
	records := []DecompositionRecord{
		{Source: "summit", Threshold: "500m", Layer: "slope", Percent: &pct},
		{Source: "summit", Threshold: "500m", Layer: "landcover"},
	}
	require.NoError(t, s.SaveDecomposition(ctx, run.ID, records))

	// Duplicate key must fail, not silently overwrite.
	assert.Error(t, s.SaveDecomposition(ctx, run.ID, records[:1]))
}
