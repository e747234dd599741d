package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/grid"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/safezone"
	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/store"
)

// flakyStore fails selected persistence calls while delegating the rest to a
// real store.
type flakyStore struct {
	store.Store
	failSave     bool
	failComplete bool
}

func (f *flakyStore) SaveSafeZoneEntries(ctx context.Context, runID string, entries []store.SafeZoneRecord) error {
	if f.failSave {
		return eris.New("disk full")
	}
	return f.Store.SaveSafeZoneEntries(ctx, runID, entries)
}

func (f *flakyStore) CompleteRun(ctx context.Context, runID string) error {
	if f.failComplete {
		return eris.New("connection reset")
	}
	return f.Store.CompleteRun(ctx, runID)
}

func fixtureSafeZoneResult(t *testing.T) *safezone.Result {
	t.Helper()

	g, err := grid.New(2, 2, 100)
	require.NoError(t, err)
	safety := safezone.DistanceField(g, grid.Cell{Row: 0, Col: 0})

	res, err := safezone.NewAnalyzer(g).Analyze(
		safety,
		[][][]float64{{{0, 0.5, 0.5, 0.7}}},
		[]safezone.Speed{{Name: "slow", MetersPerSecond: 0.91}},
		safezone.DistanceThresholds([]float64{100}),
		[]string{"summit"},
	)
	require.NoError(t, err)
	return res
}

func newRunFixture(t *testing.T) (store.Store, string, *safezone.Result) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	run, err := st.CreateRun(ctx, store.RunParams{Volcano: "merapi"})
	require.NoError(t, err)

	return st, run.ID, fixtureSafeZoneResult(t)
}

func TestFinishRun(t *testing.T) {
	st, id, res := newRunFixture(t)
	ctx := context.Background()

	require.NoError(t, finishRun(ctx, st, id, res))

	run, err := st.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusComplete, run.Status)

	entries, err := st.ListSafeZoneEntries(ctx, id)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFinishRunSaveFailure(t *testing.T) {
	st, id, res := newRunFixture(t)
	ctx := context.Background()

	err := finishRun(ctx, &flakyStore{Store: st, failSave: true}, id, res)
	require.Error(t, err)

	run, err := st.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusFailed, run.Status, "run must not stay in running status")
	assert.Contains(t, run.Error, "disk full")
}

func TestFinishRunCompleteFailure(t *testing.T) {
	st, id, res := newRunFixture(t)
	ctx := context.Background()

	err := finishRun(ctx, &flakyStore{Store: st, failComplete: true}, id, res)
	require.Error(t, err)

	run, err := st.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusFailed, run.Status, "run must not stay in running status")
	assert.Contains(t, run.Error, "connection reset")
}
