package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/store"
)

func newServeFixture(t *testing.T) (store.Store, *http.ServeMux) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st, newServeMux(st)
}

func TestServeHealth(t *testing.T) {
	_, mux := newServeFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeRuns(t *testing.T) {
	st, mux := newServeFixture(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, store.RunParams{Volcano: "merapi", Rows: 10, Cols: 10})
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID))

	req := httptest.NewRequest(http.MethodGet, "/runs?status=complete", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestServeRunByID(t *testing.T) {
	st, mux := newServeFixture(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, store.RunParams{Volcano: "awu"})
	require.NoError(t, err)

	hours := 1.25
	row, col := 2, 3
	require.NoError(t, st.SaveSafeZoneEntries(ctx, run.ID, []store.SafeZoneRecord{
		{Source: "summit", Speed: "slow", Threshold: "500m", TravelTimeHours: &hours, Row: &row, Col: &col},
	}))

	req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Run     *store.Run              `json:"run"`
		Entries []store.SafeZoneRecord `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "awu", payload.Run.Params.Volcano)
	require.Len(t, payload.Entries, 1)
	require.NotNil(t, payload.Entries[0].TravelTimeHours)
	assert.Equal(t, 1.25, *payload.Entries[0].TravelTimeHours)
}

func TestServeRunNotFound(t *testing.T) {
	_, mux := newServeFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/runs/absent", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
