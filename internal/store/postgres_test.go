package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), testParams())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteRunNotFound(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("complete", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.Error(t, s.CompleteRun(context.Background(), "missing"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRun(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, params, status, error, created_at, updated_at FROM runs").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "params", "status", "error", "created_at", "updated_at"},
		).AddRow("run-1", []byte(`{"volcano":"merapi","cell_size":100}`), RunStatusComplete, (*string)(nil), now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "merapi", run.Params.Volcano)
	assert.Equal(t, RunStatusComplete, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveSafeZoneEntries(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectCopyFrom(
		pgx.Identifier{"safe_zone_entries"},
		[]string{"run_id", "source", "speed", "threshold", "travel_time_hours", "cell_row", "cell_col"},
	).WillReturnResult(2)

	hours := 1.5
	row, col := 3, 4
	entries := []SafeZoneRecord{
		{Source: "summit", Speed: "slow", Threshold: "500m", TravelTimeHours: &hours, Row: &row, Col: &col},
		{Source: "summit", Speed: "slow", Threshold: "1000m"},
	}
	require.NoError(t, s.SaveSafeZoneEntries(context.Background(), "run-1", entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveDecomposition(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)

	mock.ExpectCopyFrom(
		pgx.Identifier{"decomposition_entries"},
		[]string{"run_id", "source", "threshold", "layer", "percent"},
	).WillReturnResult(1)

	pct := 70.0
	require.NoError(t, s.SaveDecomposition(context.Background(), "run-1",
		[]DecompositionRecord{{Source: "summit", Threshold: "500m", Layer: "slope", Percent: &pct}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
