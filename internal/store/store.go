// Package store persists analysis runs and their safe-zone and decomposition
// results, with SQLite and PostgreSQL backends.
package store

import (
	"context"
	"time"
)

// RunStatus tracks the lifecycle of one analysis run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunParams records the inputs that shaped a run, stored as JSON so old runs
// stay readable after configuration changes.
type RunParams struct {
	Volcano           string    `json:"volcano"`
	CellSize          float64   `json:"cell_size"`
	Rows              int       `json:"rows"`
	Cols              int       `json:"cols"`
	Speeds            []float64 `json:"speeds"`
	Thresholds        []float64 `json:"thresholds"`
	DiagonalPolicy    string    `json:"diagonal_policy"`
	DecompositionMode string    `json:"decomposition_mode,omitempty"`
}

// Run is one recorded analysis run.
type Run struct {
	ID        string
	Params    RunParams
	Status    RunStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SafeZoneRecord is one (source, speed, threshold) outcome. TravelTimeHours,
// Row, and Col are nil when no safe cell was reachable.
type SafeZoneRecord struct {
	Source          string
	Speed           string
	Threshold       string
	TravelTimeHours *float64
	Row             *int
	Col             *int
}

// DecompositionRecord is one layer's cost share for one reconstructed path.
// Percent is nil when the decomposition was degenerate.
type DecompositionRecord struct {
	Source    string
	Threshold string
	Layer     string
	Percent   *float64
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  RunStatus `json:"status,omitempty"`
	Volcano string    `json:"volcano,omitempty"`
	Limit   int       `json:"limit,omitempty"`
	Offset  int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for the analysis pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, params RunParams) (*Run, error)
	CompleteRun(ctx context.Context, runID string) error
	FailRun(ctx context.Context, runID string, message string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Results
	SaveSafeZoneEntries(ctx context.Context, runID string, entries []SafeZoneRecord) error
	ListSafeZoneEntries(ctx context.Context, runID string) ([]SafeZoneRecord, error)
	SaveDecomposition(ctx context.Context, runID string, records []DecompositionRecord) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
