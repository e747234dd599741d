package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mojanshadkar/volcano-evacuation-analysis/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:        "0a1b2c3d-0000-0000-0000-000000000000",
			Params:    store.RunParams{Volcano: "merapi", Rows: 500, Cols: 400},
			Status:    store.RunStatusComplete,
			CreatedAt: created,
			UpdatedAt: created.Add(90 * time.Second),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "0a1b2c3d")
	assert.NotContains(t, out, "0a1b2c3d-0000", "IDs are truncated for display")
	assert.Contains(t, out, "merapi")
	assert.Contains(t, out, "500x400")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "1m30s")
}

func TestTruncateID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "12345678", truncateID("123456789abc"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, strings.Repeat("x", 8), truncateID(strings.Repeat("x", 8)))
}
