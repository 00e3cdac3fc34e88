//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ifews/nsurplus/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	done := now.Add(2 * time.Minute)
	runs := []store.RunEntry{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			State:       "IOWA",
			Status:      store.StatusComplete,
			StartedAt:   now,
			CompletedAt: &done,
			RowsWritten: 54120,
			Issues:      17,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			State:     "IOWA",
			Status:    store.StatusRunning,
			StartedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "54120")
	assert.Contains(t, output, "def12345")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestFormatRunsList_FailedRun(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []store.RunEntry{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			State:     "IOWA",
			Status:    store.StatusFailed,
			StartedAt: now,
			Error:     "pipeline: schema mismatch: column Value missing from county hogs response",
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "failed: pipeline: schema mismatch")
	assert.Contains(t, output, "...")
	assert.NotContains(t, output, "hogs response")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
