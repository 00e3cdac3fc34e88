package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/ifews/nsurplus/internal/db"
)

// Run statuses recorded in ifews.run_log.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// RunEntry represents a row in ifews.run_log.
type RunEntry struct {
	ID          string         `json:"id"`
	State       string         `json:"state"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	RowsWritten int64          `json:"rows_written"`
	Issues      int            `json:"issues"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RunResult is passed to Complete.
type RunResult struct {
	RowsWritten int64          `json:"rows_written"`
	Issues      int            `json:"issues"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RunLog provides read/write access to ifews.run_log.
type RunLog struct {
	pool db.Pool
}

// NewRunLog creates a RunLog backed by the given pool.
func NewRunLog(pool db.Pool) *RunLog {
	return &RunLog{pool: pool}
}

// Start records the beginning of a build and returns its run id.
func (l *RunLog) Start(ctx context.Context, state string) (string, error) {
	id := uuid.New().String()
	_, err := l.pool.Exec(ctx,
		`INSERT INTO ifews.run_log (id, state, status, started_at) VALUES ($1, $2, $3, now())`,
		id, state, StatusRunning,
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: start run for %s", state)
	}
	return id, nil
}

// Complete marks a run as successfully completed.
func (l *RunLog) Complete(ctx context.Context, runID string, result *RunResult) error {
	if result == nil {
		result = &RunResult{}
	}
	var metaJSON []byte
	if result.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(result.Metadata)
		if err != nil {
			return eris.Wrap(err, "runlog: marshal metadata")
		}
	}

	_, err := l.pool.Exec(ctx,
		`UPDATE ifews.run_log
		 SET status = $1, completed_at = now(), rows_written = $2, issues = $3, metadata = $4
		 WHERE id = $5`,
		StatusComplete, result.RowsWritten, result.Issues, metaJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", runID)
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (l *RunLog) Fail(ctx context.Context, runID string, errMsg string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE ifews.run_log SET status = $1, completed_at = now(), error = $2 WHERE id = $3`,
		StatusFailed, errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", runID)
	}
	return nil
}

// Get returns one run, or nil if it does not exist.
func (l *RunLog) Get(ctx context.Context, runID string) (*RunEntry, error) {
	rows, err := l.pool.Query(ctx, selectRuns+` WHERE id = $1`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "runlog: get run %s", runID)
	}
	entries, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// ListAll returns all runs, most recent first. A limit of zero returns every run.
func (l *RunLog) ListAll(ctx context.Context, limit int) ([]RunEntry, error) {
	query := selectRuns + ` ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list all")
	}
	return scanRuns(rows)
}

const selectRuns = `SELECT id, state, status, started_at, completed_at, rows_written, issues, error, metadata
	FROM ifews.run_log`

func scanRuns(rows pgx.Rows) ([]RunEntry, error) {
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var errStr *string
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.State, &e.Status, &e.StartedAt, &e.CompletedAt,
			&e.RowsWritten, &e.Issues, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		if errStr != nil {
			e.Error = *errStr
		}
		if metaJSON != nil {
			if err := json.Unmarshal(metaJSON, &e.Metadata); err != nil {
				return nil, eris.Wrapf(err, "runlog: decode metadata for %s", e.ID)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "runlog: iterate")
	}
	return entries, nil
}
