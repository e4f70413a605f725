package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunStore journals ingestion runs in the ingest_runs table.
type RunStore struct {
	db *DB
}

// NewRunStore creates a new run store.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

const runColumns = `id, source, state, chunks_done, chunks_total, skipped, error, started_at, finished_at`

// Record inserts or updates a run by ID.
func (r *RunStore) Record(ctx context.Context, run *IngestRun) error {
	var finishedAt any
	if run.FinishedAt != nil {
		finishedAt = run.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := r.db.sqlDB.ExecContext(ctx, `
		INSERT INTO ingest_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			chunks_done = excluded.chunks_done,
			chunks_total = excluded.chunks_total,
			skipped = excluded.skipped,
			error = excluded.error,
			finished_at = excluded.finished_at
	`,
		run.ID, run.Source, run.State, run.ChunksDone, run.ChunksTotal,
		boolToInt(run.Skipped), nullString(run.Error),
		run.StartedAt.UTC().Format(time.RFC3339Nano), finishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record ingest run: %w", err)
	}
	return nil
}

// Last returns the most recent run for source, or nil if there is none.
func (r *RunStore) Last(ctx context.Context, source string) (*IngestRun, error) {
	row := r.db.sqlDB.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM ingest_runs
		WHERE source = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`, source)

	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last ingest run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (r *RunStore) List(ctx context.Context, limit int) ([]*IngestRun, error) {
	query := `SELECT ` + runColumns + ` FROM ingest_runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []*IngestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingest run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*IngestRun, error) {
	var run IngestRun
	var skipped int
	var errText sql.NullString
	var startedAtValue, finishedAtValue any

	if err := row.Scan(
		&run.ID, &run.Source, &run.State, &run.ChunksDone, &run.ChunksTotal,
		&skipped, &errText, &startedAtValue, &finishedAtValue,
	); err != nil {
		return nil, err
	}
	run.Skipped = skipped != 0
	run.Error = errText.String

	startedAt, err := parseTimeValue(startedAtValue)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	run.StartedAt = startedAt

	if ts, err := parseTimeValue(finishedAtValue); err != nil {
		return nil, fmt.Errorf("failed to parse finished_at: %w", err)
	} else if !ts.IsZero() {
		run.FinishedAt = &ts
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
