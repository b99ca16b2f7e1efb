package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_run_store.go -package=mocks workitems-ai/internal/storage RunStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// RunStore defines the interface for sync run history operations.
type RunStore interface {
	// Insert records a completed sync run and returns its ID.
	Insert(ctx context.Context, run *Run) (int64, error)
	// Latest returns the most recently started run.
	// Returns nil and ErrNotFound when no runs are recorded.
	Latest(ctx context.Context) (*Run, error)
	// Recent returns up to limit runs, most recently started first.
	Recent(ctx context.Context, limit int) ([]*Run, error)
}

// RunRepo provides methods for sync run history operations.
// It implements the RunStore interface.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Insert records a completed sync run and returns its ID.
func (r *RunRepo) Insert(ctx context.Context, run *Run) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_runs (started_at, finished_at, force_full, batch_size, synced, total, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.ForceFull,
		run.BatchSize,
		run.Synced,
		run.Total,
		run.Status,
		run.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sync run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get sync run ID: %w", err)
	}
	return id, nil
}

// Latest returns the most recently started run.
// Returns nil and ErrNotFound when no runs are recorded.
func (r *RunRepo) Latest(ctx context.Context) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, force_full, batch_size, synced, total, status, error
		 FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT 1`)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest sync run: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, most recently started first.
func (r *RunRepo) Recent(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, force_full, batch_size, synced, total, status, error
		 FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync runs: %w", err)
	}
	return runs, nil
}

// scanRun reads one sync_runs row via the given scan function.
func scanRun(scan func(dest ...any) error) (*Run, error) {
	var run Run
	var startedAt, finishedAt string

	err := scan(&run.ID, &startedAt, &finishedAt, &run.ForceFull,
		&run.BatchSize, &run.Synced, &run.Total, &run.Status, &run.Error)
	if err != nil {
		return nil, err
	}

	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at timestamp: %w", err)
	}
	run.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse finished_at timestamp: %w", err)
	}
	return &run, nil
}
