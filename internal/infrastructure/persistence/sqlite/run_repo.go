package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/stocktake/internal/application/port"
)

// RunRepository stores each run as one row holding its JSON snapshot
type RunRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRunRepository creates a SQLite-backed run repository
func NewRunRepository(db *DB, logger *zap.Logger) *RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger,
	}
}

// Save inserts or replaces a run, keeping the original created_at
func (r *RunRepository) Save(ctx context.Context, run *port.RunRecord) error {
	snapshot, err := json.Marshal(run.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO runs (id, source_name, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_name = excluded.source_name,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at
	`

	_, err = r.db.conn(ctx).ExecContext(ctx, query,
		run.ID,
		run.SourceName,
		string(snapshot),
		run.CreatedAt.UTC(),
		run.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to save run", zap.String("run_id", run.ID), zap.Error(err))
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(ctx context.Context, id string) (*port.RunRecord, error) {
	query := `
		SELECT id, source_name, snapshot, created_at, updated_at
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get run", zap.String("run_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// Delete removes a run
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete run", zap.String("run_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, port.ErrNotFound)
	}
	return nil
}

// List returns every run, newest first
func (r *RunRepository) List(ctx context.Context) ([]*port.RunRecord, error) {
	query := `
		SELECT id, source_name, snapshot, created_at, updated_at
		FROM runs
		ORDER BY created_at DESC
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list runs", zap.Error(err))
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*port.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*port.RunRecord, error) {
	var (
		run       port.RunRecord
		snapshot  string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(&run.ID, &run.SourceName, &snapshot, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(snapshot), &run.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot of run %s: %w", run.ID, err)
	}

	run.CreatedAt = createdAt
	run.UpdatedAt = updatedAt
	return &run, nil
}

var _ port.RunRepository = (*RunRepository)(nil)
