package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/boiler-scraper/internal/models"
)

const selectRunSQL = `
	SELECT id, status, trigger, pages, created, updated,
	       skipped_not_target, skipped_existing, errors, error_message,
	       created_at, started_at, finished_at
	FROM scrape_runs`

// RunRepository keeps the scrape_runs bookkeeping table.
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = models.RunPending
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO scrape_runs (id, status, trigger, created_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.db.pool.Exec(ctx, query, run.ID, run.Status, run.Trigger, run.CreatedAt); err != nil {
		return fmt.Errorf("failed to create run: %w", classify(err))
	}
	return nil
}

func (r *RunRepository) MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	query := `UPDATE scrape_runs SET status = $1, started_at = $2 WHERE id = $3`

	result, err := r.db.pool.Exec(ctx, query, models.RunRunning, startedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// Finish stores the terminal status, counters and error of run.
func (r *RunRepository) Finish(ctx context.Context, run *models.Run) error {
	query := `
		UPDATE scrape_runs SET
			status = $1, pages = $2, created = $3, updated = $4,
			skipped_not_target = $5, skipped_existing = $6, errors = $7,
			error_message = $8, finished_at = $9
		WHERE id = $10`

	result, err := r.db.pool.Exec(ctx, query,
		run.Status, run.Pages, run.Created, run.Updated,
		run.SkippedNotTarget, run.SkippedExisting, run.Errors,
		nullable(run.Error), run.FinishedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", classify(err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

func (r *RunRepository) Get(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	run, err := scanRun(r.db.pool.QueryRow(ctx, selectRunSQL+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*models.Run, error) {
	rows, err := r.db.pool.Query(ctx, selectRunSQL+" ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*models.Run, error) {
	run := &models.Run{}
	var errMsg *string
	err := row.Scan(
		&run.ID, &run.Status, &run.Trigger, &run.Pages, &run.Created, &run.Updated,
		&run.SkippedNotTarget, &run.SkippedExisting, &run.Errors, &errMsg,
		&run.CreatedAt, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	return run, nil
}
