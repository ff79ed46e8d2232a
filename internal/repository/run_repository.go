package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/qualprob/internal/database"
	"github.com/yourusername/qualprob/internal/models"
)

const errScanRun = "failed to scan run: %w"

const runColumns = `
	id, job_type, status, records_processed, records_inserted,
	records_updated, records_failed, confederation_counts, warnings,
	error_details, input_hash, environment, trigger_source, notes,
	execution_time_seconds, started_at, completed_at
`

// PostgresRunRepository implements RunRepository for PostgreSQL
type PostgresRunRepository struct {
	db *database.DB
}

// NewPostgresRunRepository creates a new run ledger repository
func NewPostgresRunRepository(db *database.DB) RunRepository {
	return &PostgresRunRepository{db: db}
}

// Create appends a new ledger entry
func (r *PostgresRunRepository) Create(ctx context.Context, run *models.PredictionRun) error {
	query := `
		INSERT INTO prediction_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.Exec(ctx, query,
		run.ID, run.JobType, run.Status, run.RecordsProcessed, run.RecordsInserted,
		run.RecordsUpdated, run.RecordsFailed, run.ConfederationCounts, run.Warnings,
		run.ErrorDetails, run.InputHash, run.Environment, run.TriggerSource, run.Notes,
		run.ExecutionTimeSeconds, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// Update persists the current state of an existing ledger entry
func (r *PostgresRunRepository) Update(ctx context.Context, run *models.PredictionRun) error {
	query := `
		UPDATE prediction_runs SET
			status = $2,
			records_processed = $3,
			records_inserted = $4,
			records_updated = $5,
			records_failed = $6,
			confederation_counts = $7,
			warnings = $8,
			error_details = $9,
			notes = $10,
			execution_time_seconds = $11,
			completed_at = $12
		WHERE id = $1
	`

	commandTag, err := r.db.Exec(ctx, query,
		run.ID, run.Status, run.RecordsProcessed, run.RecordsInserted,
		run.RecordsUpdated, run.RecordsFailed, run.ConfederationCounts, run.Warnings,
		run.ErrorDetails, run.Notes, run.ExecutionTimeSeconds, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// GetByID retrieves a run by ID
func (r *PostgresRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PredictionRun, error) {
	query := `SELECT ` + runColumns + ` FROM prediction_runs WHERE id = $1`

	run := &models.PredictionRun{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.JobType, &run.Status, &run.RecordsProcessed, &run.RecordsInserted,
		&run.RecordsUpdated, &run.RecordsFailed, &run.ConfederationCounts, &run.Warnings,
		&run.ErrorDetails, &run.InputHash, &run.Environment, &run.TriggerSource, &run.Notes,
		&run.ExecutionTimeSeconds, &run.StartedAt, &run.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// GetRecent retrieves the most recent runs, newest first. An empty job
// type matches every job.
func (r *PostgresRunRepository) GetRecent(ctx context.Context, jobType models.JobType, limit int) ([]*models.PredictionRun, error) {
	query := `SELECT ` + runColumns + ` FROM prediction_runs`

	var args []any
	if jobType != "" {
		args = append(args, jobType)
		query += " WHERE job_type = $1"
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.PredictionRun
	for rows.Next() {
		run := &models.PredictionRun{}
		err := rows.Scan(
			&run.ID, &run.JobType, &run.Status, &run.RecordsProcessed, &run.RecordsInserted,
			&run.RecordsUpdated, &run.RecordsFailed, &run.ConfederationCounts, &run.Warnings,
			&run.ErrorDetails, &run.InputHash, &run.Environment, &run.TriggerSource, &run.Notes,
			&run.ExecutionTimeSeconds, &run.StartedAt, &run.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf(errScanRun, err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetLatestSuccessByInputHash retrieves the newest successful run that
// processed the given input hash, for batch deduplication.
func (r *PostgresRunRepository) GetLatestSuccessByInputHash(ctx context.Context, inputHash string) (*models.PredictionRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM prediction_runs
		WHERE input_hash = $1 AND status = 'success'
		ORDER BY started_at DESC
		LIMIT 1
	`

	run := &models.PredictionRun{}
	err := r.db.QueryRow(ctx, query, inputHash).Scan(
		&run.ID, &run.JobType, &run.Status, &run.RecordsProcessed, &run.RecordsInserted,
		&run.RecordsUpdated, &run.RecordsFailed, &run.ConfederationCounts, &run.Warnings,
		&run.ErrorDetails, &run.InputHash, &run.Environment, &run.TriggerSource, &run.Notes,
		&run.ExecutionTimeSeconds, &run.StartedAt, &run.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run by input hash: %w", err)
	}

	return run, nil
}

// MarkStaleRunsFailed fails every run still in the running state that
// started before the cutoff, returning how many were transitioned.
// Crashed processes leave such rows behind; the ledger stays truthful
// by settling them instead of letting them run forever.
func (r *PostgresRunRepository) MarkStaleRunsFailed(ctx context.Context, olderThan time.Time) (int, error) {
	query := `
		UPDATE prediction_runs SET
			status = 'failed',
			completed_at = NOW(),
			execution_time_seconds = EXTRACT(EPOCH FROM (NOW() - started_at)),
			notes = CASE WHEN notes = '' THEN 'marked failed by stale run sweep'
			             ELSE notes || '; marked failed by stale run sweep' END
		WHERE status = 'running' AND started_at < $1
	`

	commandTag, err := r.db.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale runs: %w", err)
	}

	return int(commandTag.RowsAffected()), nil
}
