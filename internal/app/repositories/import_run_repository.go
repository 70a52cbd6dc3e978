package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yigit/machzor/internal/app/models"
	"github.com/yigit/machzor/internal/db"
	"github.com/yigit/machzor/internal/pkg/apperrors"
	"github.com/yigit/machzor/internal/pkg/logger"
)

// ImportRunRepository handles database operations for reconciliation runs.
type ImportRunRepository struct {
	db *db.PostgresDB
}

// NewImportRunRepository creates a new ImportRunRepository
func NewImportRunRepository(database *db.PostgresDB) *ImportRunRepository {
	return &ImportRunRepository{db: database}
}

// Create persists the outcome of one reconciliation run. Row errors are
// stored as a JSON array so the audit screen can show them verbatim.
func (r *ImportRunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	if run.Errors == nil {
		run.Errors = []string{}
	}
	errorsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode run errors: %w", err)
	}

	query := `
		INSERT INTO import_runs
			(source_label, file_name, file_path, actor, processed, created,
			 updated, skipped, errors, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err = r.db.Pool.QueryRow(ctx, query,
		run.SourceLabel, run.FileName, run.FilePath, run.Actor, run.Processed, run.Created,
		run.Updated, run.Skipped, errorsJSON, run.StartedAt, run.FinishedAt,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		logger.Error().Err(err).Str("sourceLabel", run.SourceLabel).Msg("Error inserting import run")
		return fmt.Errorf("error inserting import run: %w", err)
	}
	return nil
}

func scanImportRun(row pgx.Row) (*models.ImportRun, error) {
	run := &models.ImportRun{}
	var errorsJSON []byte
	err := row.Scan(
		&run.ID,
		&run.SourceLabel,
		&run.FileName,
		&run.FilePath,
		&run.Actor,
		&run.Processed,
		&run.Created,
		&run.Updated,
		&run.Skipped,
		&errorsJSON,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &run.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode run errors: %w", err)
		}
	}
	if run.Errors == nil {
		run.Errors = []string{}
	}
	return run, nil
}

// GetByID retrieves a single reconciliation run.
func (r *ImportRunRepository) GetByID(ctx context.Context, id int64) (*models.ImportRun, error) {
	query := `
		SELECT id, source_label, file_name, file_path, actor, processed, created,
		       updated, skipped, errors, started_at, finished_at, created_at
		FROM import_runs
		WHERE id = $1`

	run, err := scanImportRun(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrImportRunNotFound
		}
		logger.Error().Err(err).Int64("runID", id).Msg("Error scanning import run row")
		return nil, fmt.Errorf("error retrieving import run: %w", err)
	}
	return run, nil
}

// List retrieves reconciliation runs newest first, with the total count for
// pagination.
func (r *ImportRunRepository) List(ctx context.Context, offset uint64, limit uint64) ([]*models.ImportRun, int64, error) {
	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM import_runs`).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting import runs")
		return nil, 0, fmt.Errorf("error counting import runs: %w", err)
	}

	query := `
		SELECT id, source_label, file_name, file_path, actor, processed, created,
		       updated, skipped, errors, started_at, finished_at, created_at
		FROM import_runs
		ORDER BY started_at DESC, id DESC
		OFFSET $1 LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, offset, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list import runs query")
		return nil, 0, fmt.Errorf("error listing import runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.ImportRun, 0)
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning import run row")
			return nil, 0, fmt.Errorf("error scanning import run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error reading import runs: %w", err)
	}
	return runs, total, nil
}
