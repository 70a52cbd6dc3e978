package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/yigit/machzor/internal/app/models"
	"github.com/yigit/machzor/internal/db"
	"github.com/yigit/machzor/internal/pkg/apperrors"
	"github.com/yigit/machzor/internal/pkg/dberrors"
	"github.com/yigit/machzor/internal/pkg/logger"
)

var historyEventColumns = []string{
	"id", "student_id", "change_type", "field_name", "old_value",
	"new_value", "location", "changed_by", "change_description", "created_at",
}

// HistoryRepository handles database operations for student history events.
type HistoryRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(database *db.PostgresDB) *HistoryRepository {
	return &HistoryRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// insertHistoryEvent writes one event through the given querier, which may be
// a transaction or the pool. The generated ID is written back to the event.
func insertHistoryEvent(ctx context.Context, q db.Querier, event *models.HistoryEvent) error {
	query := `
		INSERT INTO history_events
			(student_id, change_type, field_name, old_value, new_value,
			 location, changed_by, change_description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := q.QueryRow(ctx, query,
		event.StudentID, event.ChangeType, event.FieldName, event.OldValue, event.NewValue,
		event.Location, event.ChangedBy, event.ChangeDescription, event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		logger.Error().Err(err).Int64("studentID", event.StudentID).Str("changeType", string(event.ChangeType)).Msg("Error inserting history event")
		return fmt.Errorf("error inserting history event: %w", err)
	}
	return nil
}

// Append records a single event outside of a student write, such as a
// location change observed at the front desk.
func (r *HistoryRepository) Append(ctx context.Context, event *models.HistoryEvent) error {
	if err := insertHistoryEvent(ctx, r.db.Pool, event); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			logger.Warn().Int64("studentID", event.StudentID).Msg("History append for unknown student")
			return apperrors.ErrStudentNotFound
		}
		return err
	}
	return nil
}

// ListByStudent retrieves the full event trail of one student, newest first.
// Events created in the same instant keep insertion order via the ID tiebreak.
func (r *HistoryRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.HistoryEvent, error) {
	sql, args, err := r.sb.Select(historyEventColumns...).
		From("history_events").
		Where(squirrel.Eq{"student_id": studentID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list history SQL")
		return nil, fmt.Errorf("failed to build list history query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("studentID", studentID).Msg("Error executing list history query")
		return nil, fmt.Errorf("error listing history events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.HistoryEvent, 0)
	for rows.Next() {
		event := &models.HistoryEvent{}
		err := rows.Scan(
			&event.ID,
			&event.StudentID,
			&event.ChangeType,
			&event.FieldName,
			&event.OldValue,
			&event.NewValue,
			&event.Location,
			&event.ChangedBy,
			&event.ChangeDescription,
			&event.CreatedAt,
		)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning history event row")
			return nil, fmt.Errorf("error scanning history event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading history events: %w", err)
	}
	return events, nil
}
