package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/yigit/machzor/internal/app/models"
	"github.com/yigit/machzor/internal/db"
	"github.com/yigit/machzor/internal/pkg/apperrors"
	"github.com/yigit/machzor/internal/pkg/dberrors"
	"github.com/yigit/machzor/internal/pkg/logger"
)

// studentIDNumberConstraint is the unique constraint guarding the natural key.
const studentIDNumberConstraint = "students_id_number_key"

var studentColumns = []string{
	"id", "id_number", "last_name", "first_name", "grade",
	"stream", "gender", "track", "status", "cycle",
	"created_at", "updated_at",
}

// StudentRepository handles database operations for student records. Write
// operations carry their history events inside the same transaction so a
// student row and its audit trail can never diverge.
type StudentRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(database *db.PostgresDB) *StudentRepository {
	return &StudentRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	student := &models.Student{}
	err := row.Scan(
		&student.ID,
		&student.IDNumber,
		&student.LastName,
		&student.FirstName,
		&student.Grade,
		&student.Stream,
		&student.Gender,
		&student.Track,
		&student.Status,
		&student.Cycle,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return student, nil
}

// GetByID retrieves a student by primary key.
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	sql, args, err := r.sb.Select(studentColumns...).
		From("students").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get student by ID SQL")
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	student, err := scanStudent(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Warn().Int64("studentID", id).Msg("Student not found by ID")
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Int64("studentID", id).Msg("Error scanning student row")
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return student, nil
}

// GetByIDNumber retrieves a student by the national ID number, the natural
// key used when reconciling external rosters.
func (r *StudentRepository) GetByIDNumber(ctx context.Context, idNumber string) (*models.Student, error) {
	sql, args, err := r.sb.Select(studentColumns...).
		From("students").
		Where(squirrel.Eq{"id_number": idNumber}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get student by ID number SQL")
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	student, err := scanStudent(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Str("idNumber", idNumber).Msg("Error scanning student row")
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return student, nil
}

func applyStudentFilter(query squirrel.SelectBuilder, filter models.StudentFilter) squirrel.SelectBuilder {
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.Grade != "" {
		query = query.Where(squirrel.Eq{"grade": filter.Grade})
	}
	if filter.Cycle != "" {
		query = query.Where(squirrel.Eq{"cycle": filter.Cycle})
	}
	if filter.Stream != "" {
		query = query.Where(squirrel.Eq{"stream": filter.Stream})
	}
	if filter.Track != "" {
		query = query.Where(squirrel.Eq{"track": filter.Track})
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"last_name": pattern},
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"id_number": pattern},
		})
	}
	return query
}

// List retrieves students matching the filter, ordered by name, along with
// the total count of matches for pagination.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter, offset uint64, limit uint64) ([]*models.Student, int64, error) {
	countSQL, countArgs, err := applyStudentFilter(r.sb.Select("COUNT(*)").From("students"), filter).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building count students SQL")
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := r.db.Pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting students")
		return nil, 0, fmt.Errorf("error counting students: %w", err)
	}

	sql, args, err := applyStudentFilter(r.sb.Select(studentColumns...).From("students"), filter).
		OrderBy("last_name ASC", "first_name ASC", "id ASC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list students SQL")
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list students query")
		return nil, 0, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	students := make([]*models.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning student row")
			return nil, 0, fmt.Errorf("error scanning student row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error reading student rows: %w", err)
	}

	return students, total, nil
}

// GradeCounts aggregates studying students per grade label.
func (r *StudentRepository) GradeCounts(ctx context.Context) ([]models.GradeCount, error) {
	sql, args, err := r.sb.Select("grade", "COUNT(*)").
		From("students").
		Where(squirrel.NotEq{"grade": nil}).
		Where(squirrel.Eq{"status": models.StatusStudying}).
		GroupBy("grade").
		OrderBy("grade ASC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building grade counts SQL")
		return nil, fmt.Errorf("failed to build grade counts query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing grade counts query")
		return nil, fmt.Errorf("error aggregating grade counts: %w", err)
	}
	defer rows.Close()

	counts := make([]models.GradeCount, 0)
	for rows.Next() {
		var count models.GradeCount
		if err := rows.Scan(&count.Grade, &count.Count); err != nil {
			return nil, fmt.Errorf("error scanning grade count: %w", err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading grade counts: %w", err)
	}
	return counts, nil
}

// StatusCounts aggregates students per lifecycle status.
func (r *StudentRepository) StatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	sql, args, err := r.sb.Select("status", "COUNT(*)").
		From("students").
		GroupBy("status").
		OrderBy("status ASC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building status counts SQL")
		return nil, fmt.Errorf("failed to build status counts query: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing status counts query")
		return nil, fmt.Errorf("error aggregating status counts: %w", err)
	}
	defer rows.Close()

	counts := make([]models.StatusCount, 0)
	for rows.Next() {
		var count models.StatusCount
		if err := rows.Scan(&count.Status, &count.Count); err != nil {
			return nil, fmt.Errorf("error scanning status count: %w", err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading status counts: %w", err)
	}
	return counts, nil
}

// CreateWithEvents inserts a new student together with its history events in
// a single transaction. The student ID assigned by the database is written
// back to the student and to every event. Uniqueness of the ID number is
// enforced by the database constraint, not by a prior lookup, so concurrent
// creates cannot race past each other.
func (r *StudentRepository) CreateWithEvents(ctx context.Context, student *models.Student, events []*models.HistoryEvent) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Insert("students").
			Columns("id_number", "last_name", "first_name", "grade", "stream",
				"gender", "track", "status", "cycle", "created_at", "updated_at").
			Values(student.IDNumber, student.LastName, student.FirstName, student.Grade, student.Stream,
				student.Gender, student.Track, student.Status, student.Cycle, student.CreatedAt, student.UpdatedAt).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			logger.Error().Err(err).Msg("Error building create student SQL")
			return fmt.Errorf("failed to build create student query: %w", err)
		}

		if err := tx.QueryRow(txCtx, sql, args...).Scan(&student.ID); err != nil {
			if dberrors.IsDuplicateConstraintError(err, studentIDNumberConstraint) {
				logger.Warn().Str("idNumber", student.IDNumber).Msg("Attempted to create student with duplicate ID number")
				return apperrors.ErrDuplicateIDNumber
			}
			logger.Error().Err(err).Str("idNumber", student.IDNumber).Msg("Error executing create student query")
			return fmt.Errorf("error creating student: %w", err)
		}

		for _, event := range events {
			event.StudentID = student.ID
			if err := insertHistoryEvent(txCtx, tx, event); err != nil {
				return err
			}
		}

		logger.Info().Int64("studentID", student.ID).Str("idNumber", student.IDNumber).Msg("Student created successfully")
		return nil
	})
}

// UpdateWithEvents persists a full replacement of the student row together
// with the history events describing what changed, atomically.
func (r *StudentRepository) UpdateWithEvents(ctx context.Context, student *models.Student, events []*models.HistoryEvent) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Update("students").
			Set("id_number", student.IDNumber).
			Set("last_name", student.LastName).
			Set("first_name", student.FirstName).
			Set("grade", student.Grade).
			Set("stream", student.Stream).
			Set("gender", student.Gender).
			Set("track", student.Track).
			Set("status", student.Status).
			Set("cycle", student.Cycle).
			Set("updated_at", student.UpdatedAt).
			Where(squirrel.Eq{"id": student.ID}).
			ToSql()
		if err != nil {
			logger.Error().Err(err).Msg("Error building update student SQL")
			return fmt.Errorf("failed to build update student query: %w", err)
		}

		tag, err := tx.Exec(txCtx, sql, args...)
		if err != nil {
			if dberrors.IsDuplicateConstraintError(err, studentIDNumberConstraint) {
				logger.Warn().Str("idNumber", student.IDNumber).Msg("Attempted to update student to duplicate ID number")
				return apperrors.ErrDuplicateIDNumber
			}
			logger.Error().Err(err).Int64("studentID", student.ID).Msg("Error executing update student query")
			return fmt.Errorf("error updating student: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrStudentNotFound
		}

		for _, event := range events {
			event.StudentID = student.ID
			if err := insertHistoryEvent(txCtx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteWithEvents appends the deletion event and removes the student row in
// one transaction. The foreign key cascade wipes the student's history,
// including the deletion event itself, leaving no orphaned trail.
func (r *StudentRepository) DeleteWithEvents(ctx context.Context, id int64, event *models.HistoryEvent) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		event.StudentID = id
		if err := insertHistoryEvent(txCtx, tx, event); err != nil {
			if dberrors.IsForeignKeyViolation(err) {
				return apperrors.ErrStudentNotFound
			}
			return err
		}

		sql, args, err := r.sb.Delete("students").
			Where(squirrel.Eq{"id": id}).
			ToSql()
		if err != nil {
			logger.Error().Err(err).Msg("Error building delete student SQL")
			return fmt.Errorf("failed to build delete student query: %w", err)
		}

		tag, err := tx.Exec(txCtx, sql, args...)
		if err != nil {
			logger.Error().Err(err).Int64("studentID", id).Msg("Error executing delete student query")
			return fmt.Errorf("error deleting student: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrStudentNotFound
		}

		logger.Info().Int64("studentID", id).Msg("Student deleted with full history")
		return nil
	})
}
