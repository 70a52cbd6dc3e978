package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/yigit/machzor/internal/app/models"
	"github.com/yigit/machzor/internal/pkg/academic"
	"github.com/yigit/machzor/internal/pkg/apperrors"
	"github.com/yigit/machzor/internal/pkg/logger"
)

// ImportService reconciles roster snapshots from external feeder systems
// against the registry. A snapshot never deletes anyone: students absent
// from it are left untouched, students present in it are created or brought
// up to date, and each applied change lands in the history trail exactly as
// a manual edit would.
type ImportService struct {
	students StudentStore
	runs     ImportRunStore
	notifier ActivityNotifier
	clock    academic.Clock
}

// NewImportService creates a new ImportService. A nil clock falls back to
// the wall clock.
func NewImportService(students StudentStore, runs ImportRunStore, notifier ActivityNotifier, clock academic.Clock) *ImportService {
	if clock == nil {
		clock = time.Now
	}
	return &ImportService{
		students: students,
		runs:     runs,
		notifier: notifier,
		clock:    clock,
	}
}

func (s *ImportService) notify(events ...*models.HistoryEvent) {
	if s.notifier != nil {
		s.notifier.NotifyEvents(events...)
	}
}

// rosterEntry pairs a surviving row with its 1-based position in the
// original sequence, so error messages stay traceable after incomplete rows
// are dropped.
type rosterEntry struct {
	position int
	row      models.RosterRow
}

func normalizeRow(row models.RosterRow) models.RosterRow {
	row.IDNumber = strings.TrimSpace(row.IDNumber)
	row.LastName = strings.TrimSpace(row.LastName)
	row.FirstName = strings.TrimSpace(row.FirstName)
	row.Grade = academic.NormalizeGrade(row.Grade)
	row.Stream = strings.TrimSpace(row.Stream)
	row.Gender = academic.NormalizeGender(row.Gender)
	row.Track = strings.TrimSpace(row.Track)
	return row
}

// Reconcile applies one roster snapshot to the registry and records the run.
// Rows are processed in order; a failing row is reported and isolated while
// the rest of the batch continues. Re-running the same snapshot is safe: a
// second pass finds nothing to change and reports every row as skipped.
func (s *ImportService) Reconcile(ctx context.Context, rows []models.RosterRow, actor, sourceLabel string) (*models.ReconciliationResult, error) {
	return s.reconcile(ctx, rows, actor, sourceLabel, nil, nil)
}

// ReconcileUpload behaves like Reconcile and additionally links the recorded
// run to the archived roster file it came from.
func (s *ImportService) ReconcileUpload(ctx context.Context, rows []models.RosterRow, actor, sourceLabel, fileName, filePath string) (*models.ReconciliationResult, error) {
	return s.reconcile(ctx, rows, actor, sourceLabel, &fileName, &filePath)
}

func (s *ImportService) reconcile(ctx context.Context, rows []models.RosterRow, actor, sourceLabel string, fileName, filePath *string) (*models.ReconciliationResult, error) {
	startedAt := s.clock()
	refYear := academic.CurrentAcademicYear(startedAt)
	currentCycle := strconv.Itoa(refYear)

	// Rows without the natural key or a name cannot be matched to anyone
	// and are dropped without ceremony.
	entries := make([]rosterEntry, 0, len(rows))
	for i, row := range rows {
		normalized := normalizeRow(row)
		if normalized.IDNumber == "" || normalized.LastName == "" || normalized.FirstName == "" {
			continue
		}
		entries = append(entries, rosterEntry{position: i + 1, row: normalized})
	}

	result := &models.ReconciliationResult{Processed: len(entries)}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.reconcileRow(ctx, entry.row, refYear, currentCycle, actor, result); err != nil {
			result.Errors = append(result.Errors, &models.RowError{
				Row:      entry.position,
				IDNumber: entry.row.IDNumber,
				Err:      err,
			})
		}
	}

	s.recordRun(ctx, result, actor, sourceLabel, fileName, filePath, startedAt, s.clock())

	logger.Info().
		Str("sourceLabel", sourceLabel).
		Int("processed", result.Processed).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("failed", len(result.Errors)).
		Msg("Roster reconciliation finished")

	return result, nil
}

// reconcileRow applies a single normalized row: match by ID number, derive
// the cycle, then create or diff-and-update. Exactly one counter is bumped
// unless an error is returned.
func (s *ImportService) reconcileRow(ctx context.Context, row models.RosterRow, refYear int, currentCycle, actor string, result *models.ReconciliationResult) error {
	existing, err := s.students.GetByIDNumber(ctx, row.IDNumber)
	if err != nil && !errors.Is(err, apperrors.ErrStudentNotFound) {
		return err
	}

	// A recognized grade pins the cycle; otherwise an existing student keeps
	// their cycle and a new one is assumed to start this year.
	cycle := currentCycle
	if year, ok := academic.CycleFromGrade(row.Grade, refYear); ok {
		cycle = strconv.Itoa(year)
	} else if existing != nil {
		cycle = existing.Cycle
	}

	candidate := &models.Student{
		IDNumber:  row.IDNumber,
		LastName:  row.LastName,
		FirstName: row.FirstName,
		Grade:     models.GradePtr(row.Grade),
		Stream:    row.Stream,
		Gender:    row.Gender,
		Track:     row.Track,
		Cycle:     cycle,
	}

	if existing == nil {
		candidate.Status = models.StatusStudying
		if err := validateStudentRecord(candidate, refYear); err != nil {
			return err
		}

		now := s.clock()
		candidate.CreatedAt = now
		candidate.UpdatedAt = now
		events := []*models.HistoryEvent{
			models.NewCreatedEvent(candidate, actor, ""),
			models.NewStartStudiesEvent(candidate, actor, ""),
		}
		if err := s.students.CreateWithEvents(ctx, candidate, events); err != nil {
			return err
		}

		result.Created++
		s.notify(events...)
		return nil
	}

	// The lifecycle status is curated by the office, never by a feed.
	candidate.Status = existing.Status
	if err := validateStudentRecord(candidate, refYear); err != nil {
		return err
	}

	changes := models.DiffStudents(existing, candidate, models.ImportDiffFields)
	if len(changes) == 0 {
		result.Skipped++
		return nil
	}

	now := s.clock()
	candidate.ID = existing.ID
	candidate.CreatedAt = existing.CreatedAt
	candidate.UpdatedAt = now

	events := make([]*models.HistoryEvent, 0, len(changes))
	for _, change := range changes {
		events = append(events, models.NewFieldUpdateEvent(existing.ID, change, actor, "", now))
	}
	if err := s.students.UpdateWithEvents(ctx, candidate, events); err != nil {
		return err
	}

	result.Updated++
	s.notify(events...)
	return nil
}

// recordRun persists the outcome for the audit screen. The batch itself is
// already committed row by row, so a failed audit write is only logged.
func (s *ImportService) recordRun(ctx context.Context, result *models.ReconciliationResult, actor, sourceLabel string, fileName, filePath *string, startedAt, finishedAt time.Time) {
	if s.runs == nil {
		return
	}
	run := &models.ImportRun{
		SourceLabel: sourceLabel,
		FileName:    fileName,
		FilePath:    filePath,
		Actor:       actor,
		Processed:   result.Processed,
		Created:     result.Created,
		Updated:     result.Updated,
		Skipped:     result.Skipped,
		Errors:      result.ErrorStrings(),
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		logger.Error().Err(err).Str("sourceLabel", sourceLabel).Msg("Failed to record import run")
	}
}

// ListRuns retrieves past reconciliation runs, newest first.
func (s *ImportService) ListRuns(ctx context.Context, offset uint64, limit uint64) ([]*models.ImportRun, int64, error) {
	return s.runs.List(ctx, offset, limit)
}

// GetRun retrieves a single reconciliation run.
func (s *ImportService) GetRun(ctx context.Context, id int64) (*models.ImportRun, error) {
	return s.runs.GetByID(ctx, id)
}
