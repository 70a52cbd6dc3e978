package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yigit/machzor/internal/app/models"
	"github.com/yigit/machzor/internal/app/models/dto"
	"github.com/yigit/machzor/internal/pkg/academic"
	"github.com/yigit/machzor/internal/pkg/apperrors"
	"github.com/yigit/machzor/internal/pkg/validation"
)

// StudentService handles the student lifecycle: creation, whole-record
// updates, deletion, and the audit trail each of them generates. Every write
// reaches the store together with its history events so the trail can never
// drift from the record.
type StudentService struct {
	students StudentStore
	history  HistoryStore
	notifier ActivityNotifier
	clock    academic.Clock
}

// NewStudentService creates a new StudentService. A nil clock falls back to
// the wall clock; tests inject a fixed one.
func NewStudentService(students StudentStore, history HistoryStore, notifier ActivityNotifier, clock academic.Clock) *StudentService {
	if clock == nil {
		clock = time.Now
	}
	return &StudentService{
		students: students,
		history:  history,
		notifier: notifier,
		clock:    clock,
	}
}

func (s *StudentService) notify(events ...*models.HistoryEvent) {
	if s.notifier != nil {
		s.notifier.NotifyEvents(events...)
	}
}

// normalizeStudent trims every textual field and canonicalizes the grade and
// gender spellings. A blank grade becomes absent.
func normalizeStudent(student *models.Student) {
	student.IDNumber = strings.TrimSpace(student.IDNumber)
	student.LastName = strings.TrimSpace(student.LastName)
	student.FirstName = strings.TrimSpace(student.FirstName)
	student.Stream = strings.TrimSpace(student.Stream)
	student.Track = strings.TrimSpace(student.Track)
	student.Cycle = strings.TrimSpace(student.Cycle)
	student.Gender = academic.NormalizeGender(student.Gender)
	student.Status = models.StudentStatus(strings.TrimSpace(string(student.Status)))
	student.Grade = models.GradePtr(academic.NormalizeGrade(student.GradeValue()))
}

// validateStudent checks a normalized record against the registry rules for
// the current academic year.
func (s *StudentService) validateStudent(student *models.Student) error {
	return validateStudentRecord(student, academic.CurrentAcademicYear(s.clock()))
}

// validateStudentRecord checks a normalized record against the registry
// rules. Grade labels are deliberately not restricted to the known ordinals:
// feeder systems ship provisional labels that must survive until corrected.
func validateStudentRecord(student *models.Student, refYear int) error {
	if student == nil {
		return fmt.Errorf("%w: student is nil", apperrors.ErrValidationFailed)
	}
	if student.IDNumber == "" {
		return fmt.Errorf("%w: ID number cannot be empty", apperrors.ErrValidationFailed)
	}
	if !validation.CompiledPatterns.Identifier.MatchString(student.IDNumber) {
		return apperrors.ErrInvalidIDNumber
	}
	if student.LastName == "" {
		return fmt.Errorf("%w: last name cannot be empty", apperrors.ErrValidationFailed)
	}
	if student.FirstName == "" {
		return fmt.Errorf("%w: first name cannot be empty", apperrors.ErrValidationFailed)
	}
	if student.Stream == "" {
		return fmt.Errorf("%w: stream cannot be empty", apperrors.ErrValidationFailed)
	}
	if student.Track == "" {
		return fmt.Errorf("%w: track cannot be empty", apperrors.ErrValidationFailed)
	}
	if student.Gender != academic.GenderMale && student.Gender != academic.GenderFemale {
		return apperrors.ErrInvalidGender
	}
	if !student.Status.IsValid() {
		return apperrors.ErrInvalidStatus
	}
	if !validation.CompiledPatterns.Cycle.MatchString(student.Cycle) {
		return apperrors.ErrInvalidCycle
	}

	cycleYear, ok := student.CycleYear()
	if !ok {
		return apperrors.ErrInvalidCycle
	}
	phase := academic.CyclePhase(cycleYear, refYear)
	if student.Status == models.StatusStudying && phase != academic.PhaseActive {
		return apperrors.ErrStudyingInactiveCycle
	}
	if phase != academic.PhaseActive && student.Grade != nil {
		return apperrors.ErrGradeOnInactiveCycle
	}
	return nil
}

// CreateStudent registers a new student and opens the audit trail with a
// creation event and a start of studies event, both stamped with the
// student's creation time.
func (s *StudentService) CreateStudent(ctx context.Context, student *models.Student, actor, location string) (*models.Student, error) {
	normalizeStudent(student)
	if err := s.validateStudent(student); err != nil {
		return nil, err
	}

	now := s.clock()
	student.CreatedAt = now
	student.UpdatedAt = now

	events := []*models.HistoryEvent{
		models.NewCreatedEvent(student, actor, location),
		models.NewStartStudiesEvent(student, actor, location),
	}
	if err := s.students.CreateWithEvents(ctx, student, events); err != nil {
		return nil, err
	}

	s.notify(events...)
	return student, nil
}

// GetStudentByID retrieves a single student.
func (s *StudentService) GetStudentByID(ctx context.Context, id int64) (*models.Student, error) {
	if id <= 0 {
		return nil, apperrors.ErrStudentNotFound
	}
	return s.students.GetByID(ctx, id)
}

// GetStudentByIDNumber retrieves a single student by the national ID number,
// the natural key feeder systems and office staff match on.
func (s *StudentService) GetStudentByIDNumber(ctx context.Context, idNumber string) (*models.Student, error) {
	idNumber = strings.TrimSpace(idNumber)
	if !validation.CompiledPatterns.Identifier.MatchString(idNumber) {
		return nil, apperrors.ErrInvalidIDNumber
	}
	return s.students.GetByIDNumber(ctx, idNumber)
}

// ListStudents retrieves students matching the filter with the total count.
func (s *StudentService) ListStudents(ctx context.Context, filter models.StudentFilter, offset uint64, limit uint64) ([]*models.Student, int64, error) {
	return s.students.List(ctx, filter, offset, limit)
}

// UpdateStudent replaces the stored record with the candidate and appends
// one field update event per tracked field that actually changed. A
// candidate identical to the stored record is a valid no-op: nothing is
// written and no events appear.
func (s *StudentService) UpdateStudent(ctx context.Context, id int64, candidate *models.Student, actor, location string) (*models.Student, error) {
	current, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	normalizeStudent(candidate)
	if err := s.validateStudent(candidate); err != nil {
		return nil, err
	}

	changes := models.DiffStudents(current, candidate, models.TrackedFields)
	if len(changes) == 0 {
		return current, nil
	}

	now := s.clock()
	candidate.ID = current.ID
	candidate.CreatedAt = current.CreatedAt
	candidate.UpdatedAt = now

	events := make([]*models.HistoryEvent, 0, len(changes))
	for _, change := range changes {
		events = append(events, models.NewFieldUpdateEvent(current.ID, change, actor, location, now))
	}

	if err := s.students.UpdateWithEvents(ctx, candidate, events); err != nil {
		return nil, err
	}

	s.notify(events...)
	return candidate, nil
}

// DeleteStudent appends the deletion event and removes the student. The
// cascade takes the whole trail with the row, so afterwards the student has
// neither a record nor any history.
func (s *StudentService) DeleteStudent(ctx context.Context, id int64, actor, location string) error {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return err
	}

	event := models.NewDeletedEvent(student, actor, location, s.clock())
	if err := s.students.DeleteWithEvents(ctx, id, event); err != nil {
		return err
	}

	s.notify(event)
	return nil
}

// RecordLocationChange notes where a student-related change happened without
// touching the record itself.
func (s *StudentService) RecordLocationChange(ctx context.Context, id int64, location, actor string) (*models.HistoryEvent, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("%w: location cannot be empty", apperrors.ErrValidationFailed)
	}

	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	event := models.NewLocationChangeEvent(student.ID, location, actor, s.clock())
	if err := s.history.Append(ctx, event); err != nil {
		return nil, err
	}

	s.notify(event)
	return event, nil
}

// GetStudentHistory retrieves the student's event trail, newest first.
func (s *StudentService) GetStudentHistory(ctx context.Context, id int64) ([]*models.HistoryEvent, error) {
	if _, err := s.students.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.history.ListByStudent(ctx, id)
}

// GetStats assembles the dashboard summary for the current academic year.
// Grade buckets come back in teaching order, with provisional labels after
// the recognized ordinals.
func (s *StudentService) GetStats(ctx context.Context) (*dto.StudentStatsResponse, error) {
	byGrade, err := s.students.GradeCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error aggregating grade stats: %w", err)
	}
	byStatus, err := s.students.StatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("error aggregating status stats: %w", err)
	}

	var total int64
	for _, bucket := range byStatus {
		total += bucket.Count
	}

	return &dto.StudentStatsResponse{
		AcademicYear: academic.CurrentAcademicYear(s.clock()),
		Total:        total,
		ByGrade:      orderGradeCounts(byGrade),
		ByStatus:     byStatus,
	}, nil
}

func orderGradeCounts(counts []models.GradeCount) []models.GradeCount {
	remaining := make(map[string]models.GradeCount, len(counts))
	for _, count := range counts {
		remaining[count.Grade] = count
	}

	ordered := make([]models.GradeCount, 0, len(counts))
	for _, grade := range academic.GradeOrder {
		if count, ok := remaining[grade]; ok {
			ordered = append(ordered, count)
			delete(remaining, grade)
		}
	}
	for _, count := range counts {
		if _, ok := remaining[count.Grade]; ok {
			ordered = append(ordered, count)
		}
	}
	return ordered
}
