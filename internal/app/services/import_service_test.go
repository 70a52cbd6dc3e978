package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/yigit/machzor/internal/app/models"
	"github.com/yigit/machzor/internal/app/repositories"
	"github.com/yigit/machzor/internal/pkg/apperrors"
)

// flakyStudentStore fails every write for one ID number so tests can observe
// per-row isolation.
type flakyStudentStore struct {
	*repositories.InMemoryStudentStore
	failIDNumber string
}

var errStorageOffline = errors.New("storage offline")

func (s *flakyStudentStore) CreateWithEvents(ctx context.Context, student *models.Student, events []*models.HistoryEvent) error {
	if student.IDNumber == s.failIDNumber {
		return errStorageOffline
	}
	return s.InMemoryStudentStore.CreateWithEvents(ctx, student, events)
}

type ImportServiceSuite struct {
	suite.Suite
	store    *repositories.InMemoryStudentStore
	runs     *repositories.InMemoryImportRunStore
	service  *ImportService
	students *StudentService
	ctx      context.Context
	now      time.Time
}

func (s *ImportServiceSuite) SetupTest() {
	s.store = repositories.NewInMemoryStudentStore()
	s.runs = repositories.NewInMemoryImportRunStore()
	s.ctx = context.Background()
	s.now = time.Date(2024, time.October, 15, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }
	s.service = NewImportService(s.store, s.runs, nil, clock)
	s.students = NewStudentService(s.store, s.store, nil, clock)
}

func TestImportServiceSuite(t *testing.T) {
	suite.Run(t, new(ImportServiceSuite))
}

// row builds a complete roster row in the raw spellings a Hebrew export uses.
func (s *ImportServiceSuite) row(idNumber, grade string) models.RosterRow {
	return models.RosterRow{
		IDNumber:  idNumber,
		LastName:  "לוי",
		FirstName: "יוסף",
		Grade:     grade,
		Stream:    "1",
		Gender:    "זכר",
		Track:     "Physics",
	}
}

// seedStudent registers a student through the regular service path so the
// stored record is normalized and carries its opening events.
func (s *ImportServiceSuite) seedStudent(idNumber, grade, cycle, status string) *models.Student {
	student := &models.Student{
		IDNumber:  idNumber,
		LastName:  "לוי",
		FirstName: "יוסף",
		Grade:     models.GradePtr(grade),
		Stream:    "1",
		Gender:    "male",
		Track:     "Physics",
		Status:    status,
		Cycle:     cycle,
	}
	created, err := s.students.CreateStudent(s.ctx, student, "Sara Levi", "")
	s.Require().NoError(err)
	return created
}

// TestReconcileCreates verifies the create path, including cycle derivation
// from the roster grade at the current academic year.
func (s *ImportServiceSuite) TestReconcileCreates() {
	rows := []models.RosterRow{
		s.row("100000001", "ז"),
		s.row("100000002", "י׳"),
		s.row("100000003", "יב"),
	}
	rows[2].Gender = "בת"

	result, err := s.service.Reconcile(s.ctx, rows, "Sara Levi", "mashov export")
	s.Require().NoError(err)
	s.Equal(3, result.Processed)
	s.Equal(3, result.Created)
	s.Equal(0, result.Updated)
	s.Equal(0, result.Skipped)
	s.Empty(result.Errors)

	expected := map[string]string{
		"100000001": "2024",
		"100000002": "2021",
		"100000003": "2019",
	}
	for idNumber, cycle := range expected {
		student, err := s.store.GetByIDNumber(s.ctx, idNumber)
		s.Require().NoError(err)
		s.Equal(cycle, student.Cycle)
		s.Equal(models.StatusStudying, student.Status)

		events, err := s.store.ListByStudent(s.ctx, student.ID)
		s.Require().NoError(err)
		s.Len(events, 2)
	}

	normalized, err := s.store.GetByIDNumber(s.ctx, "100000002")
	s.Require().NoError(err)
	s.Equal("י", normalized.GradeValue())

	female, err := s.store.GetByIDNumber(s.ctx, "100000003")
	s.Require().NoError(err)
	s.Equal("female", female.Gender)
}

// TestReconcileUpdates verifies the update path against already-known
// students.
func (s *ImportServiceSuite) TestReconcileUpdates() {
	s.Run("applies changed fields and preserves the curated status", func() {
		seeded := s.seedStudent("200000001", "יב", "2019", models.StatusCompleted)

		row := s.row("200000001", "יב")
		row.Track = "Biology"
		result, err := s.service.Reconcile(s.ctx, []models.RosterRow{row}, "Sara Levi", "mashov export")
		s.Require().NoError(err)
		s.Equal(1, result.Updated)

		student, err := s.store.GetByID(s.ctx, seeded.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, student.Status)
		s.Equal("Biology", student.Track)

		events, err := s.store.ListByStudent(s.ctx, seeded.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 3)
		s.Equal("Track changed from 'Physics' to 'Biology'", events[0].ChangeDescription)
	})

	s.Run("prefers the grade-derived cycle over the stored one", func() {
		seeded := s.seedStudent("200000002", "י", "2021", models.StatusStudying)

		row := s.row("200000002", "יא")
		result, err := s.service.Reconcile(s.ctx, []models.RosterRow{row}, "Sara Levi", "mashov export")
		s.Require().NoError(err)
		s.Equal(1, result.Updated)

		student, err := s.store.GetByID(s.ctx, seeded.ID)
		s.Require().NoError(err)
		s.Equal("יא", student.GradeValue())
		s.Equal("2020", student.Cycle)
	})

	s.Run("falls back to the stored cycle when the roster grade is blank", func() {
		seeded := s.seedStudent("200000003", "י", "2021", models.StatusStudying)

		row := s.row("200000003", "")
		row.Stream = "2"
		result, err := s.service.Reconcile(s.ctx, []models.RosterRow{row}, "Sara Levi", "mashov export")
		s.Require().NoError(err)
		s.Equal(1, result.Updated)

		student, err := s.store.GetByID(s.ctx, seeded.ID)
		s.Require().NoError(err)
		s.Nil(student.Grade)
		s.Equal("2021", student.Cycle)
		s.Equal("2", student.Stream)
	})
}

// TestReconcileIdempotency verifies that re-running the same roster changes
// nothing.
func (s *ImportServiceSuite) TestReconcileIdempotency() {
	rows := []models.RosterRow{
		s.row("300000001", "ח"),
		s.row("300000002", "ט"),
	}

	first, err := s.service.Reconcile(s.ctx, rows, "Sara Levi", "mashov export")
	s.Require().NoError(err)
	s.Equal(2, first.Created)

	second, err := s.service.Reconcile(s.ctx, rows, "Sara Levi", "mashov export")
	s.Require().NoError(err)
	s.Equal(2, second.Processed)
	s.Equal(0, second.Created)
	s.Equal(0, second.Updated)
	s.Equal(2, second.Skipped)
	s.Empty(second.Errors)

	student, err := s.store.GetByIDNumber(s.ctx, "300000001")
	s.Require().NoError(err)
	events, err := s.store.ListByStudent(s.ctx, student.ID)
	s.Require().NoError(err)
	s.Len(events, 2)
}

// TestReconcileDrops verifies that rows missing identity fields vanish
// without a trace in the counts.
func (s *ImportServiceSuite) TestReconcileDrops() {
	incomplete := s.row("", "ז")
	nameless := s.row("400000002", "ז")
	nameless.LastName = "  "

	rows := []models.RosterRow{s.row("400000001", "ז"), incomplete, nameless}
	result, err := s.service.Reconcile(s.ctx, rows, "Sara Levi", "mashov export")
	s.Require().NoError(err)
	s.Equal(1, result.Processed)
	s.Equal(1, result.Created)
	s.Empty(result.Errors)

	_, err = s.store.GetByIDNumber(s.ctx, "400000002")
	s.Require().ErrorIs(err, apperrors.ErrStudentNotFound)
}

// TestReconcileRowErrors verifies per-row isolation and that positions refer
// to the full input sequence, dropped rows included.
func (s *ImportServiceSuite) TestReconcileRowErrors() {
	dropped := s.row("500000002", "ז")
	dropped.FirstName = ""
	invalid := s.row("500000003", "ז")
	invalid.Gender = "unknown"

	rows := []models.RosterRow{s.row("500000001", "ז"), dropped, invalid}
	result, err := s.service.Reconcile(s.ctx, rows, "Sara Levi", "mashov export")
	s.Require().NoError(err)

	s.Equal(2, result.Processed)
	s.Equal(1, result.Created)
	s.Require().Len(result.Errors, 1)
	s.Equal(3, result.Errors[0].Row)
	s.Equal("500000003", result.Errors[0].IDNumber)
	s.Require().ErrorIs(result.Errors[0], apperrors.ErrInvalidGender)
	s.Equal(result.Processed, result.Created+result.Updated+result.Skipped+len(result.Errors))

	_, err = s.store.GetByIDNumber(s.ctx, "500000001")
	s.Require().NoError(err)
}

// TestReconcileDuplicateKeys verifies that a repeated natural key within one
// batch resolves last-wins against the live store state.
func (s *ImportServiceSuite) TestReconcileDuplicateKeys() {
	second := s.row("600000001", "ז")
	second.Track = "Biology"

	rows := []models.RosterRow{s.row("600000001", "ז"), second}
	result, err := s.service.Reconcile(s.ctx, rows, "Sara Levi", "mashov export")
	s.Require().NoError(err)
	s.Equal(1, result.Created)
	s.Equal(1, result.Updated)

	student, err := s.store.GetByIDNumber(s.ctx, "600000001")
	s.Require().NoError(err)
	s.Equal("Biology", student.Track)
}

// TestReconcileProvisionalGrade verifies that an unrecognized grade label
// survives and falls back to the current year for the cycle.
func (s *ImportServiceSuite) TestReconcileProvisionalGrade() {
	result, err := s.service.Reconcile(s.ctx, []models.RosterRow{s.row("700000001", "13")}, "Sara Levi", "mashov export")
	s.Require().NoError(err)
	s.Equal(1, result.Created)

	student, err := s.store.GetByIDNumber(s.ctx, "700000001")
	s.Require().NoError(err)
	s.Equal("13", student.GradeValue())
	s.Equal("2024", student.Cycle)
}

// TestReconcileStoreFailure verifies that a failing write only costs its own
// row.
func (s *ImportServiceSuite) TestReconcileStoreFailure() {
	flaky := &flakyStudentStore{InMemoryStudentStore: s.store, failIDNumber: "800000002"}
	service := NewImportService(flaky, s.runs, nil, func() time.Time { return s.now })

	rows := []models.RosterRow{
		s.row("800000001", "ז"),
		s.row("800000002", "ז"),
		s.row("800000003", "ז"),
	}
	result, err := service.Reconcile(s.ctx, rows, "Sara Levi", "mashov export")
	s.Require().NoError(err)
	s.Equal(2, result.Created)
	s.Require().Len(result.Errors, 1)
	s.Equal(2, result.Errors[0].Row)
	s.Require().ErrorIs(result.Errors[0], errStorageOffline)

	_, err = s.store.GetByIDNumber(s.ctx, "800000001")
	s.Require().NoError(err)
	_, err = s.store.GetByIDNumber(s.ctx, "800000003")
	s.Require().NoError(err)
}

// TestRunRecording verifies the persisted audit trail of reconciliation
// batches.
func (s *ImportServiceSuite) TestRunRecording() {
	s.Run("records counts and rendered errors", func() {
		invalid := s.row("900000002", "ז")
		invalid.Gender = "unknown"
		rows := []models.RosterRow{s.row("900000001", "ז"), invalid}

		_, err := s.service.Reconcile(s.ctx, rows, "Sara Levi", "mashov export")
		s.Require().NoError(err)

		runs, total, err := s.service.ListRuns(s.ctx, 0, 20)
		s.Require().NoError(err)
		s.Equal(int64(1), total)
		s.Require().Len(runs, 1)

		run := runs[0]
		s.Equal("mashov export", run.SourceLabel)
		s.Equal("Sara Levi", run.Actor)
		s.Equal(2, run.Processed)
		s.Equal(1, run.Created)
		s.Require().Len(run.Errors, 1)
		s.Contains(run.Errors[0], "row 2 (900000002)")
		s.Nil(run.FileName)

		fetched, err := s.service.GetRun(s.ctx, run.ID)
		s.Require().NoError(err)
		s.Equal(run.ID, fetched.ID)
	})

	s.Run("keeps the uploaded file reference", func() {
		rows := []models.RosterRow{s.row("900000003", "ז")}
		_, err := s.service.ReconcileUpload(s.ctx, rows, "Sara Levi", "file upload", "roster.csv", "/uploads/roster.csv")
		s.Require().NoError(err)

		runs, _, err := s.service.ListRuns(s.ctx, 0, 1)
		s.Require().NoError(err)
		s.Require().Len(runs, 1)
		s.Require().NotNil(runs[0].FileName)
		s.Equal("roster.csv", *runs[0].FileName)
		s.Require().NotNil(runs[0].FilePath)
		s.Equal("/uploads/roster.csv", *runs[0].FilePath)
	})

	s.Run("records an empty roster as a zero-count run", func() {
		result, err := s.service.Reconcile(s.ctx, nil, "Sara Levi", "mashov export")
		s.Require().NoError(err)
		s.Equal(0, result.Processed)

		_, total, err := s.service.ListRuns(s.ctx, 0, 20)
		s.Require().NoError(err)
		s.Equal(int64(3), total)
	})

	s.Run("returns ErrImportRunNotFound for an unknown run", func() {
		_, err := s.service.GetRun(s.ctx, 9999)
		s.Require().ErrorIs(err, apperrors.ErrImportRunNotFound)
	})
}
