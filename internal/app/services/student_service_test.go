package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/yigit/machzor/internal/app/models"
	"github.com/yigit/machzor/internal/app/repositories"
	"github.com/yigit/machzor/internal/pkg/apperrors"
)

type eventRecorder struct {
	events []*models.HistoryEvent
}

func (r *eventRecorder) NotifyEvents(events ...*models.HistoryEvent) {
	r.events = append(r.events, events...)
}

type StudentServiceSuite struct {
	suite.Suite
	store   *repositories.InMemoryStudentStore
	service *StudentService
	ctx     context.Context
	now     time.Time
}

func (s *StudentServiceSuite) SetupTest() {
	s.store = repositories.NewInMemoryStudentStore()
	s.ctx = context.Background()
	s.now = time.Date(2024, time.October, 15, 9, 30, 0, 0, time.UTC)
	s.service = NewStudentService(s.store, s.store, nil, func() time.Time { return s.now })
}

func TestStudentServiceSuite(t *testing.T) {
	suite.Run(t, new(StudentServiceSuite))
}

// newStudent builds a valid record for the 2024/25 school year.
func (s *StudentServiceSuite) newStudent(idNumber string) *models.Student {
	return &models.Student{
		IDNumber:  idNumber,
		LastName:  "כהן",
		FirstName: "דוד",
		Grade:     models.GradePtr("י"),
		Stream:    "1",
		Gender:    "male",
		Track:     "Physics",
		Status:    models.StatusStudying,
		Cycle:     "2021",
	}
}

func (s *StudentServiceSuite) mustCreate(student *models.Student) *models.Student {
	created, err := s.service.CreateStudent(s.ctx, student, "Sara Levi", "")
	s.Require().NoError(err)
	return created
}

// TestCreateStudent verifies record creation and the opening of the trail.
func (s *StudentServiceSuite) TestCreateStudent() {
	s.Run("creates the record and opens the trail with two events", func() {
		created := s.mustCreate(s.newStudent("123456789"))
		s.Require().Positive(created.ID)
		s.True(created.CreatedAt.Equal(s.now))

		events, err := s.service.GetStudentHistory(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 2)

		s.Equal(models.ChangeTypeStartStudies, events[0].ChangeType)
		s.Equal(models.ChangeTypeCreated, events[1].ChangeType)
		s.True(events[0].CreatedAt.Equal(created.CreatedAt))
		s.True(events[1].CreatedAt.Equal(created.CreatedAt))
		s.Equal("Student דוד כהן (123456789) was created", events[1].ChangeDescription)
		s.Equal("Student דוד כהן (123456789) started studies", events[0].ChangeDescription)
		s.Require().NotNil(events[1].ChangedBy)
		s.Equal("Sara Levi", *events[1].ChangedBy)
	})

	s.Run("rejects a duplicate ID number", func() {
		s.mustCreate(s.newStudent("200000001"))
		_, err := s.service.CreateStudent(s.ctx, s.newStudent("200000001"), "Sara Levi", "")
		s.Require().ErrorIs(err, apperrors.ErrDuplicateIDNumber)
	})

	s.Run("canonicalizes spellings and trims whitespace", func() {
		student := s.newStudent("200000002")
		student.FirstName = "  רחל "
		student.Grade = models.GradePtr("י׳")
		student.Gender = "זכר"

		created := s.mustCreate(student)
		s.Equal("רחל", created.FirstName)
		s.Equal("י", created.GradeValue())
		s.Equal("male", created.Gender)
	})

	s.Run("stores a provisional grade label verbatim", func() {
		student := s.newStudent("200000003")
		student.Grade = models.GradePtr("13")
		student.Cycle = "2024"

		created := s.mustCreate(student)
		s.Equal("13", created.GradeValue())
	})

	s.Run("accepts a completed student of an ended cycle without a grade", func() {
		student := s.newStudent("200000004")
		student.Status = models.StatusCompleted
		student.Cycle = "2010"
		student.Grade = nil

		created := s.mustCreate(student)
		s.Equal(models.StatusCompleted, created.Status)
	})

	s.Run("rejects malformed input", func() {
		cases := []struct {
			name   string
			mutate func(*models.Student)
			want   error
		}{
			{"blank ID number", func(st *models.Student) { st.IDNumber = "  " }, apperrors.ErrValidationFailed},
			{"short ID number", func(st *models.Student) { st.IDNumber = "12345" }, apperrors.ErrInvalidIDNumber},
			{"non-numeric ID number", func(st *models.Student) { st.IDNumber = "12345678a" }, apperrors.ErrInvalidIDNumber},
			{"blank last name", func(st *models.Student) { st.LastName = "" }, apperrors.ErrValidationFailed},
			{"blank first name", func(st *models.Student) { st.FirstName = " " }, apperrors.ErrValidationFailed},
			{"blank stream", func(st *models.Student) { st.Stream = "" }, apperrors.ErrValidationFailed},
			{"blank track", func(st *models.Student) { st.Track = "" }, apperrors.ErrValidationFailed},
			{"unknown gender", func(st *models.Student) { st.Gender = "unknown" }, apperrors.ErrInvalidGender},
			{"unknown status", func(st *models.Student) { st.Status = "paused" }, apperrors.ErrInvalidStatus},
			{"malformed cycle", func(st *models.Student) { st.Cycle = "20x4" }, apperrors.ErrInvalidCycle},
			{"studying on an ended cycle", func(st *models.Student) { st.Cycle = "2010"; st.Grade = nil }, apperrors.ErrStudyingInactiveCycle},
			{"studying on a future cycle", func(st *models.Student) { st.Cycle = "2030"; st.Grade = nil }, apperrors.ErrStudyingInactiveCycle},
			{"grade on an ended cycle", func(st *models.Student) {
				st.Status = models.StatusCompleted
				st.Cycle = "2010"
			}, apperrors.ErrGradeOnInactiveCycle},
		}
		for _, tc := range cases {
			s.Run(tc.name, func() {
				student := s.newStudent("999999999")
				tc.mutate(student)
				_, err := s.service.CreateStudent(s.ctx, student, "Sara Levi", "")
				s.Require().ErrorIs(err, tc.want)
			})
		}
	})
}

// TestUpdateStudent verifies the diff-and-append semantics of record updates.
func (s *StudentServiceSuite) TestUpdateStudent() {
	s.Run("appends one event per changed field with display labels", func() {
		created := s.mustCreate(s.newStudent("300000001"))

		candidate := s.newStudent("300000001")
		candidate.Track = "Biology"
		candidate.Grade = models.GradePtr("יא")
		_, err := s.service.UpdateStudent(s.ctx, created.ID, candidate, "Sara Levi", "front office")
		s.Require().NoError(err)

		events, err := s.service.GetStudentHistory(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 4)

		var trackEvent *models.HistoryEvent
		for _, event := range events {
			if event.ChangeType == models.ChangeTypeFieldUpdate && *event.FieldName == "Track" {
				trackEvent = event
			}
		}
		s.Require().NotNil(trackEvent)
		s.Equal("Physics", *trackEvent.OldValue)
		s.Equal("Biology", *trackEvent.NewValue)
		s.Equal("Track changed from 'Physics' to 'Biology'", trackEvent.ChangeDescription)
		s.Require().NotNil(trackEvent.Location)
		s.Equal("front office", *trackEvent.Location)
	})

	s.Run("treats an identical candidate as a no-op", func() {
		created := s.mustCreate(s.newStudent("300000002"))

		result, err := s.service.UpdateStudent(s.ctx, created.ID, s.newStudent("300000002"), "Sara Levi", "")
		s.Require().NoError(err)
		s.True(result.UpdatedAt.Equal(created.UpdatedAt))

		events, err := s.service.GetStudentHistory(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Len(events, 2)
	})

	s.Run("records clearing the grade as empty text", func() {
		created := s.mustCreate(s.newStudent("300000003"))

		candidate := s.newStudent("300000003")
		candidate.Grade = nil
		_, err := s.service.UpdateStudent(s.ctx, created.ID, candidate, "Sara Levi", "")
		s.Require().NoError(err)

		events, err := s.service.GetStudentHistory(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 3)
		s.Equal(models.ChangeTypeFieldUpdate, events[0].ChangeType)
		s.Equal("Grade", *events[0].FieldName)
		s.Equal("י", *events[0].OldValue)
		s.Equal("", *events[0].NewValue)
	})

	s.Run("bumps UpdatedAt only when something changed", func() {
		created := s.mustCreate(s.newStudent("300000004"))
		createdAt := created.CreatedAt

		s.now = s.now.Add(2 * time.Hour)
		candidate := s.newStudent("300000004")
		candidate.Stream = "2"
		updated, err := s.service.UpdateStudent(s.ctx, created.ID, candidate, "Sara Levi", "")
		s.Require().NoError(err)

		s.True(updated.CreatedAt.Equal(createdAt))
		s.True(updated.UpdatedAt.Equal(s.now))
	})

	s.Run("returns ErrStudentNotFound for an unknown id", func() {
		_, err := s.service.UpdateStudent(s.ctx, 9999, s.newStudent("300000005"), "Sara Levi", "")
		s.Require().ErrorIs(err, apperrors.ErrStudentNotFound)
	})

	s.Run("rejects taking another student's ID number", func() {
		s.mustCreate(s.newStudent("300000006"))
		other := s.mustCreate(s.newStudent("300000007"))

		candidate := s.newStudent("300000006")
		_, err := s.service.UpdateStudent(s.ctx, other.ID, candidate, "Sara Levi", "")
		s.Require().ErrorIs(err, apperrors.ErrDuplicateIDNumber)
	})
}

// TestDeleteStudent verifies that deletion takes the entire trail with it.
func (s *StudentServiceSuite) TestDeleteStudent() {
	s.Run("removes the record and its entire trail", func() {
		created := s.mustCreate(s.newStudent("400000001"))

		err := s.service.DeleteStudent(s.ctx, created.ID, "Sara Levi", "")
		s.Require().NoError(err)

		_, err = s.service.GetStudentByID(s.ctx, created.ID)
		s.Require().ErrorIs(err, apperrors.ErrStudentNotFound)

		_, err = s.service.GetStudentHistory(s.ctx, created.ID)
		s.Require().ErrorIs(err, apperrors.ErrStudentNotFound)

		events, err := s.store.ListByStudent(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Empty(events)
	})

	s.Run("returns ErrStudentNotFound for an unknown id", func() {
		err := s.service.DeleteStudent(s.ctx, 9999, "Sara Levi", "")
		s.Require().ErrorIs(err, apperrors.ErrStudentNotFound)
	})
}

// TestGetStudentByIDNumber verifies the natural-key lookup.
func (s *StudentServiceSuite) TestGetStudentByIDNumber() {
	s.Run("finds the record behind the national ID number", func() {
		created := s.mustCreate(s.newStudent("450000001"))

		student, err := s.service.GetStudentByIDNumber(s.ctx, " 450000001 ")
		s.Require().NoError(err)
		s.Equal(created.ID, student.ID)
	})

	s.Run("returns ErrStudentNotFound for an unknown number", func() {
		_, err := s.service.GetStudentByIDNumber(s.ctx, "450009999")
		s.Require().ErrorIs(err, apperrors.ErrStudentNotFound)
	})

	s.Run("rejects a malformed number before touching the store", func() {
		_, err := s.service.GetStudentByIDNumber(s.ctx, "45-00-001")
		s.Require().ErrorIs(err, apperrors.ErrInvalidIDNumber)
	})
}

// TestRecordLocationChange verifies the trail-only location note.
func (s *StudentServiceSuite) TestRecordLocationChange() {
	s.Run("appends an event without touching the record", func() {
		created := s.mustCreate(s.newStudent("500000001"))
		createdAt := created.UpdatedAt

		s.now = s.now.Add(time.Hour)
		event, err := s.service.RecordLocationChange(s.ctx, created.ID, "library", "Sara Levi")
		s.Require().NoError(err)
		s.Equal(models.ChangeTypeLocationChange, event.ChangeType)
		s.Equal("Location updated to 'library'", event.ChangeDescription)

		student, err := s.service.GetStudentByID(s.ctx, created.ID)
		s.Require().NoError(err)
		s.True(student.UpdatedAt.Equal(createdAt))

		events, err := s.service.GetStudentHistory(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 3)
		s.Equal(models.ChangeTypeLocationChange, events[0].ChangeType)
		s.Require().NotNil(events[0].Location)
		s.Equal("library", *events[0].Location)
	})

	s.Run("rejects a blank location", func() {
		created := s.mustCreate(s.newStudent("500000002"))
		_, err := s.service.RecordLocationChange(s.ctx, created.ID, "  ", "Sara Levi")
		s.Require().ErrorIs(err, apperrors.ErrValidationFailed)
	})

	s.Run("returns ErrStudentNotFound for an unknown id", func() {
		_, err := s.service.RecordLocationChange(s.ctx, 9999, "library", "Sara Levi")
		s.Require().ErrorIs(err, apperrors.ErrStudentNotFound)
	})
}

// TestHistoryOrdering verifies newest-first ordering with a stable tiebreak
// for events written in the same instant.
func (s *StudentServiceSuite) TestHistoryOrdering() {
	created := s.mustCreate(s.newStudent("600000001"))

	s.now = s.now.Add(time.Hour)
	candidate := s.newStudent("600000001")
	candidate.Track = "Chemistry"
	_, err := s.service.UpdateStudent(s.ctx, created.ID, candidate, "Sara Levi", "")
	s.Require().NoError(err)

	events, err := s.service.GetStudentHistory(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(models.ChangeTypeFieldUpdate, events[0].ChangeType)
	s.Equal(models.ChangeTypeStartStudies, events[1].ChangeType)
	s.Equal(models.ChangeTypeCreated, events[2].ChangeType)
}

// TestNotifier verifies that committed events reach the live feed.
func (s *StudentServiceSuite) TestNotifier() {
	recorder := &eventRecorder{}
	service := NewStudentService(s.store, s.store, recorder, func() time.Time { return s.now })

	created, err := service.CreateStudent(s.ctx, s.newStudent("700000001"), "Sara Levi", "")
	s.Require().NoError(err)
	s.Len(recorder.events, 2)

	candidate := s.newStudent("700000001")
	candidate.Stream = "3"
	_, err = service.UpdateStudent(s.ctx, created.ID, candidate, "Sara Levi", "")
	s.Require().NoError(err)
	s.Len(recorder.events, 3)

	s.Require().NoError(service.DeleteStudent(s.ctx, created.ID, "Sara Levi", ""))
	s.Require().Len(recorder.events, 4)
	s.Equal(models.ChangeTypeDeleted, recorder.events[3].ChangeType)
}

// TestGetStats verifies the dashboard aggregation and its grade ordering.
func (s *StudentServiceSuite) TestGetStats() {
	first := s.newStudent("800000001")
	first.Grade = models.GradePtr("ז")
	first.Cycle = "2024"
	s.mustCreate(first)

	second := s.newStudent("800000002")
	second.Grade = models.GradePtr("יב")
	second.Cycle = "2019"
	s.mustCreate(second)

	third := s.newStudent("800000003")
	third.Grade = models.GradePtr("13")
	third.Cycle = "2024"
	s.mustCreate(third)

	fourth := s.newStudent("800000004")
	fourth.Status = models.StatusCompleted
	fourth.Cycle = "2010"
	fourth.Grade = nil
	s.mustCreate(fourth)

	stats, err := s.service.GetStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(2024, stats.AcademicYear)
	s.Equal(int64(4), stats.Total)

	s.Require().Len(stats.ByGrade, 3)
	s.Equal("ז", stats.ByGrade[0].Grade)
	s.Equal("יב", stats.ByGrade[1].Grade)
	s.Equal("13", stats.ByGrade[2].Grade)

	byStatus := make(map[string]int64)
	for _, bucket := range stats.ByStatus {
		byStatus[bucket.Status] = bucket.Count
	}
	s.Equal(int64(3), byStatus["studying"])
	s.Equal(int64(1), byStatus["completed"])
}
