package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/yigit/machzor/internal/app/models"
	"github.com/yigit/machzor/internal/pkg/apperrors"
)

// InMemoryStudentStore is a map-backed implementation of the student and
// history storage interfaces. It mirrors the transactional behavior of the
// postgres repositories, including natural key uniqueness and the cascade
// that removes a student's trail together with the row, which makes it a
// faithful stand-in for service tests.
type InMemoryStudentStore struct {
	mu         sync.RWMutex
	studentSeq int64
	eventSeq   int64
	students   map[int64]*models.Student
	byIDNumber map[string]int64
	events     map[int64][]*models.HistoryEvent
}

// NewInMemoryStudentStore creates an empty in-memory store.
func NewInMemoryStudentStore() *InMemoryStudentStore {
	return &InMemoryStudentStore{
		students:   make(map[int64]*models.Student),
		byIDNumber: make(map[string]int64),
		events:     make(map[int64][]*models.HistoryEvent),
	}
}

func copyStudent(s *models.Student) *models.Student {
	clone := *s
	if s.Grade != nil {
		grade := *s.Grade
		clone.Grade = &grade
	}
	return &clone
}

func copyStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyEvent(e *models.HistoryEvent) *models.HistoryEvent {
	clone := *e
	clone.FieldName = copyStringPtr(e.FieldName)
	clone.OldValue = copyStringPtr(e.OldValue)
	clone.NewValue = copyStringPtr(e.NewValue)
	clone.Location = copyStringPtr(e.Location)
	clone.ChangedBy = copyStringPtr(e.ChangedBy)
	return &clone
}

func (s *InMemoryStudentStore) appendEventLocked(event *models.HistoryEvent) {
	s.eventSeq++
	event.ID = s.eventSeq
	s.events[event.StudentID] = append(s.events[event.StudentID], copyEvent(event))
}

// GetByID retrieves a student by primary key.
func (s *InMemoryStudentStore) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	student, ok := s.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return copyStudent(student), nil
}

// GetByIDNumber retrieves a student by the national ID number.
func (s *InMemoryStudentStore) GetByIDNumber(ctx context.Context, idNumber string) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byIDNumber[idNumber]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return copyStudent(s.students[id]), nil
}

func studentMatches(student *models.Student, filter models.StudentFilter) bool {
	if filter.Status != "" && string(student.Status) != filter.Status {
		return false
	}
	if filter.Grade != "" && student.GradeValue() != filter.Grade {
		return false
	}
	if filter.Cycle != "" && student.Cycle != filter.Cycle {
		return false
	}
	if filter.Stream != "" && student.Stream != filter.Stream {
		return false
	}
	if filter.Track != "" && student.Track != filter.Track {
		return false
	}
	if filter.Query != "" {
		q := strings.ToLower(filter.Query)
		if !strings.Contains(strings.ToLower(student.LastName), q) &&
			!strings.Contains(strings.ToLower(student.FirstName), q) &&
			!strings.Contains(student.IDNumber, filter.Query) {
			return false
		}
	}
	return true
}

// List retrieves students matching the filter ordered by name, with the
// total match count.
func (s *InMemoryStudentStore) List(ctx context.Context, filter models.StudentFilter, offset uint64, limit uint64) ([]*models.Student, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Student, 0)
	for _, student := range s.students {
		if studentMatches(student, filter) {
			matched = append(matched, student)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		if matched[i].FirstName != matched[j].FirstName {
			return matched[i].FirstName < matched[j].FirstName
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	if offset >= uint64(len(matched)) {
		return []*models.Student{}, total, nil
	}
	end := offset + limit
	if end > uint64(len(matched)) {
		end = uint64(len(matched))
	}

	page := make([]*models.Student, 0, end-offset)
	for _, student := range matched[offset:end] {
		page = append(page, copyStudent(student))
	}
	return page, total, nil
}

// GradeCounts aggregates studying students per grade label.
func (s *InMemoryStudentStore) GradeCounts(ctx context.Context) ([]models.GradeCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make(map[string]int64)
	for _, student := range s.students {
		if student.Status == models.StatusStudying && student.Grade != nil {
			buckets[*student.Grade]++
		}
	}

	counts := make([]models.GradeCount, 0, len(buckets))
	for grade, count := range buckets {
		counts = append(counts, models.GradeCount{Grade: grade, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Grade < counts[j].Grade })
	return counts, nil
}

// StatusCounts aggregates students per lifecycle status.
func (s *InMemoryStudentStore) StatusCounts(ctx context.Context) ([]models.StatusCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make(map[string]int64)
	for _, student := range s.students {
		buckets[string(student.Status)]++
	}

	counts := make([]models.StatusCount, 0, len(buckets))
	for status, count := range buckets {
		counts = append(counts, models.StatusCount{Status: status, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Status < counts[j].Status })
	return counts, nil
}

// CreateWithEvents inserts a student and its events as one atomic step.
func (s *InMemoryStudentStore) CreateWithEvents(ctx context.Context, student *models.Student, events []*models.HistoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIDNumber[student.IDNumber]; exists {
		return apperrors.ErrDuplicateIDNumber
	}

	s.studentSeq++
	student.ID = s.studentSeq
	s.students[student.ID] = copyStudent(student)
	s.byIDNumber[student.IDNumber] = student.ID

	for _, event := range events {
		event.StudentID = student.ID
		s.appendEventLocked(event)
	}
	return nil
}

// UpdateWithEvents replaces a student row and appends its events atomically.
func (s *InMemoryStudentStore) UpdateWithEvents(ctx context.Context, student *models.Student, events []*models.HistoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.students[student.ID]
	if !ok {
		return apperrors.ErrStudentNotFound
	}
	if owner, exists := s.byIDNumber[student.IDNumber]; exists && owner != student.ID {
		return apperrors.ErrDuplicateIDNumber
	}

	delete(s.byIDNumber, current.IDNumber)
	s.students[student.ID] = copyStudent(student)
	s.byIDNumber[student.IDNumber] = student.ID

	for _, event := range events {
		event.StudentID = student.ID
		s.appendEventLocked(event)
	}
	return nil
}

// DeleteWithEvents removes the student and, through the cascade, every event
// in its trail including the deletion event itself.
func (s *InMemoryStudentStore) DeleteWithEvents(ctx context.Context, id int64, event *models.HistoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, ok := s.students[id]
	if !ok {
		return apperrors.ErrStudentNotFound
	}

	event.StudentID = id
	s.appendEventLocked(event)

	delete(s.byIDNumber, student.IDNumber)
	delete(s.students, id)
	delete(s.events, id)
	return nil
}

// Append records a single event for an existing student.
func (s *InMemoryStudentStore) Append(ctx context.Context, event *models.HistoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.students[event.StudentID]; !ok {
		return apperrors.ErrStudentNotFound
	}
	s.appendEventLocked(event)
	return nil
}

// ListByStudent retrieves one student's events newest first.
func (s *InMemoryStudentStore) ListByStudent(ctx context.Context, studentID int64) ([]*models.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*models.HistoryEvent, 0, len(s.events[studentID]))
	for _, event := range s.events[studentID] {
		events = append(events, copyEvent(event))
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.After(events[j].CreatedAt)
		}
		return events[i].ID > events[j].ID
	})
	return events, nil
}

// InMemoryImportRunStore is a map-backed store for reconciliation runs.
type InMemoryImportRunStore struct {
	mu   sync.RWMutex
	seq  int64
	runs []*models.ImportRun
}

// NewInMemoryImportRunStore creates an empty in-memory run store.
func NewInMemoryImportRunStore() *InMemoryImportRunStore {
	return &InMemoryImportRunStore{}
}

func copyRun(run *models.ImportRun) *models.ImportRun {
	clone := *run
	clone.FileName = copyStringPtr(run.FileName)
	clone.FilePath = copyStringPtr(run.FilePath)
	clone.Errors = append([]string(nil), run.Errors...)
	return &clone
}

// Create persists a reconciliation run.
func (s *InMemoryImportRunStore) Create(ctx context.Context, run *models.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	run.ID = s.seq
	if run.Errors == nil {
		run.Errors = []string{}
	}
	s.runs = append(s.runs, copyRun(run))
	return nil
}

// GetByID retrieves a single reconciliation run.
func (s *InMemoryImportRunStore) GetByID(ctx context.Context, id int64) (*models.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, run := range s.runs {
		if run.ID == id {
			return copyRun(run), nil
		}
	}
	return nil, apperrors.ErrImportRunNotFound
}

// List retrieves reconciliation runs newest first.
func (s *InMemoryImportRunStore) List(ctx context.Context, offset uint64, limit uint64) ([]*models.ImportRun, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := make([]*models.ImportRun, 0, len(s.runs))
	for _, run := range s.runs {
		ordered = append(ordered, run)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].StartedAt.Equal(ordered[j].StartedAt) {
			return ordered[i].StartedAt.After(ordered[j].StartedAt)
		}
		return ordered[i].ID > ordered[j].ID
	})

	total := int64(len(ordered))
	if offset >= uint64(len(ordered)) {
		return []*models.ImportRun{}, total, nil
	}
	end := offset + limit
	if end > uint64(len(ordered)) {
		end = uint64(len(ordered))
	}

	page := make([]*models.ImportRun, 0, end-offset)
	for _, run := range ordered[offset:end] {
		page = append(page, copyRun(run))
	}
	return page, total, nil
}
