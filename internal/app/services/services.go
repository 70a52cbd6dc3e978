package services

import (
	"context"

	"github.com/yigit/machzor/internal/app/models"
)

// Services defined in this package:
// - StudentService: Handles the student lifecycle and its audit trail
// - ImportService: Reconciles external roster snapshots against the registry
// - AuthService: Handles authentication and staff account management

// StudentStore is the storage surface the student service depends on. The
// postgres repository and the in-memory store both satisfy it. The
// *WithEvents methods persist the row change and its history events as one
// atomic unit.
type StudentStore interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetByIDNumber(ctx context.Context, idNumber string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter, offset uint64, limit uint64) ([]*models.Student, int64, error)
	GradeCounts(ctx context.Context) ([]models.GradeCount, error)
	StatusCounts(ctx context.Context) ([]models.StatusCount, error)
	CreateWithEvents(ctx context.Context, student *models.Student, events []*models.HistoryEvent) error
	UpdateWithEvents(ctx context.Context, student *models.Student, events []*models.HistoryEvent) error
	DeleteWithEvents(ctx context.Context, id int64, event *models.HistoryEvent) error
}

// HistoryStore is the storage surface for the event trail.
type HistoryStore interface {
	Append(ctx context.Context, event *models.HistoryEvent) error
	ListByStudent(ctx context.Context, studentID int64) ([]*models.HistoryEvent, error)
}

// ImportRunStore persists reconciliation run outcomes.
type ImportRunStore interface {
	Create(ctx context.Context, run *models.ImportRun) error
	GetByID(ctx context.Context, id int64) (*models.ImportRun, error)
	List(ctx context.Context, offset uint64, limit uint64) ([]*models.ImportRun, int64, error)
}

// ActivityNotifier pushes committed history events to live listeners. A nil
// notifier disables the feed.
type ActivityNotifier interface {
	NotifyEvents(events ...*models.HistoryEvent)
}
