package models

import (
	"fmt"
	"time"
)

// ChangeType classifies a history event.
type ChangeType string

const (
	ChangeTypeCreated        ChangeType = "created"
	ChangeTypeStartStudies   ChangeType = "start_studies"
	ChangeTypeFieldUpdate    ChangeType = "field_update"
	ChangeTypeLocationChange ChangeType = "location_change"
	ChangeTypeDeleted        ChangeType = "deleted"
)

// HistoryEvent is one immutable fact about a student's timeline, based on the
// 'history_events' table. Events are append-only: nothing edits or removes
// them except the cascade that runs when the owning student row is deleted.
type HistoryEvent struct {
	ID                int64      `json:"id" db:"id" example:"1"`                                      // Event identifier
	StudentID         int64      `json:"studentId" db:"student_id" example:"1"`                       // Owning student
	ChangeType        ChangeType `json:"changeType" db:"change_type" example:"field_update"`          // Kind of change recorded
	FieldName         *string    `json:"fieldName,omitempty" db:"field_name" example:"Track"`         // Display label of the changed field (field_update only)
	OldValue          *string    `json:"oldValue,omitempty" db:"old_value" example:"Physics"`         // Previous value (field_update only)
	NewValue          *string    `json:"newValue,omitempty" db:"new_value" example:"Biology"`         // New value (field_update only)
	Location          *string    `json:"location,omitempty" db:"location" example:"front office"`     // Where the change was made, free text
	ChangedBy         *string    `json:"changedBy,omitempty" db:"changed_by" example:"Sara Levi"`     // Actor identifier, supplied by the caller
	ChangeDescription string     `json:"changeDescription" db:"change_description"`                   // Human-readable summary
	CreatedAt         time.Time  `json:"createdAt" db:"created_at" example:"2024-10-15T09:30:00Z"`    // Insertion time; backdated for synthesized start_studies rows
}

// optional converts a possibly-blank string into the stored pointer form.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewCreatedEvent records that a student record came into existence. The
// event is timestamped at the student's CreatedAt so the pairing invariant
// with start_studies holds.
func NewCreatedEvent(s *Student, actor, location string) *HistoryEvent {
	return &HistoryEvent{
		StudentID:         s.ID,
		ChangeType:        ChangeTypeCreated,
		Location:          optional(location),
		ChangedBy:         optional(actor),
		ChangeDescription: fmt.Sprintf("Student %s (%s) was created", s.FullName(), s.IDNumber),
		CreatedAt:         s.CreatedAt,
	}
}

// NewStartStudiesEvent is emitted alongside every created event. The pair is
// redundant on purpose: older records carry only start_studies, and the
// display layer relies on seeing both for records created since.
func NewStartStudiesEvent(s *Student, actor, location string) *HistoryEvent {
	return &HistoryEvent{
		StudentID:         s.ID,
		ChangeType:        ChangeTypeStartStudies,
		Location:          optional(location),
		ChangedBy:         optional(actor),
		ChangeDescription: fmt.Sprintf("Student %s (%s) started studies", s.FullName(), s.IDNumber),
		CreatedAt:         s.CreatedAt,
	}
}

// NewFieldUpdateEvent records a single tracked-field change.
func NewFieldUpdateEvent(studentID int64, change FieldChange, actor, location string, at time.Time) *HistoryEvent {
	label := change.Label
	oldValue := change.Old
	newValue := change.New
	return &HistoryEvent{
		StudentID:         studentID,
		ChangeType:        ChangeTypeFieldUpdate,
		FieldName:         &label,
		OldValue:          &oldValue,
		NewValue:          &newValue,
		Location:          optional(location),
		ChangedBy:         optional(actor),
		ChangeDescription: fmt.Sprintf("%s changed from '%s' to '%s'", change.Label, change.Old, change.New),
		CreatedAt:         at,
	}
}

// NewLocationChangeEvent records a location change without touching the
// student row.
func NewLocationChangeEvent(studentID int64, location, actor string, at time.Time) *HistoryEvent {
	return &HistoryEvent{
		StudentID:         studentID,
		ChangeType:        ChangeTypeLocationChange,
		Location:          optional(location),
		ChangedBy:         optional(actor),
		ChangeDescription: fmt.Sprintf("Location updated to '%s'", location),
		CreatedAt:         at,
	}
}

// NewDeletedEvent records the removal of a student, referencing the
// pre-deletion name and natural key.
func NewDeletedEvent(s *Student, actor, location string, at time.Time) *HistoryEvent {
	return &HistoryEvent{
		StudentID:         s.ID,
		ChangeType:        ChangeTypeDeleted,
		Location:          optional(location),
		ChangedBy:         optional(actor),
		ChangeDescription: fmt.Sprintf("Student %s (%s) was deleted", s.FullName(), s.IDNumber),
		CreatedAt:         at,
	}
}
