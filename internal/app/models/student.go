package models

import (
	"strconv"
	"strings"
	"time"
)

// StudentStatus enumerates the lifecycle states of an enrollment.
type StudentStatus string

const (
	StatusStudying     StudentStatus = "studying"
	StatusCompleted    StudentStatus = "completed"
	StatusDiscontinued StudentStatus = "discontinued"
)

// IsValid reports whether s is one of the recognized statuses.
func (s StudentStatus) IsValid() bool {
	switch s {
	case StatusStudying, StatusCompleted, StatusDiscontinued:
		return true
	}
	return false
}

// Student defines the student model based on the 'students' table
type Student struct {
	ID        int64         `json:"id" db:"id" example:"1"`                                   // Surrogate identifier, assigned at creation
	IDNumber  string        `json:"idNumber" db:"id_number" example:"123456789"`              // National ID number, the natural key across imports
	LastName  string        `json:"lastName" db:"last_name" example:"כהן"`                    // Surname
	FirstName string        `json:"firstName" db:"first_name" example:"דוד"`                  // Given name
	Grade     *string       `json:"grade,omitempty" db:"grade" example:"י"`                   // Grade ordinal; absent for ended or future cycles
	Stream    string        `json:"stream" db:"stream" example:"1"`                           // Class stream within the grade
	Gender    string        `json:"gender" db:"gender" example:"male"`                        // One of male/female
	Track     string        `json:"track" db:"track" example:"Physics"`                       // Study track / major
	Status    StudentStatus `json:"status" db:"status" example:"studying"`                    // Lifecycle status
	Cycle     string        `json:"cycle" db:"cycle" example:"2024"`                          // Academic year the student entered the entry grade
	CreatedAt time.Time     `json:"createdAt" db:"created_at" example:"2024-09-01T08:00:00Z"` // Timestamp when the record was created
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at" example:"2024-10-15T09:30:00Z"` // Timestamp of the last update
}

// FullName returns the display name used in history descriptions.
func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// GradeValue returns the grade label, or the empty string when the grade is
// absent. Diffing and display both treat absence as the empty string.
func (s *Student) GradeValue() string {
	if s.Grade == nil {
		return ""
	}
	return *s.Grade
}

// CycleYear parses the 4-digit cycle into an int for calendar arithmetic.
func (s *Student) CycleYear() (int, bool) {
	year, err := strconv.Atoi(s.Cycle)
	if err != nil {
		return 0, false
	}
	return year, true
}

// GradePtr converts a grade label into the stored pointer form: blank input
// becomes absent (nil) rather than empty text.
func GradePtr(label string) *string {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// StudentFilter narrows student list queries. Zero-valued fields are not
// applied; Query matches names and the ID number.
type StudentFilter struct {
	Status string
	Grade  string
	Cycle  string
	Stream string
	Track  string
	Query  string
}

// GradeCount is one aggregation bucket of students per grade.
type GradeCount struct {
	Grade string `json:"grade" example:"י"`
	Count int64  `json:"count" example:"112"`
}

// StatusCount is one aggregation bucket of students per status.
type StatusCount struct {
	Status string `json:"status" example:"studying"`
	Count  int64  `json:"count" example:"651"`
}
