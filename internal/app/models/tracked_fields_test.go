package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleStudent() *Student {
	grade := "י"
	return &Student{
		ID:        1,
		IDNumber:  "123456789",
		LastName:  "כהן",
		FirstName: "דוד",
		Grade:     &grade,
		Stream:    "1",
		Gender:    "male",
		Track:     "Physics",
		Status:    StatusStudying,
		Cycle:     "2021",
	}
}

func TestDiffStudentsSingleField(t *testing.T) {
	current := sampleStudent()
	candidate := *current
	candidate.Track = "Biology"

	changes := DiffStudents(current, &candidate, TrackedFields)

	assert.Len(t, changes, 1)
	assert.Equal(t, "Track", changes[0].Label)
	assert.Equal(t, "Physics", changes[0].Old)
	assert.Equal(t, "Biology", changes[0].New)
}

func TestDiffStudentsNoChanges(t *testing.T) {
	current := sampleStudent()
	candidate := *current

	assert.Empty(t, DiffStudents(current, &candidate, TrackedFields))
}

func TestDiffStudentsGradeAbsence(t *testing.T) {
	current := sampleStudent()
	candidate := *current
	candidate.Grade = nil

	changes := DiffStudents(current, &candidate, TrackedFields)

	assert.Len(t, changes, 1)
	assert.Equal(t, "Grade", changes[0].Label)
	assert.Equal(t, "י", changes[0].Old)
	assert.Equal(t, "", changes[0].New)
}

func TestImportDiffFieldsExcludeStatusAndKey(t *testing.T) {
	current := sampleStudent()
	candidate := *current
	candidate.Status = StatusDiscontinued
	candidate.IDNumber = "987654321"

	assert.Empty(t, DiffStudents(current, &candidate, ImportDiffFields))
	assert.Len(t, DiffStudents(current, &candidate, TrackedFields), 2)
}

func TestGradePtr(t *testing.T) {
	assert.Nil(t, GradePtr(""))
	assert.Nil(t, GradePtr("   "))

	p := GradePtr(" ח ")
	assert.NotNil(t, p)
	assert.Equal(t, "ח", *p)
}

func TestRowErrorFormatting(t *testing.T) {
	cause := errors.New("boom")
	withKey := &RowError{Row: 2, IDNumber: "123456789", Err: cause}
	assert.Equal(t, "row 2 (123456789): boom", withKey.Error())
	assert.ErrorIs(t, withKey, cause)

	withoutKey := &RowError{Row: 5, Err: cause}
	assert.Equal(t, "row 5: boom", withoutKey.Error())
}

func TestFieldUpdateEventDescription(t *testing.T) {
	s := sampleStudent()
	change := FieldChange{Column: "track", Label: "Track", Old: "Physics", New: "Biology"}
	event := NewFieldUpdateEvent(s.ID, change, "Sara Levi", "", s.CreatedAt)

	assert.Equal(t, ChangeTypeFieldUpdate, event.ChangeType)
	assert.Equal(t, "Track changed from 'Physics' to 'Biology'", event.ChangeDescription)
	assert.Equal(t, "Track", *event.FieldName)
	assert.Equal(t, "Physics", *event.OldValue)
	assert.Equal(t, "Biology", *event.NewValue)
	assert.Equal(t, "Sara Levi", *event.ChangedBy)
	assert.Nil(t, event.Location)
}
