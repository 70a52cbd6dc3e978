package models

// TrackedField declares one student field whose changes are recorded in the
// history ledger. Adding a field to the tracked set is a one-line change
// here; the diff and event machinery pick it up generically.
type TrackedField struct {
	Column string                // storage column / API field name
	Label  string                // display label embedded in history entries
	Value  func(*Student) string // comparable string form of the field
}

// TrackedFields is the full diff set for direct record updates. The surrogate
// id and the server-assigned timestamps are never diffed.
var TrackedFields = []TrackedField{
	{Column: "id_number", Label: "ID number", Value: func(s *Student) string { return s.IDNumber }},
	{Column: "last_name", Label: "Last name", Value: func(s *Student) string { return s.LastName }},
	{Column: "first_name", Label: "First name", Value: func(s *Student) string { return s.FirstName }},
	{Column: "grade", Label: "Grade", Value: func(s *Student) string { return s.GradeValue() }},
	{Column: "stream", Label: "Stream", Value: func(s *Student) string { return s.Stream }},
	{Column: "gender", Label: "Gender", Value: func(s *Student) string { return s.Gender }},
	{Column: "track", Label: "Track", Value: func(s *Student) string { return s.Track }},
	{Column: "status", Label: "Status", Value: func(s *Student) string { return string(s.Status) }},
	{Column: "cycle", Label: "Cycle", Value: func(s *Student) string { return s.Cycle }},
}

// ImportDiffFields is the subset compared during roster reconciliation.
// Status is deliberately absent: an import never transitions a manually
// curated status. The ID number is the join key, so it cannot differ.
var ImportDiffFields = importDiffFields()

func importDiffFields() []TrackedField {
	fields := make([]TrackedField, 0, len(TrackedFields)-2)
	for _, f := range TrackedFields {
		if f.Column == "id_number" || f.Column == "status" {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// FieldChange is one entry of a computed diff.
type FieldChange struct {
	Column string
	Label  string
	Old    string
	New    string
}

// DiffStudents compares two student states over the given tracked set and
// returns one FieldChange per differing field, in tracked-set order.
func DiffStudents(current, candidate *Student, fields []TrackedField) []FieldChange {
	var changes []FieldChange
	for _, f := range fields {
		oldValue := f.Value(current)
		newValue := f.Value(candidate)
		if oldValue != newValue {
			changes = append(changes, FieldChange{
				Column: f.Column,
				Label:  f.Label,
				Old:    oldValue,
				New:    newValue,
			})
		}
	}
	return changes
}
