package models

import "fmt"

// RosterRow is one raw row from an external roster source, as handed to the
// reconciliation engine. All fields arrive as strings; normalization happens
// inside the engine.
type RosterRow struct {
	IDNumber  string `json:"idNumber" example:"123456789"`
	LastName  string `json:"lastName" example:"כהן"`
	FirstName string `json:"firstName" example:"דוד"`
	Grade     string `json:"grade" example:"י׳"`
	Stream    string `json:"stream" example:"1"`
	Gender    string `json:"gender" example:"זכר"`
	Track     string `json:"track" example:"Physics"`
}

// RowError captures a failure while reconciling a single roster row. It
// carries enough context to locate the offending row without aborting the
// batch.
type RowError struct {
	Row      int    // 1-based position in the source sequence
	IDNumber string // natural key of the row, when available
	Err      error  // underlying cause
}

// Error implements the error interface.
func (e *RowError) Error() string {
	if e.IDNumber == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.IDNumber, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is matching.
func (e *RowError) Unwrap() error {
	return e.Err
}

// ReconciliationResult summarizes one reconciliation batch. For every
// processed row exactly one of created/updated/skipped/error applies, so
// Created + Updated + Skipped + len(Errors) == Processed always holds.
type ReconciliationResult struct {
	Processed int         `json:"processed"` // rows that passed the completeness filter
	Created   int         `json:"created"`   // rows that produced a new student
	Updated   int         `json:"updated"`   // rows that changed an existing student
	Skipped   int         `json:"skipped"`   // rows identical to the stored state
	Errors    []*RowError `json:"-"`         // per-row failures; rendered as strings at the API boundary
}

// ErrorStrings renders the row errors for the API-visible result shape.
func (r *ReconciliationResult) ErrorStrings() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Error())
	}
	return out
}
