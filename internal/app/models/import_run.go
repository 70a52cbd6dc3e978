package models

import "time"

// ImportRun records one executed reconciliation batch for audit, based on the
// 'import_runs' table. The counts mirror the ReconciliationResult returned to
// the caller; Errors keeps the rendered row errors so a failed run can be
// diagnosed later.
type ImportRun struct {
	ID          int64     `json:"id" db:"id" example:"1"`                               // Run identifier
	SourceLabel string    `json:"sourceLabel" db:"source_label" example:"mashov export"` // Caller-supplied description of the roster source
	FileName    *string   `json:"fileName,omitempty" db:"file_name"`                    // Original name of the uploaded file, when the run came from an upload
	FilePath    *string   `json:"filePath,omitempty" db:"file_path"`                    // Archived copy of the uploaded file
	Actor       string    `json:"actor" db:"actor" example:"Sara Levi"`                 // Who triggered the run
	Processed   int       `json:"processed" db:"processed"`                             // Rows that passed the completeness filter
	Created     int       `json:"created" db:"created"`                                 // Newly created students
	Updated     int       `json:"updated" db:"updated"`                                 // Updated students
	Skipped     int       `json:"skipped" db:"skipped"`                                 // Unchanged rows
	Errors      []string  `json:"errors" db:"errors"`                                   // Rendered row errors, stored as jsonb
	StartedAt   time.Time `json:"startedAt" db:"started_at"`                            // When reconciliation began
	FinishedAt  time.Time `json:"finishedAt" db:"finished_at"`                          // When reconciliation finished
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`                            // Row insertion time
}
