package dto

import "github.com/yigit/machzor/internal/app/models"

// ImportRowsRequest submits an already-tabular roster for reconciliation.
type ImportRowsRequest struct {
	SourceLabel string            `json:"sourceLabel" example:"mashov export 2024-10"`
	Rows        []models.RosterRow `json:"rows" binding:"required"`
}

// ImportResultResponse is the API-visible reconciliation summary; row errors
// are rendered as strings.
type ImportResultResponse struct {
	Processed int      `json:"processed" example:"200"`
	Created   int      `json:"created" example:"12"`
	Updated   int      `json:"updated" example:"31"`
	Skipped   int      `json:"skipped" example:"156"`
	Errors    []string `json:"errors"`
}

// NewImportResultResponse maps an engine result onto the response shape.
func NewImportResultResponse(result *models.ReconciliationResult) ImportResultResponse {
	return ImportResultResponse{
		Processed: result.Processed,
		Created:   result.Created,
		Updated:   result.Updated,
		Skipped:   result.Skipped,
		Errors:    result.ErrorStrings(),
	}
}
