package dto

import "github.com/yigit/machzor/internal/app/models"

// CreateStudentRequest carries the fields of a new student record.
type CreateStudentRequest struct {
	IDNumber  string `json:"idNumber" binding:"required" example:"123456789"`
	LastName  string `json:"lastName" binding:"required" example:"כהן"`
	FirstName string `json:"firstName" binding:"required" example:"דוד"`
	Grade     string `json:"grade" example:"י"`
	Stream    string `json:"stream" binding:"required" example:"1"`
	Gender    string `json:"gender" binding:"required" example:"male"`
	Track     string `json:"track" binding:"required" example:"Physics"`
	Status    string `json:"status" binding:"required" example:"studying"`
	Cycle     string `json:"cycle" binding:"required" example:"2024"`
	Location  string `json:"location,omitempty" example:"front office"`
}

// UpdateStudentRequest carries the full replacement state for a student. The
// update is a whole-record write; unchanged fields must be sent as-is.
type UpdateStudentRequest struct {
	IDNumber  string `json:"idNumber" binding:"required" example:"123456789"`
	LastName  string `json:"lastName" binding:"required" example:"כהן"`
	FirstName string `json:"firstName" binding:"required" example:"דוד"`
	Grade     string `json:"grade" example:"י"`
	Stream    string `json:"stream" binding:"required" example:"1"`
	Gender    string `json:"gender" binding:"required" example:"male"`
	Track     string `json:"track" binding:"required" example:"Biology"`
	Status    string `json:"status" binding:"required" example:"studying"`
	Cycle     string `json:"cycle" binding:"required" example:"2024"`
	Location  string `json:"location,omitempty" example:"front office"`
}

// LocationChangeRequest records where a student-related change was made
// without altering the record itself.
type LocationChangeRequest struct {
	Location string `json:"location" binding:"required" example:"library"`
}

// StudentFilter collects the query parameters of the student list endpoint.
type StudentFilter struct {
	Status string `form:"status" example:"studying"`
	Grade  string `form:"grade" example:"י"`
	Cycle  string `form:"cycle" example:"2024"`
	Stream string `form:"stream" example:"1"`
	Track  string `form:"track" example:"Physics"`
	Query  string `form:"q" example:"כהן"` // matches name or ID number
}

// StudentStatsResponse summarizes the population for the dashboard.
type StudentStatsResponse struct {
	AcademicYear int                  `json:"academicYear" example:"2024"`
	Total        int64                `json:"total" example:"712"`
	ByGrade      []models.GradeCount  `json:"byGrade"`
	ByStatus     []models.StatusCount `json:"byStatus"`
}
