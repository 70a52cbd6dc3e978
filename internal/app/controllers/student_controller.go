package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/machzor/internal/app/models"
	"github.com/yigit/machzor/internal/app/models/dto"
	"github.com/yigit/machzor/internal/app/services"
	"github.com/yigit/machzor/internal/middleware"
	"github.com/yigit/machzor/internal/pkg/helpers"
)

// StudentController handles student records and their change history
type StudentController struct {
	studentService *services.StudentService
}

// NewStudentController creates a new StudentController
func NewStudentController(studentService *services.StudentService) *StudentController {
	return &StudentController{
		studentService: studentService,
	}
}

// actorName resolves the display name of the authenticated user for history
// attribution. The auth middleware stores the full name from the token claims;
// older tokens issued before the claim existed fall back to the email.
func actorName(ctx *gin.Context) string {
	if name := ctx.GetString("fullName"); name != "" {
		return name
	}
	return ctx.GetString("email")
}

// studentFromRequest maps the request fields onto the model. Normalization and
// validation happen in the service layer.
func studentFromRequest(idNumber, lastName, firstName, grade, stream, gender, track, status, cycle string) *models.Student {
	return &models.Student{
		IDNumber:  idNumber,
		LastName:  lastName,
		FirstName: firstName,
		Grade:     models.GradePtr(grade),
		Stream:    stream,
		Gender:    gender,
		Track:     track,
		Status:    models.StudentStatus(status),
		Cycle:     cycle,
	}
}

// CreateStudent handles the creation of a new student record
// @Summary Create a new student
// @Description Creates a student record and opens its history with creation and start-of-studies events
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param student body dto.CreateStudentRequest true "Student information"
// @Success 201 {object} dto.APIResponse{data=models.Student} "Student created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid student data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Forbidden: insufficient permissions"
// @Failure 409 {object} dto.ErrorResponse "A student with this ID number already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students [post]
func (c *StudentController) CreateStudent(ctx *gin.Context) {
	var req dto.CreateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid student data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	student := studentFromRequest(req.IDNumber, req.LastName, req.FirstName, req.Grade,
		req.Stream, req.Gender, req.Track, req.Status, req.Cycle)

	created, err := c.studentService.CreateStudent(ctx, student, actorName(ctx), req.Location)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data:      created,
		Timestamp: time.Now(),
	})
}

// GetStudentByID handles retrieving a single student record
// @Summary Get student by ID
// @Description Retrieves a specific student record by its ID
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid student ID format"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students/{id} [get]
func (c *StudentController) GetStudentByID(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Student ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	student, err := c.studentService.GetStudentByID(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      student,
		Timestamp: time.Now(),
	})
}

// GetStudentByIDNumber handles looking a student up by national ID number
// @Summary Get student by ID number
// @Description Retrieves a student by the 9-digit national ID number, the natural key rosters are matched on
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param idNumber path string true "National ID number (9 digits)"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid ID number format"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students/by-number/{idNumber} [get]
func (c *StudentController) GetStudentByIDNumber(ctx *gin.Context) {
	student, err := c.studentService.GetStudentByIDNumber(ctx, ctx.Param("idNumber"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      student,
		Timestamp: time.Now(),
	})
}

// ListStudents handles listing students with filtering and pagination
// @Summary List students
// @Description Retrieves students filtered by status, grade, cycle, stream, track or a free-text name/ID search
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by lifecycle status" Enums(studying, completed, discontinued)
// @Param grade query string false "Filter by grade"
// @Param cycle query string false "Filter by cycle year"
// @Param stream query string false "Filter by class stream"
// @Param track query string false "Filter by study track"
// @Param q query string false "Search by name or ID number"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size (default: 20, max: 100)" default(20) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Student}} "Students retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request parameters"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students [get]
func (c *StudentController) ListStudents(ctx *gin.Context) {
	var filter dto.StudentFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid filter parameters")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	pageReq := helpers.PageFromQuery(ctx)

	students, total, err := c.studentService.ListStudents(ctx, models.StudentFilter{
		Status: filter.Status,
		Grade:  filter.Grade,
		Cycle:  filter.Cycle,
		Stream: filter.Stream,
		Track:  filter.Track,
		Query:  filter.Query,
	}, pageReq.Offset(), uint64(pageReq.Limit()))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	response := dto.PaginatedResponse{
		Items:      students,
		Pagination: pageReq.Info(total),
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      response,
		Timestamp: time.Now(),
	})
}

// UpdateStudent handles updating an existing student record
// @Summary Update student
// @Description Replaces a student record and appends a history event for every changed field. Sending the record back unchanged is a no-op.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param student body dto.UpdateStudentRequest true "Updated student information"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student updated successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid student data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Forbidden: insufficient permissions"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 409 {object} dto.ErrorResponse "A student with this ID number already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students/{id} [put]
func (c *StudentController) UpdateStudent(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Student ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	var req dto.UpdateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid student data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	candidate := studentFromRequest(req.IDNumber, req.LastName, req.FirstName, req.Grade,
		req.Stream, req.Gender, req.Track, req.Status, req.Cycle)

	updated, err := c.studentService.UpdateStudent(ctx, id, candidate, actorName(ctx), req.Location)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      updated,
		Timestamp: time.Now(),
	})
}

// DeleteStudent handles deleting a student record
// @Summary Delete student
// @Description Deletes a student record together with its entire change history
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 204 "Student deleted successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid student ID format"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Forbidden: insufficient permissions"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students/{id} [delete]
func (c *StudentController) DeleteStudent(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Student ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	if err := c.studentService.DeleteStudent(ctx, id, actorName(ctx), ""); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// GetStudentHistory handles retrieving the change history of a student
// @Summary Get student history
// @Description Retrieves the full change history of a student, newest first
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=[]models.HistoryEvent} "History retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid student ID format"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students/{id}/history [get]
func (c *StudentController) GetStudentHistory(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Student ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	events, err := c.studentService.GetStudentHistory(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      events,
		Timestamp: time.Now(),
	})
}

// RecordLocationChange handles noting where a student-related change happened
// @Summary Record location change
// @Description Appends a location-change event to the student's history without modifying the record
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param location body dto.LocationChangeRequest true "New location"
// @Success 201 {object} dto.APIResponse{data=models.HistoryEvent} "Location change recorded successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid location data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Forbidden: insufficient permissions"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students/{id}/location [post]
func (c *StudentController) RecordLocationChange(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Student ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	var req dto.LocationChangeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid location data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	event, err := c.studentService.RecordLocationChange(ctx, id, req.Location, actorName(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data:      event,
		Timestamp: time.Now(),
	})
}

// GetStats handles retrieving dashboard statistics
// @Summary Get student statistics
// @Description Retrieves the current academic year together with student counts per grade and per status
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.StudentStatsResponse} "Statistics retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /students/stats [get]
func (c *StudentController) GetStats(ctx *gin.Context) {
	stats, err := c.studentService.GetStats(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      stats,
		Timestamp: time.Now(),
	})
}
