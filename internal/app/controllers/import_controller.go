package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/machzor/internal/app/models/dto"
	"github.com/yigit/machzor/internal/app/services"
	"github.com/yigit/machzor/internal/middleware"
	"github.com/yigit/machzor/internal/pkg/filestorage"
	"github.com/yigit/machzor/internal/pkg/helpers"
	"github.com/yigit/machzor/internal/pkg/roster"
)

// ImportController handles roster reconciliation and the import audit trail
type ImportController struct {
	importService *services.ImportService
	fileStorage   filestorage.FileStorage
}

// NewImportController creates a new ImportController
func NewImportController(importService *services.ImportService, fileStorage filestorage.FileStorage) *ImportController {
	return &ImportController{
		importService: importService,
		fileStorage:   fileStorage,
	}
}

// ReconcileRows handles reconciling pre-parsed roster rows
// @Summary Reconcile roster rows
// @Description Runs the reconciliation engine over the supplied roster rows: creates missing students, updates changed ones and skips the rest
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param rows body dto.ImportRowsRequest true "Roster rows to reconcile"
// @Success 200 {object} dto.APIResponse{data=dto.ImportResultResponse} "Reconciliation finished"
// @Failure 400 {object} dto.ErrorResponse "Invalid roster data"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Forbidden: insufficient permissions"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /import/rows [post]
func (c *ImportController) ReconcileRows(ctx *gin.Context) {
	var req dto.ImportRowsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid roster data")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	sourceLabel := req.SourceLabel
	if sourceLabel == "" {
		sourceLabel = "manual"
	}

	result, err := c.importService.Reconcile(ctx, req.Rows, actorName(ctx), sourceLabel)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.NewImportResultResponse(result),
		Timestamp: time.Now(),
	})
}

// UploadRoster handles reconciling an uploaded roster file
// @Summary Upload and reconcile a roster file
// @Description Parses an uploaded CSV roster export, archives the file and runs the reconciliation engine over its rows
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Roster file (CSV)"
// @Param sourceLabel formData string false "Description of the roster source"
// @Success 200 {object} dto.APIResponse{data=dto.ImportResultResponse} "Reconciliation finished"
// @Failure 400 {object} dto.ErrorResponse "Missing, empty or unsupported roster file"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 403 {object} dto.ErrorResponse "Forbidden: insufficient permissions"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /import/upload [post]
func (c *ImportController) UploadRoster(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid or missing file")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	src, err := file.Open()
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Uploaded file could not be read")
		errorDetail = errorDetail.WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}
	defer src.Close()

	rows, err := roster.Parse(file.Filename, src)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	// Archive the original file so the run can be re-examined later.
	filePath, err := c.fileStorage.SaveFileWithPath(file, "rosters")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	sourceLabel := ctx.PostForm("sourceLabel")
	if sourceLabel == "" {
		sourceLabel = file.Filename
	}

	result, err := c.importService.ReconcileUpload(ctx, rows, actorName(ctx), sourceLabel, file.Filename, filePath)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      dto.NewImportResultResponse(result),
		Timestamp: time.Now(),
	})
}

// ListImportRuns handles listing past reconciliation runs
// @Summary List import runs
// @Description Retrieves past reconciliation runs, newest first
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size (default: 20, max: 100)" default(20) minimum(1) maximum(100)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.ImportRun}} "Import runs retrieved successfully"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /import/runs [get]
func (c *ImportController) ListImportRuns(ctx *gin.Context) {
	pageReq := helpers.PageFromQuery(ctx)

	runs, total, err := c.importService.ListRuns(ctx, pageReq.Offset(), uint64(pageReq.Limit()))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	response := dto.PaginatedResponse{
		Items:      runs,
		Pagination: pageReq.Info(total),
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      response,
		Timestamp: time.Now(),
	})
}

// GetImportRun handles retrieving a single reconciliation run
// @Summary Get import run by ID
// @Description Retrieves a specific reconciliation run with its counts and row errors
// @Tags import
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Import run ID"
// @Success 200 {object} dto.APIResponse{data=models.ImportRun} "Import run retrieved successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid import run ID format"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized: JWT token missing or invalid"
// @Failure 404 {object} dto.ErrorResponse "Import run not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /import/runs/{id} [get]
func (c *ImportController) GetImportRun(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Import run ID must be a valid number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	run, err := c.importService.GetRun(ctx, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data:      run,
		Timestamp: time.Now(),
	})
}
