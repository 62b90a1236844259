package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/duetable-api/internal/dto"
	"github.com/noah-isme/duetable-api/internal/middleware"
	"github.com/noah-isme/duetable-api/internal/models"
	"github.com/noah-isme/duetable-api/internal/service"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
	"github.com/noah-isme/duetable-api/pkg/response"
)

type assignmentService interface {
	Sync(ctx context.Context, opts service.SyncOptions) (models.SyncStatus, error)
	Status() models.SyncStatus
	Dashboard(ctx context.Context) (models.Dashboard, error)
	Table(ctx context.Context, query models.ViewQuery) (models.View, models.ViewQuery, error)
	Filtered(ctx context.Context, query models.ViewQuery) ([]models.CombinedAssignment, []models.Course, error)
}

type finishedToggler interface {
	Toggle(ctx context.Context, assignmentID string) (*service.PendingToggle, error)
}

type exportRenderer interface {
	Render(format, term string, list []models.CombinedAssignment, courses []models.Course) (*service.ExportFile, error)
}

// AssignmentHandler serves the sync, dashboard, table and export endpoints.
type AssignmentHandler struct {
	assignments assignmentService
	finished    finishedToggler
	exports     exportRenderer
	session     interface{ Current() models.Session }
	validate    *validator.Validate
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(assignments assignmentService, finished finishedToggler, exports exportRenderer, session interface{ Current() models.Session }, validate *validator.Validate) *AssignmentHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentHandler{assignments: assignments, finished: finished, exports: exports, session: session, validate: validate}
}

// Sync godoc
// @Summary Sync assignments for the selected semester
// @Description Summaries are loaded before the response; details follow in the background unless wait=true
// @Tags Assignments
// @Security BearerAuth
// @Produce json
// @Param force query bool false "Refetch even if the semester is loaded"
// @Param wait query bool false "Block until details are loaded"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /assignments/sync [post]
func (h *AssignmentHandler) Sync(c *gin.Context) {
	var req dto.SyncRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sync options"))
		return
	}
	status, err := h.assignments.Sync(c.Request.Context(), service.SyncOptions{Force: req.Force, Wait: req.Wait})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "generation", status.Generation)
	if status.DetailsLoading {
		response.Accepted(c, status, middleware.ExtractMeta(c))
		return
	}
	response.JSON(c, http.StatusOK, status, nil, middleware.ExtractMeta(c))
}

// Status godoc
// @Summary Sync progress
// @Tags Assignments
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments/status [get]
func (h *AssignmentHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.assignments.Status(), nil)
}

// Dashboard godoc
// @Summary Dashboard counters for the selected semester
// @Tags Assignments
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *AssignmentHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.assignments.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil, middleware.ExtractMeta(c))
}

// Table godoc
// @Summary Due table page
// @Description Omitted parameters keep their previous value and an empty one clears it; changing a filter returns to page 1
// @Tags Assignments
// @Security BearerAuth
// @Produce json
// @Param search query string false "Name or course code"
// @Param courseId query string false "Course ID"
// @Param dueBucket query string false "overdue, today, week, month or no-date"
// @Param sortBy query string false "name, dueDate, points, course or grade"
// @Param order query string false "asc or desc"
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) Table(c *gin.Context) {
	query, ok := h.bindViewQuery(c)
	if !ok {
		return
	}
	view, effective, err := h.assignments.Table(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TableResponse{Items: view.Items, Query: effective}, &models.Pagination{
		Page:       view.Page,
		PageSize:   view.PageSize,
		TotalCount: view.TotalCount,
		TotalPages: view.TotalPages,
	}, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export the filtered due table
// @Tags Assignments
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /assignments/export [get]
func (h *AssignmentHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	query.Format = strings.ToLower(query.Format)
	if err := h.validate.Struct(query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	list, courses, err := h.assignments.Filtered(c.Request.Context(), query.ViewQuery)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Render(query.Format, h.session.Current().SelectedSemester, list, courses)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}

// ToggleFinished godoc
// @Summary Toggle the finished flag
// @Description The flag flips immediately; the upstream write runs in the background and is rolled back if rejected
// @Tags Assignments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Assignment ID"
// @Param wait query bool false "Block until the upstream write settles"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /assignments/{id}/finished [post]
func (h *AssignmentHandler) ToggleFinished(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "assignment id is required"))
		return
	}
	wait, err := optionalBool(c.Query("wait"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "wait must be a boolean"))
		return
	}

	pending, err := h.finished.Toggle(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload := dto.ToggleFinishedResponse{
		AssignmentID: pending.AssignmentID,
		IfFinished:   pending.IfFinished,
		JobID:        pending.JobID,
	}
	if !wait {
		response.Accepted(c, payload)
		return
	}
	if err := pending.Wait(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	payload.Confirmed = true
	response.JSON(c, http.StatusOK, payload, nil)
}

func (h *AssignmentHandler) bindViewQuery(c *gin.Context) (models.ViewQuery, bool) {
	var query models.ViewQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid table query"))
		return query, false
	}
	if err := h.validate.Struct(query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid table query"))
		return query, false
	}
	values := c.Request.URL.Query()
	query.Sent = models.FilterFields{
		Search:    values.Has("search"),
		CourseID:  values.Has("courseId"),
		DueBucket: values.Has("dueBucket"),
	}
	return query, true
}
