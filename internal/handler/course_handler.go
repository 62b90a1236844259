package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/duetable-api/internal/middleware"
	"github.com/noah-isme/duetable-api/internal/models"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
	"github.com/noah-isme/duetable-api/pkg/response"
)

type courseService interface {
	Courses(ctx context.Context, refresh bool) ([]models.Course, bool, error)
	TermCourses(ctx context.Context) ([]models.Course, error)
	Semesters(ctx context.Context) (models.SemesterOptions, error)
}

// CourseHandler serves the course list and the semester picker.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(service courseService) *CourseHandler {
	return &CourseHandler{service: service}
}

// Courses godoc
// @Summary List courses
// @Description Every course by default; only the selected semester's with term=selected
// @Tags Courses
// @Security BearerAuth
// @Produce json
// @Param term query string false "selected to filter by the session semester"
// @Param refresh query bool false "Bypass the cache"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) Courses(c *gin.Context) {
	refresh, err := optionalBool(c.Query("refresh"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "refresh must be a boolean"))
		return
	}
	courses, hit, err := h.service.Courses(c.Request.Context(), refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	if c.Query("term") == "selected" {
		if courses, err = h.service.TermCourses(c.Request.Context()); err != nil {
			response.Error(c, err)
			return
		}
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, courses, nil, middleware.ExtractMeta(c))
}

// Semesters godoc
// @Summary Semester options
// @Tags Courses
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /semesters [get]
func (h *CourseHandler) Semesters(c *gin.Context) {
	options, err := h.service.Semesters(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

func optionalBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
