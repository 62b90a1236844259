package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/duetable-api/internal/dto"
	"github.com/noah-isme/duetable-api/internal/models"
	"github.com/noah-isme/duetable-api/internal/service"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
	"github.com/noah-isme/duetable-api/pkg/response"
)

type sessionService interface {
	Current() models.Session
	Login(ctx context.Context, req models.CreateUserRequest) (*service.LoginResult, error)
	Logout(ctx context.Context) error
	SetTerm(ctx context.Context, term string) (models.Session, error)
}

// SessionHandler exposes sign in, sign out and term selection.
type SessionHandler struct {
	service  sessionService
	validate *validator.Validate
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service sessionService, validate *validator.Validate) *SessionHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &SessionHandler{service: service, validate: validate}
}

// Login godoc
// @Summary Sign in
// @Description Looks the user up by email and registers them upstream on first use
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /session [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req.ToModel())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.LoginResponse{
		Session:   dto.NewSessionResponse(res.Session),
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	}, nil)
}

// Get godoc
// @Summary Current session
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(h.service.Current()), nil)
}

// Logout godoc
// @Summary Sign out
// @Tags Session
// @Security BearerAuth
// @Success 204
// @Router /session [delete]
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetTerm godoc
// @Summary Select semester
// @Tags Session
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.SetTermRequest true "Semester"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /session/term [put]
func (h *SessionHandler) SetTerm(c *gin.Context) {
	var req dto.SetTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid term payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term is required"))
		return
	}

	session, err := h.service.SetTerm(c.Request.Context(), req.Term)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewSessionResponse(session), nil)
}
