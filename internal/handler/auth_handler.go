package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/papers-hub-api/internal/dto"
	"github.com/noah-isme/papers-hub-api/internal/middleware"
	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/internal/service"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
)

type authService interface {
	RequestOTP(ctx context.Context, sess models.Session, req dto.RequestOTPRequest) (models.Session, error)
	VerifyOTP(ctx context.Context, sess models.Session, req dto.VerifyOTPRequest, meta service.RequestMeta) (models.Session, error)
	TeacherLogin(ctx context.Context, sess models.Session, institution string, req dto.TeacherLoginRequest, meta service.RequestMeta) (models.Session, error)
	SelectInstitution(ctx context.Context, sess models.Session, institution string, meta service.RequestMeta) (models.Session, error)
	Logout(ctx context.Context, sess models.Session, meta service.RequestMeta) (models.Session, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service  authService
	sessions sessionWriter
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, sessions sessionWriter) *AuthHandler {
	return &AuthHandler{service: svc, sessions: sessions}
}

// RequestOTP godoc
// @Summary Request a student login code
// @Description Emails a one-time code and remembers the address in the session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.RequestOTPRequest true "Student email"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /auth/student/otp [post]
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req dto.RequestOTPRequest
	if err := c.ShouldBind(&req); err != nil {
		h.sessions.Fail(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid email payload"))
		return
	}
	next, err := h.service.RequestOTP(c.Request.Context(), middleware.Session(c), req)
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	respondAction(c, h.sessions, http.StatusOK, next, service.RedirectVerifyOTP, nil)
}

// VerifyOTP godoc
// @Summary Verify a student login code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.VerifyOTPRequest true "Code"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /auth/student/verify [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBind(&req); err != nil {
		h.sessions.Fail(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid otp payload"))
		return
	}
	next, err := h.service.VerifyOTP(c.Request.Context(), middleware.Session(c), req, requestMeta(c))
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	respondAction(c, h.sessions, http.StatusOK, next, service.RedirectInstitutionSelection, nil)
}

// TeacherLogin godoc
// @Summary Teacher login for one institution
// @Tags Authentication
// @Accept json
// @Produce json
// @Param institution path string true "Institution code"
// @Param payload body dto.TeacherLoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/teacher/{institution}/login [post]
func (h *AuthHandler) TeacherLogin(c *gin.Context) {
	var req dto.TeacherLoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.sessions.Fail(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	next, err := h.service.TeacherLogin(c.Request.Context(), middleware.Session(c), c.Param("institution"), req, requestMeta(c))
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	respondAction(c, h.sessions, http.StatusOK, next, fmt.Sprintf("/teacher/%s/dashboard", next.Department), nil)
}

// SelectInstitution godoc
// @Summary Select the student's college
// @Description Stores the institution in the session and clears previous subscriptions
// @Tags Students
// @Produce json
// @Param institution path string true "Institution code"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /student/institution/{institution} [post]
func (h *AuthHandler) SelectInstitution(c *gin.Context) {
	next, err := h.service.SelectInstitution(c.Request.Context(), middleware.Session(c), c.Param("institution"), requestMeta(c))
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	respondAction(c, h.sessions, http.StatusOK, next, service.RedirectDepartments, nil)
}

// Logout godoc
// @Summary Logout current session
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	next, err := h.service.Logout(c.Request.Context(), middleware.Session(c), requestMeta(c))
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	respondAction(c, h.sessions, http.StatusOK, next, service.RedirectRoleSelection, nil)
}
