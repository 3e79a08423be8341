package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/papers-hub-api/internal/dto"
	"github.com/noah-isme/papers-hub-api/internal/middleware"
	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/pkg/response"
)

type subscriptionLister interface {
	ListForEmail(ctx context.Context, email string) ([]models.SubscriptionPreference, error)
}

// SessionHandler exposes the session snapshot and the static catalog.
type SessionHandler struct {
	subscriptions subscriptionLister
	sessions      sessionWriter
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(subscriptions subscriptionLister, sessions sessionWriter) *SessionHandler {
	return &SessionHandler{subscriptions: subscriptions, sessions: sessions}
}

// Current godoc
// @Summary Current session
// @Description Returns the session and consumes pending flash messages
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Current(c *gin.Context) {
	flashes, next := middleware.Session(c).PopFlashes()
	if len(flashes) > 0 {
		h.sessions.Save(c, next)
	}
	response.JSON(c, http.StatusOK, dto.NewSessionView(next, flashes), nil)
}

// Catalog godoc
// @Summary Lookup tables
// @Description Roles, institutions, departments, terms and document types
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog [get]
func (h *SessionHandler) Catalog(c *gin.Context) {
	response.JSON(c, http.StatusOK, models.DefaultCatalog(), nil)
}

// Subscriptions godoc
// @Summary Scopes the student is subscribed to
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/subscriptions [get]
func (h *SessionHandler) Subscriptions(c *gin.Context) {
	sess := middleware.Session(c)
	items, err := h.subscriptions.ListForEmail(c.Request.Context(), sess.Email)
	if err != nil {
		h.sessions.Fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
