package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/internal/service"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
	"github.com/noah-isme/papers-hub-api/pkg/logger"
	"github.com/noah-isme/papers-hub-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the decoded session.
const ContextSessionKey = "session"

// SessionCodec signs and parses session cookie values.
type SessionCodec interface {
	Encode(sess models.Session) (string, error)
	Decode(ctx context.Context, raw string) (models.Session, error)
}

// SessionCookieConfig controls cookie attributes.
type SessionCookieConfig struct {
	Name   string
	Secure bool
	MaxAge int
}

// Sessions loads and persists the session cookie.
type Sessions struct {
	codec  SessionCodec
	cfg    SessionCookieConfig
	logger *zap.Logger
}

// NewSessions constructs the cookie manager.
func NewSessions(codec SessionCodec, cfg SessionCookieConfig, logger *zap.Logger) *Sessions {
	if cfg.Name == "" {
		cfg.Name = "papers_session"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{codec: codec, cfg: cfg, logger: logger}
}

// Load decodes the cookie into the request context. A missing, invalid or
// ended session yields an anonymous session; an ended one also expires the cookie.
func (s *Sessions) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := models.Session{}
		if raw, err := c.Cookie(s.cfg.Name); err == nil && raw != "" {
			decoded, err := s.codec.Decode(c.Request.Context(), raw)
			switch {
			case errors.Is(err, service.ErrSessionRevoked):
				s.logger.Info("rejected ended session cookie", zap.String("path", c.Request.URL.Path))
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(s.cfg.Name, "", -1, "/", "", s.cfg.Secure, true)
			case err != nil:
				s.logger.Debug("discarding invalid session cookie", zap.Error(err))
			default:
				sess = decoded
			}
		}
		setSession(c, sess)
		c.Next()
	}
}

// Save stores sess on the context and writes it back as a cookie.
func (s *Sessions) Save(c *gin.Context, sess models.Session) {
	setSession(c, sess)
	raw, err := s.codec.Encode(sess)
	if err != nil {
		s.logger.Error("failed to encode session", zap.Error(err))
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.Name, raw, s.cfg.MaxAge, "/", "", s.cfg.Secure, true)
}

// Fail pushes the error message as a flash, persists the session and writes
// the error envelope.
func (s *Sessions) Fail(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status < http.StatusInternalServerError {
		s.Save(c, Session(c).WithFlash(models.FlashError, appErr.Message))
	}
	response.Error(c, appErr)
}

// Session returns the session loaded for this request.
func Session(c *gin.Context) models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return models.Session{}
	}
	sess, ok := value.(models.Session)
	if !ok {
		return models.Session{}
	}
	return sess
}

func setSession(c *gin.Context, sess models.Session) {
	c.Set(ContextSessionKey, sess)
	role := ""
	if sess.Authenticated {
		role = string(models.RoleStudent)
		if sess.Role != "" {
			role = string(sess.Role)
		}
	}
	c.Set(logger.RoleContextKey, role)
}
