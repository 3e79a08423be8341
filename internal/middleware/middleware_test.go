package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/internal/service"
	"github.com/noah-isme/papers-hub-api/pkg/logger"
	"github.com/noah-isme/papers-hub-api/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type revocationStub struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func (r *revocationStub) Revoke(ctx context.Context, token, kind string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tokens[token] {
		return false, nil
	}
	r.tokens[token] = true
	return true, nil
}

func (r *revocationStub) IsRevoked(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[token], nil
}

func (r *revocationStub) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func newTestSessions(t *testing.T) (*Sessions, *service.SessionService) {
	t.Helper()
	codec, err := service.NewSessionService("test-secret", time.Hour, &revocationStub{tokens: map[string]bool{}})
	require.NoError(t, err)
	return NewSessions(codec, SessionCookieConfig{Name: "sid", MaxAge: 3600}, nil), codec
}

func cookieFor(t *testing.T, codec *service.SessionService, sess models.Session) *http.Cookie {
	t.Helper()
	raw, err := codec.Encode(sess)
	require.NoError(t, err)
	return &http.Cookie{Name: "sid", Value: raw}
}

func teacher() models.Session {
	return models.Session{}.AsTeacher(models.TeacherAccount{Username: "rajesh", Institution: "meip", Department: "cse"}, "MEIP College")
}

func TestLoadDecodesCookie(t *testing.T) {
	sessions, codec := newTestSessions(t)
	router := gin.New()
	router.Use(sessions.Load())
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": Session(c).Email, "role": c.GetString(logger.RoleContextKey)})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookieFor(t, codec, teacher()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.JSONEq(t, `{"email":"rajesh","role":"teacher"}`, w.Body.String())
}

func TestLoadIgnoresTamperedCookie(t *testing.T) {
	sessions, _ := newTestSessions(t)
	router := gin.New()
	router.Use(sessions.Load())
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authenticated": Session(c).Authenticated})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "not-a-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
}

func TestLoadRejectsEndedSession(t *testing.T) {
	sessions, codec := newTestSessions(t)
	router := gin.New()
	router.Use(sessions.Load())
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authenticated": Session(c).Authenticated})
	})

	cookie := cookieFor(t, codec, teacher())
	live, err := codec.Decode(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.NoError(t, codec.End(context.Background(), live))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestRequireAuthenticatedFlashesAndRedirects(t *testing.T) {
	sessions, codec := newTestSessions(t)
	router := gin.New()
	router.Use(sessions.Load())
	router.GET("/departments", sessions.RequireAuthenticated(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/departments", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "AUTH_REQUIRED", env.Error.Code)
	assert.Equal(t, "/", env.Error.Redirect)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	saved, err := codec.Decode(context.Background(), cookies[0].Value)
	require.NoError(t, err)
	require.Len(t, saved.Flashes, 1)
	assert.Equal(t, "Please login first.", saved.Flashes[0].Message)
}

func TestRequireTeacherDepartment(t *testing.T) {
	sessions, codec := newTestSessions(t)
	router := gin.New()
	router.Use(sessions.Load())
	router.GET("/teacher/:department/dashboard", sessions.RequireTeacherDepartment(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name   string
		path   string
		status int
	}{
		{name: "own department", path: "/teacher/cse/dashboard", status: http.StatusOK},
		{name: "other department", path: "/teacher/mech/dashboard", status: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.AddCookie(cookieFor(t, codec, teacher()))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	sessions, codec := newTestSessions(t)
	audit := &auditStub{}
	router := gin.New()
	router.Use(sessions.Load())
	router.GET("/export", Audit(audit, models.AuditActionDocumentExport, "document", nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/fail", Audit(audit, models.AuditActionDocumentExport, "document", nil), func(c *gin.Context) {
		c.Status(http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodGet, "/export?format=csv", nil)
	req.AddCookie(cookieFor(t, codec, teacher()))
	router.ServeHTTP(httptest.NewRecorder(), req)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	require.Len(t, audit.logs, 1)
	require.NotNil(t, audit.logs[0].UserID)
	assert.Equal(t, "rajesh", *audit.logs[0].UserID)
	assert.Contains(t, string(audit.logs[0].NewValues), "format=csv")
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/docs", func(c *gin.Context) {
		SetCacheHit(c, true)
		response.JSON(c, http.StatusOK, gin.H{}, ExtractMeta(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))

	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")
}

func TestMetricsMiddlewareObservesRoute(t *testing.T) {
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/catalog", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/catalog", nil))

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `path="/catalog"`)
}
