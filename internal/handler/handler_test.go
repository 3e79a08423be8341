package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/papers-hub-api/internal/middleware"
	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/internal/service"
)

type responseEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Redirect string `json:"redirect"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

type actionBody struct {
	Redirect string `json:"redirect"`
	Session  struct {
		Authenticated bool           `json:"authenticated"`
		Email         string         `json:"email"`
		PendingEmail  string         `json:"pendingEmail"`
		Institution   string         `json:"institution"`
		Flashes       []models.Flash `json:"flashes"`
	} `json:"session"`
}

type revocationStub struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (r *revocationStub) Revoke(ctx context.Context, token, kind string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token]; ok {
		return false, nil
	}
	r.tokens[token] = kind
	return true, nil
}

func (r *revocationStub) IsRevoked(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[token]
	return ok, nil
}

func (r *revocationStub) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type testSessions struct {
	*middleware.Sessions
	codec *service.SessionService
}

func newTestSessions(t *testing.T) testSessions {
	t.Helper()
	gin.SetMode(gin.TestMode)
	codec, err := service.NewSessionService("handler-secret", time.Hour, &revocationStub{tokens: map[string]string{}})
	require.NoError(t, err)
	return testSessions{
		Sessions: middleware.NewSessions(codec, middleware.SessionCookieConfig{Name: "sid"}, nil),
		codec:    codec,
	}
}

// request issues r through a router that loads sess from a cookie.
func (s testSessions) request(t *testing.T, method, route string, handler gin.HandlerFunc, r *http.Request, sess models.Session) *httptest.ResponseRecorder {
	t.Helper()
	return s.requestChain(t, method, route, r, sess, handler)
}

func (s testSessions) requestChain(t *testing.T, method, route string, r *http.Request, sess models.Session, handlers ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Use(s.Load(), middleware.WithResponseMeta())
	router.Handle(method, route, handlers...)
	raw, err := s.codec.Encode(sess)
	require.NoError(t, err)
	r.AddCookie(&http.Cookie{Name: "sid", Value: raw})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func (s testSessions) savedSession(t *testing.T, w *httptest.ResponseRecorder) models.Session {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "sid" {
			sess, err := s.codec.Decode(context.Background(), c.Value)
			require.NoError(t, err)
			return sess
		}
	}
	t.Fatalf("no session cookie written")
	return models.Session{}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeAction(t *testing.T, w *httptest.ResponseRecorder) actionBody {
	t.Helper()
	var body actionBody
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &body))
	return body
}

func teacherSession() models.Session {
	return models.Session{}.AsTeacher(models.TeacherAccount{
		Username:       "rajesh",
		Institution:    "meip",
		Department:     "cse",
		DepartmentName: "Computer Science & Engineering",
	}, "MEIP College")
}

func studentSession() models.Session {
	return models.Session{}.Verified("s@x.edu").WithInstitution("meip", "MEIP College")
}
