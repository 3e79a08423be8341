package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/papers-hub-api/internal/dto"
	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/internal/service"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
)

type fakeAuthService struct {
	err       error
	lastEmail string
	lastOTP   string
	lastInst  string
	lastCreds dto.TeacherLoginRequest
	loggedOut bool
}

func (f *fakeAuthService) RequestOTP(ctx context.Context, sess models.Session, req dto.RequestOTPRequest) (models.Session, error) {
	f.lastEmail = req.Email
	if f.err != nil {
		return sess, f.err
	}
	return sess.WithPendingEmail(req.Email).WithFlash(models.FlashSuccess, "OTP sent to your email!"), nil
}

func (f *fakeAuthService) VerifyOTP(ctx context.Context, sess models.Session, req dto.VerifyOTPRequest, meta service.RequestMeta) (models.Session, error) {
	f.lastOTP = req.OTP
	if f.err != nil {
		return sess, f.err
	}
	return sess.Verified(sess.PendingEmail).WithFlash(models.FlashSuccess, "Login successful!"), nil
}

func (f *fakeAuthService) TeacherLogin(ctx context.Context, sess models.Session, institution string, req dto.TeacherLoginRequest, meta service.RequestMeta) (models.Session, error) {
	f.lastInst = institution
	f.lastCreds = req
	if f.err != nil {
		return sess, f.err
	}
	return teacherSession(), nil
}

func (f *fakeAuthService) SelectInstitution(ctx context.Context, sess models.Session, institution string, meta service.RequestMeta) (models.Session, error) {
	f.lastInst = institution
	if f.err != nil {
		return sess, f.err
	}
	return sess.WithInstitution(institution, "PVP College"), nil
}

func (f *fakeAuthService) Logout(ctx context.Context, sess models.Session, meta service.RequestMeta) (models.Session, error) {
	if f.err != nil {
		return sess, f.err
	}
	f.loggedOut = true
	return sess.Cleared().WithFlash(models.FlashSuccess, "Logged out successfully!"), nil
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestRequestOTPStoresPendingEmail(t *testing.T) {
	sessions := newTestSessions(t)
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc, sessions)

	w := sessions.request(t, http.MethodPost, "/auth/student/otp", h.RequestOTP,
		jsonRequest(http.MethodPost, "/auth/student/otp", `{"email":"s@x.edu"}`), models.Session{})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s@x.edu", svc.lastEmail)
	body := decodeAction(t, w)
	assert.Equal(t, service.RedirectVerifyOTP, body.Redirect)
	assert.Equal(t, "s@x.edu", body.Session.PendingEmail)
	require.Len(t, body.Session.Flashes, 1)
	assert.Equal(t, "OTP sent to your email!", body.Session.Flashes[0].Message)

	saved := sessions.savedSession(t, w)
	assert.Equal(t, "s@x.edu", saved.PendingEmail)
	assert.Empty(t, saved.Flashes)
}

func TestVerifyOTPFailureFlashesAndRedirects(t *testing.T) {
	sessions := newTestSessions(t)
	svc := &fakeAuthService{err: appErrors.WithRedirect(appErrors.Clone(appErrors.ErrOTPMismatch, "Invalid OTP! Please try again."), service.RedirectVerifyOTP)}
	h := NewAuthHandler(svc, sessions)

	w := sessions.request(t, http.MethodPost, "/auth/student/verify", h.VerifyOTP,
		jsonRequest(http.MethodPost, "/auth/student/verify", `{"otp":"000000"}`), models.Session{}.WithPendingEmail("s@x.edu"))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "OTP_MISMATCH", env.Error.Code)
	assert.Equal(t, service.RedirectVerifyOTP, env.Error.Redirect)
	saved := sessions.savedSession(t, w)
	assert.Equal(t, "s@x.edu", saved.PendingEmail)
	require.Len(t, saved.Flashes, 1)
	assert.Equal(t, "Invalid OTP! Please try again.", saved.Flashes[0].Message)
}

func TestVerifyOTPSuccess(t *testing.T) {
	sessions := newTestSessions(t)
	h := NewAuthHandler(&fakeAuthService{}, sessions)

	w := sessions.request(t, http.MethodPost, "/auth/student/verify", h.VerifyOTP,
		jsonRequest(http.MethodPost, "/auth/student/verify", `{"otp":"482913"}`), models.Session{}.WithPendingEmail("s@x.edu"))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeAction(t, w)
	assert.True(t, body.Session.Authenticated)
	assert.Equal(t, service.RedirectInstitutionSelection, body.Redirect)
}

func TestTeacherLoginUsesPathInstitution(t *testing.T) {
	sessions := newTestSessions(t)
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc, sessions)

	w := sessions.request(t, http.MethodPost, "/auth/teacher/:institution/login", h.TeacherLogin,
		jsonRequest(http.MethodPost, "/auth/teacher/meip/login", `{"username":"rajesh","password":"rajesh@123"}`), models.Session{})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "meip", svc.lastInst)
	assert.Equal(t, "rajesh", svc.lastCreds.Username)
	assert.Equal(t, "/teacher/cse/dashboard", decodeAction(t, w).Redirect)
}

func TestTeacherLoginForbidden(t *testing.T) {
	sessions := newTestSessions(t)
	h := NewAuthHandler(&fakeAuthService{err: appErrors.Clone(appErrors.ErrForbidden, "You are not authorized to login to PVP College!")}, sessions)

	w := sessions.request(t, http.MethodPost, "/auth/teacher/:institution/login", h.TeacherLogin,
		jsonRequest(http.MethodPost, "/auth/teacher/pvp/login", `{"username":"rajesh","password":"rajesh@123"}`), models.Session{})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, sessions.savedSession(t, w).Authenticated)
}

func TestSelectInstitutionAndLogout(t *testing.T) {
	sessions := newTestSessions(t)
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc, sessions)

	w := sessions.request(t, http.MethodPost, "/student/institution/:institution", h.SelectInstitution,
		httptest.NewRequest(http.MethodPost, "/student/institution/pvp", nil), models.Session{}.Verified("s@x.edu"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pvp", sessions.savedSession(t, w).Institution)

	w = sessions.request(t, http.MethodPost, "/auth/logout", h.Logout,
		httptest.NewRequest(http.MethodPost, "/auth/logout", nil), studentSession())
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.loggedOut)
	assert.False(t, sessions.savedSession(t, w).Authenticated)
	assert.Equal(t, "/", decodeAction(t, w).Redirect)
}

func TestLogoutFailureKeepsSession(t *testing.T) {
	sessions := newTestSessions(t)
	h := NewAuthHandler(&fakeAuthService{err: appErrors.Clone(appErrors.ErrInternal, "failed to end session")}, sessions)

	w := sessions.request(t, http.MethodPost, "/auth/logout", h.Logout,
		httptest.NewRequest(http.MethodPost, "/auth/logout", nil), studentSession())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeEnvelope(t, w).Error.Code)
	for _, c := range w.Result().Cookies() {
		assert.NotEqual(t, "sid", c.Name)
	}
}
