package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/papers-hub-api/internal/dto"
	"github.com/noah-isme/papers-hub-api/internal/models"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
)

type otpIssuer interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) error
}

type subscriptionResetter interface {
	ResetForEmail(ctx context.Context, email string) (int64, error)
}

type sessionEnder interface {
	End(ctx context.Context, sess models.Session) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RequestMeta identifies the client for audit rows.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// AuthService drives the session transitions of both login flows.
type AuthService struct {
	otp           otpIssuer
	credentials   CredentialVerifier
	subscriptions subscriptionResetter
	sessions      sessionEnder
	audit         auditLogger
	validate      *validator.Validate
	logger        *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(otp otpIssuer, credentials CredentialVerifier, subscriptions subscriptionResetter, sessions sessionEnder, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{otp: otp, credentials: credentials, subscriptions: subscriptions, sessions: sessions, audit: audit, validate: validate, logger: logger}
}

// RequestOTP emails a code and remembers the address awaiting verification.
func (s *AuthService) RequestOTP(ctx context.Context, sess models.Session, req dto.RequestOTPRequest) (models.Session, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrValidation, "Please enter a valid email address."), RedirectStudentLogin)
	}
	if _, err := s.otp.Issue(ctx, req.Email); err != nil {
		return sess, err
	}
	return sess.WithPendingEmail(req.Email).WithFlash(models.FlashSuccess, "OTP sent to your email!"), nil
}

// VerifyOTP authenticates the pending email. Scope fields of the old session are dropped.
func (s *AuthService) VerifyOTP(ctx context.Context, sess models.Session, req dto.VerifyOTPRequest, meta RequestMeta) (models.Session, error) {
	if sess.PendingEmail == "" {
		return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrAuthRequired, "Please enter your email first."), RedirectStudentLogin)
	}
	req.OTP = strings.TrimSpace(req.OTP)
	if err := s.validate.Struct(req); err != nil {
		return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrOTPMismatch, "Invalid OTP! Please try again."), RedirectVerifyOTP)
	}
	if err := s.otp.Verify(ctx, sess.PendingEmail, req.OTP); err != nil {
		return sess, err
	}
	next := sess.Verified(sess.PendingEmail).WithFlash(models.FlashSuccess, "Login successful!")
	s.emitAudit(ctx, next.Email, models.AuditActionLogin, "student", meta, map[string]string{"role": string(models.RoleStudent)})
	return next, nil
}

// TeacherLogin authenticates a teacher against an institution entry point.
func (s *AuthService) TeacherLogin(ctx context.Context, sess models.Session, institution string, req dto.TeacherLoginRequest, meta RequestMeta) (models.Session, error) {
	institution = strings.ToLower(strings.TrimSpace(institution))
	institutionName, ok := models.InstitutionName(institution)
	if !ok {
		return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrNotFound, "Unknown college."), RedirectRoleSelection)
	}
	redirect := TeacherLoginRedirect(institution)
	if err := s.validate.Struct(req); err != nil {
		return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrInvalidCredentials, "Invalid username or password!"), redirect)
	}
	account, err := s.credentials.Verify(ctx, req.Username, req.Password)
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrInvalidCredentials.Code {
			appErr = appErrors.Clone(appErrors.ErrInvalidCredentials, "Invalid username or password!")
		}
		return sess, appErrors.WithRedirect(appErr, redirect)
	}
	if account.Institution != institution {
		s.logger.Info("teacher login rejected for institution",
			zap.String("username", account.Username),
			zap.String("institution", institution))
		msg := fmt.Sprintf("You are not authorized to login to %s!", institutionName)
		return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrForbidden, msg), redirect)
	}
	next := sess.AsTeacher(*account, institutionName)
	next = next.WithFlash(models.FlashSuccess, fmt.Sprintf("Welcome %s!", models.TitleCase(account.Username)))
	s.emitAudit(ctx, account.Username, models.AuditActionLogin, "teacher", meta, map[string]string{
		"role":        string(models.RoleTeacher),
		"institution": institution,
		"department":  account.Department,
	})
	return next, nil
}

// SelectInstitution scopes a student to an institution after clearing their subscriptions.
func (s *AuthService) SelectInstitution(ctx context.Context, sess models.Session, institution string, meta RequestMeta) (models.Session, error) {
	institution = strings.ToLower(strings.TrimSpace(institution))
	name, ok := models.InstitutionName(institution)
	if !ok {
		return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrNotFound, "Unknown college."), RedirectInstitutionSelection)
	}
	if sess.IsTeacher() {
		return sess, appErrors.WithRedirect(appErrors.Clone(appErrors.ErrForbidden, "Teachers cannot change college."), RedirectTeacherLogin)
	}
	if sess.Email != "" && s.subscriptions != nil {
		removed, err := s.subscriptions.ResetForEmail(ctx, sess.Email)
		if err != nil {
			return sess, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset subscriptions")
		}
		s.logger.Info("subscriptions reset on institution switch",
			zap.String("email", sess.Email),
			zap.String("institution", institution),
			zap.Int64("removed", removed))
	}
	next := sess.WithInstitution(institution, name).WithFlash(models.FlashSuccess, fmt.Sprintf("Welcome to %s!", name))
	s.emitAudit(ctx, sess.Email, models.AuditActionInstitution, "institution", meta, map[string]string{"institution": institution})
	return next, nil
}

// Logout ends the session server-side and drops every session field.
func (s *AuthService) Logout(ctx context.Context, sess models.Session, meta RequestMeta) (models.Session, error) {
	if err := s.sessions.End(ctx, sess); err != nil {
		return sess, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end session")
	}
	if sess.Authenticated {
		s.emitAudit(ctx, sess.Email, models.AuditActionLogout, "session", meta, nil)
	}
	return sess.Cleared().WithFlash(models.FlashSuccess, "Logged out successfully!"), nil
}

func (s *AuthService) emitAudit(ctx context.Context, userID, action, resource string, meta RequestMeta, values map[string]string) {
	emitAudit(ctx, s.audit, s.logger, userID, action, resource, nil, meta, values)
}

func emitAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, userID, action, resource string, resourceID *string, meta RequestMeta, values map[string]string) {
	if audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if len(values) > 0 {
		if raw, err := json.Marshal(values); err == nil {
			entry.NewValues = raw
		}
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to create audit log", zap.String("action", action), zap.Error(err))
	}
}
