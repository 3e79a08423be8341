package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/papers-hub-api/internal/models"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
	"github.com/noah-isme/papers-hub-api/pkg/mail"
)

const (
	defaultOTPTTL = 10 * time.Minute
	otpMin        = 100000
	otpSpan       = 900000
)

type otpStore interface {
	Create(ctx context.Context, code *models.OneTimeCode) error
	LatestUnverified(ctx context.Context, email string) (*models.OneTimeCode, error)
	MarkVerified(ctx context.Context, id string) error
}

// OTPService issues and verifies emailed login codes.
type OTPService struct {
	repo     otpStore
	mailer   mail.Mailer
	metrics  *MetricsService
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

// NewOTPService constructs the service. A zero ttl defaults to ten minutes.
func NewOTPService(repo otpStore, mailer mail.Mailer, metrics *MetricsService, logger *zap.Logger, ttl time.Duration) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &OTPService{
		repo:     repo,
		mailer:   mailer,
		metrics:  metrics,
		logger:   logger,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		generate: generateOTP,
	}
}

// Issue stores a fresh code and emails it. The stored record survives a send failure.
func (s *OTPService) Issue(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	code, err := s.generate()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}
	record := &models.OneTimeCode{Email: email, Code: code, IssuedAt: s.now()}
	if err := s.repo.Create(ctx, record); err != nil {
		s.metrics.RecordOTP("issue", OutcomeFailure)
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store code")
	}

	msg := mail.Message{
		To:      []string{email},
		Subject: "Your Login OTP",
		Body:    fmt.Sprintf("Your OTP for login is: %s\n\nThis OTP is valid for %d minutes.", code, int(s.ttl.Minutes())),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.RecordOTP("issue", OutcomeFailure)
		s.logger.Warn("otp delivery failed", zap.String("email", email), zap.Error(err))
		delivery := appErrors.Wrap(err, appErrors.ErrOTPDelivery.Code, appErrors.ErrOTPDelivery.Status, "Failed to send OTP: "+err.Error())
		return "", appErrors.WithRedirect(delivery, RedirectStudentLogin)
	}
	s.metrics.RecordOTP("issue", OutcomeSuccess)
	s.logger.Info("otp issued", zap.String("email", email), zap.String("otp_id", record.ID))
	return code, nil
}

// Verify checks code against the latest unverified record for email.
// Expiry is evaluated before the code comparison.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	record, err := s.repo.LatestUnverified(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordOTP("verify", "not_found")
			return appErrors.WithRedirect(appErrors.Clone(appErrors.ErrNotFound, "No OTP found. Please request a new one."), RedirectStudentLogin)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load code")
	}
	if !record.ValidAt(s.now(), s.ttl) {
		s.metrics.RecordOTP("verify", "expired")
		return appErrors.WithRedirect(appErrors.Clone(appErrors.ErrOTPExpired, "OTP has expired! Please request a new one."), RedirectVerifyOTP)
	}
	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(strings.TrimSpace(code))) != 1 {
		s.metrics.RecordOTP("verify", "mismatch")
		return appErrors.WithRedirect(appErrors.Clone(appErrors.ErrOTPMismatch, "Invalid OTP! Please try again."), RedirectVerifyOTP)
	}
	if err := s.repo.MarkVerified(ctx, record.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordOTP("verify", "not_found")
			return appErrors.WithRedirect(appErrors.Clone(appErrors.ErrNotFound, "No OTP found. Please request a new one."), RedirectStudentLogin)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume code")
	}
	s.metrics.RecordOTP("verify", OutcomeSuccess)
	return nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}
