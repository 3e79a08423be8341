package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/papers-hub-api/internal/models"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
)

type subscriptionStore interface {
	Upsert(ctx context.Context, pref *models.SubscriptionPreference) error
	RecipientsFor(ctx context.Context, scope models.Scope) ([]string, error)
	DeleteByEmail(ctx context.Context, email string) (int64, error)
	ListByEmail(ctx context.Context, email string) ([]models.SubscriptionPreference, error)
}

// SubscriptionService tracks which students want upload notifications for a scope.
type SubscriptionService struct {
	repo   subscriptionStore
	logger *zap.Logger
}

// NewSubscriptionService constructs the service.
func NewSubscriptionService(repo subscriptionStore, logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{repo: repo, logger: logger}
}

// RecordView subscribes the session's student to a scope. Teachers and
// sessions without an email or institution are ignored.
func (s *SubscriptionService) RecordView(ctx context.Context, sess models.Session, department string, term int) error {
	if sess.Email == "" || sess.Institution == "" || sess.Role == models.RoleTeacher {
		return nil
	}
	pref := &models.SubscriptionPreference{
		Email:       sess.Email,
		Institution: sess.Institution,
		Department:  department,
		Term:        term,
	}
	if err := s.repo.Upsert(ctx, pref); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record view")
	}
	return nil
}

// RecipientsFor lists distinct opted-in emails for an exact scope, sorted.
func (s *SubscriptionService) RecipientsFor(ctx context.Context, scope models.Scope) ([]string, error) {
	emails, err := s.repo.RecipientsFor(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipients")
	}
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	sort.Strings(out)
	return out, nil
}

// ResetForEmail removes every preference of a student.
func (s *SubscriptionService) ResetForEmail(ctx context.Context, email string) (int64, error) {
	if email == "" {
		return 0, nil
	}
	return s.repo.DeleteByEmail(ctx, email)
}

// ListForEmail returns a student's current subscriptions.
func (s *SubscriptionService) ListForEmail(ctx context.Context, email string) ([]models.SubscriptionPreference, error) {
	if email == "" {
		return []models.SubscriptionPreference{}, nil
	}
	prefs, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subscriptions")
	}
	return prefs, nil
}
