package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/papers-hub-api/internal/models"
)

// SubscriptionRepository persists notification preferences per scope.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository constructs the repository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert creates the preference or refreshes last_viewed in a single statement.
// The unique key (email, institution, department, term) makes repeated views idempotent.
func (r *SubscriptionRepository) Upsert(ctx context.Context, pref *models.SubscriptionPreference) error {
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pref.LastViewed.IsZero() {
		pref.LastViewed = now
	}
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	pref.WantsNotifications = true
	const query = `INSERT INTO subscription_preferences
	(id, email, institution, department, term, wants_notifications, last_viewed, created_at)
	VALUES (:id, :email, :institution, :department, :term, :wants_notifications, :last_viewed, :created_at)
	ON CONFLICT (email, institution, department, term)
	DO UPDATE SET wants_notifications = TRUE, last_viewed = EXCLUDED.last_viewed`
	if _, err := r.db.NamedExecContext(ctx, query, pref); err != nil {
		return fmt.Errorf("upsert subscription preference: %w", err)
	}
	return nil
}

// RecipientsFor returns distinct opted-in emails for an exact scope match.
func (r *SubscriptionRepository) RecipientsFor(ctx context.Context, scope models.Scope) ([]string, error) {
	const query = `SELECT DISTINCT email FROM subscription_preferences
	WHERE institution = $1 AND department = $2 AND term = $3 AND wants_notifications = TRUE
	ORDER BY email`
	emails := []string{}
	if err := r.db.SelectContext(ctx, &emails, query, scope.Institution, scope.Department, scope.Term); err != nil {
		return nil, fmt.Errorf("list subscription recipients: %w", err)
	}
	return emails, nil
}

// DeleteByEmail removes every preference for email and reports how many went.
func (r *SubscriptionRepository) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	const query = `DELETE FROM subscription_preferences WHERE email = $1`
	res, err := r.db.ExecContext(ctx, query, email)
	if err != nil {
		return 0, fmt.Errorf("delete subscription preferences: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check subscription delete rows: %w", err)
	}
	return affected, nil
}

// ListByEmail returns a student's preferences, most recently viewed first.
func (r *SubscriptionRepository) ListByEmail(ctx context.Context, email string) ([]models.SubscriptionPreference, error) {
	const query = `SELECT id, email, institution, department, term, wants_notifications, last_viewed, created_at
	FROM subscription_preferences WHERE email = $1 ORDER BY last_viewed DESC`
	prefs := []models.SubscriptionPreference{}
	if err := r.db.SelectContext(ctx, &prefs, query, email); err != nil {
		return nil, fmt.Errorf("list subscription preferences: %w", err)
	}
	return prefs, nil
}
