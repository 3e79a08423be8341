package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/papers-hub-api/internal/models"
)

// OTPRepository persists one-time login codes. Rows are never deleted.
type OTPRepository struct {
	db *sqlx.DB
}

// NewOTPRepository constructs the repository.
func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Create appends a new code for an email.
func (r *OTPRepository) Create(ctx context.Context, code *models.OneTimeCode) error {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	if code.IssuedAt.IsZero() {
		code.IssuedAt = time.Now().UTC()
	}
	code.Email = strings.ToLower(strings.TrimSpace(code.Email))
	const query = `INSERT INTO one_time_codes (id, email, code, verified, issued_at) VALUES (:id, :email, :code, :verified, :issued_at)`
	if _, err := r.db.NamedExecContext(ctx, query, code); err != nil {
		return fmt.Errorf("create one time code: %w", err)
	}
	return nil
}

// LatestUnverified returns the most recently issued unverified code for email.
// sql.ErrNoRows is returned untouched when none exists.
func (r *OTPRepository) LatestUnverified(ctx context.Context, email string) (*models.OneTimeCode, error) {
	const query = `SELECT id, email, code, verified, issued_at FROM one_time_codes
	WHERE email = $1 AND verified = FALSE ORDER BY issued_at DESC LIMIT 1`
	var code models.OneTimeCode
	if err := r.db.GetContext(ctx, &code, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return &code, nil
}

// MarkVerified flags an unverified code as consumed. sql.ErrNoRows is
// returned when the code was already consumed by a concurrent verify.
func (r *OTPRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `UPDATE one_time_codes SET verified = TRUE WHERE id = $1 AND verified = FALSE`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark one time code verified: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark one time code verified: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
