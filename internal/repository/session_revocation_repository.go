package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SessionRevocationRepository records ended sessions and spent upload grants.
type SessionRevocationRepository struct {
	db *sqlx.DB
}

// NewSessionRevocationRepository constructs the repository.
func NewSessionRevocationRepository(db *sqlx.DB) *SessionRevocationRepository {
	return &SessionRevocationRepository{db: db}
}

// Revoke stores token and reports whether this call was the one that stored it.
func (r *SessionRevocationRepository) Revoke(ctx context.Context, token, kind string, expiresAt time.Time) (bool, error) {
	const query = `INSERT INTO session_revocations (token, kind, expires_at) VALUES ($1, $2, $3) ON CONFLICT (token) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, token, kind, expiresAt.UTC())
	if err != nil {
		return false, fmt.Errorf("revoke %s: %w", kind, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke %s: %w", kind, err)
	}
	return affected == 1, nil
}

// IsRevoked reports whether token has been revoked.
func (r *SessionRevocationRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM session_revocations WHERE token = $1)`
	var revoked bool
	if err := r.db.GetContext(ctx, &revoked, query, token); err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return revoked, nil
}

// DeleteExpired removes rows whose cookies can no longer be presented.
func (r *SessionRevocationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_revocations WHERE expires_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge revocations: %w", err)
	}
	return res.RowsAffected()
}
