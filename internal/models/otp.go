package models

import "time"

// OneTimeCode is an emailed login code. Rows are append-only.
type OneTimeCode struct {
	ID       string    `db:"id" json:"id"`
	Email    string    `db:"email" json:"email"`
	Code     string    `db:"code" json:"-"`
	Verified bool      `db:"verified" json:"verified"`
	IssuedAt time.Time `db:"issued_at" json:"issuedAt"`
}

// ExpiresAt returns the instant the code stops being accepted.
func (o OneTimeCode) ExpiresAt(ttl time.Duration) time.Time {
	return o.IssuedAt.Add(ttl)
}

// ValidAt reports whether issuedAt + ttl is still in the future at now.
func (o OneTimeCode) ValidAt(now time.Time, ttl time.Duration) bool {
	return o.ExpiresAt(ttl).After(now)
}
