package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/papers-hub-api/internal/models"
)

const sessionIssuer = "papers-hub"

// Revocation kinds recorded by the session store.
const (
	RevocationSession     = "session"
	RevocationUploadGrant = "upload_grant"
)

// ErrSessionRevoked marks a cookie whose session was ended server-side.
var ErrSessionRevoked = errors.New("session revoked")

type sessionRevocations interface {
	Revoke(ctx context.Context, token, kind string, expiresAt time.Time) (bool, error)
	IsRevoked(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionService signs and parses session cookies and tracks which sessions
// and upload grants have been used up server-side.
type SessionService struct {
	secret      []byte
	ttl         time.Duration
	revocations sessionRevocations
	now         func() time.Time
}

// NewSessionService constructs the codec.
func NewSessionService(secret string, ttl time.Duration, revocations sessionRevocations) (*SessionService, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if revocations == nil {
		return nil, errors.New("session revocation store is required")
	}
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &SessionService{secret: []byte(secret), ttl: ttl, revocations: revocations, now: time.Now}, nil
}

// TTL is the lifetime of an issued cookie.
func (s *SessionService) TTL() time.Duration { return s.ttl }

// Encode signs the session as an HS256 token. Authenticated sessions without
// an identifier get a fresh one so they can be ended later.
func (s *SessionService) Encode(sess models.Session) (string, error) {
	if sess.Authenticated && sess.ID == "" {
		sess = sess.WithID(uuid.NewString())
	}
	now := s.now()
	claims := models.SessionClaims{
		Session: sess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies a token and returns the session it carries. Ended sessions
// yield ErrSessionRevoked; a spent upload grant is dropped from the result.
func (s *SessionService) Decode(ctx context.Context, raw string) (models.Session, error) {
	claims := &models.SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return models.Session{}, fmt.Errorf("parse session: %w", err)
	}
	sess := claims.Session
	if sess.Authenticated && sess.ID == "" {
		return models.Session{}, fmt.Errorf("parse session: %w", ErrSessionRevoked)
	}
	if sess.ID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, sess.ID)
		if err != nil {
			return models.Session{}, fmt.Errorf("check session: %w", err)
		}
		if revoked {
			return models.Session{}, ErrSessionRevoked
		}
	}
	if sess.UploadGrant != "" {
		spent, err := s.revocations.IsRevoked(ctx, sess.UploadGrant)
		if err != nil {
			return models.Session{}, fmt.Errorf("check upload grant: %w", err)
		}
		if spent {
			sess = sess.WithUploadGrant("")
		}
	}
	return sess, nil
}

// End revokes the session so cookies issued for it stop decoding.
func (s *SessionService) End(ctx context.Context, sess models.Session) error {
	if sess.ID == "" {
		return nil
	}
	if _, err := s.revocations.Revoke(ctx, sess.ID, RevocationSession, s.now().Add(s.ttl)); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// ConsumeUploadGrant spends a single-use upload grant. It reports false when
// the grant was already spent.
func (s *SessionService) ConsumeUploadGrant(ctx context.Context, grant string) (bool, error) {
	if grant == "" {
		return false, nil
	}
	first, err := s.revocations.Revoke(ctx, grant, RevocationUploadGrant, s.now().Add(s.ttl))
	if err != nil {
		return false, fmt.Errorf("consume upload grant: %w", err)
	}
	return first, nil
}

// PurgeExpired forgets revocations older than any cookie that could carry them.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.revocations.DeleteExpired(ctx, s.now())
}
