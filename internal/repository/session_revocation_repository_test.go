package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRevocationRevokeReportsFirstUse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRevocationRepository(db)
	expires := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_revocations (token, kind, expires_at) VALUES ($1, $2, $3) ON CONFLICT (token) DO NOTHING")).
		WithArgs("grant-1", "upload_grant", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_revocations")).
		WithArgs("grant-1", "upload_grant", expires).
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.Revoke(context.Background(), "grant-1", "upload_grant", expires)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.Revoke(context.Background(), "grant-1", "upload_grant", expires)
	require.NoError(t, err)
	assert.False(t, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRevocationIsRevoked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRevocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM session_revocations WHERE token = $1)")).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	revoked, err := repo.IsRevoked(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRevocationDeleteExpired(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRevocationRepository(db)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM session_revocations WHERE expires_at < $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	removed, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 4, removed)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM session_revocations")).
		WillReturnError(errors.New("connection reset"))
	_, err = repo.DeleteExpired(context.Background(), now)
	assert.Error(t, err)
}
