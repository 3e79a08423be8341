package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/papers-hub-api/internal/models"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
)

// CredentialVerifier resolves teacher credentials to an account.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (*models.TeacherAccount, error)
}

// TeacherCredential is one row of the static credential table.
type TeacherCredential struct {
	Username    string
	Password    string
	Institution string
	Department  string
}

// DefaultTeacherCredentials is the built-in teacher table.
func DefaultTeacherCredentials() []TeacherCredential {
	return []TeacherCredential{
		{Username: "krishna", Password: "1234", Department: "ist", Institution: "pvp"},
		{Username: "rajesh", Password: "5678", Department: "cse", Institution: "meip"},
		{Username: "priya", Password: "civil123", Department: "civil", Institution: "sjp"},
		{Username: "arjun", Password: "auto456", Department: "auto", Institution: "pvp"},
		{Username: "lakshmi", Password: "eee789", Department: "eee", Institution: "rrp"},
		{Username: "suresh", Password: "ece321", Department: "ece", Institution: "meip"},
		{Username: "kavya", Password: "ice654", Department: "ice", Institution: "sjp"},
		{Username: "vikram", Password: "mech987", Department: "mech", Institution: "rrp"},
	}
}

type storedCredential struct {
	hash    []byte
	account models.TeacherAccount
}

// StaticCredentialStore verifies teachers against an in-memory table of bcrypt hashes.
type StaticCredentialStore struct {
	entries map[string]storedCredential
	// dummy keeps unknown usernames on the same bcrypt cost as known ones.
	dummy []byte
}

// NewStaticCredentialStore hashes the given table. Unknown department codes are rejected.
func NewStaticCredentialStore(creds []TeacherCredential, cost int) (*StaticCredentialStore, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	store := &StaticCredentialStore{entries: make(map[string]storedCredential, len(creds))}
	for _, c := range creds {
		deptName, ok := models.DepartmentName(c.Department)
		if !ok {
			return nil, fmt.Errorf("credential %s: unknown department %q", c.Username, c.Department)
		}
		if _, ok := models.InstitutionName(c.Institution); !ok {
			return nil, fmt.Errorf("credential %s: unknown institution %q", c.Username, c.Institution)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash credential %s: %w", c.Username, err)
		}
		store.entries[strings.ToLower(c.Username)] = storedCredential{
			hash: hash,
			account: models.TeacherAccount{
				Username:       strings.ToLower(c.Username),
				Institution:    c.Institution,
				Department:     c.Department,
				DepartmentName: deptName,
			},
		}
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("unknown-user"), cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy credential: %w", err)
	}
	store.dummy = dummy
	return store, nil
}

// Verify checks username and password.
func (s *StaticCredentialStore) Verify(_ context.Context, username, password string) (*models.TeacherAccount, error) {
	entry, ok := s.entries[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		return nil, appErrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(entry.hash, []byte(password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	account := entry.account
	return &account, nil
}
