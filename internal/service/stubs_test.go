package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/pkg/mail"
	"github.com/noah-isme/papers-hub-api/pkg/storage"
)

type otpStoreStub struct {
	codes     []models.OneTimeCode
	createErr error
}

func (s *otpStoreStub) Create(ctx context.Context, code *models.OneTimeCode) error {
	if s.createErr != nil {
		return s.createErr
	}
	if code.ID == "" {
		code.ID = "otp-" + code.Code
	}
	s.codes = append(s.codes, *code)
	return nil
}

func (s *otpStoreStub) LatestUnverified(ctx context.Context, email string) (*models.OneTimeCode, error) {
	var latest *models.OneTimeCode
	for i := range s.codes {
		c := s.codes[i]
		if c.Email != email || c.Verified {
			continue
		}
		if latest == nil || c.IssuedAt.After(latest.IssuedAt) {
			latest = &c
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return latest, nil
}

func (s *otpStoreStub) MarkVerified(ctx context.Context, id string) error {
	for i := range s.codes {
		if s.codes[i].ID == id && !s.codes[i].Verified {
			s.codes[i].Verified = true
			return nil
		}
	}
	return sql.ErrNoRows
}

type failingMailer struct {
	err   error
	calls int
}

func (m *failingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.calls++
	return m.err
}

type memoryFiles struct {
	mu    sync.Mutex
	files map[string][]byte
	sizes map[string]int64
}

func newMemoryFiles() *memoryFiles {
	return &memoryFiles{files: map[string][]byte{}, sizes: map[string]int64{}}
}

func (m *memoryFiles) put(key string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = content
	m.sizes[key] = int64(len(content))
}

func (m *memoryFiles) SaveStream(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.put(key, content)
	return int64(len(content)), nil
}

func (m *memoryFiles) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *memoryFiles) Size(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	size, ok := m.sizes[key]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return size, nil
}

func (m *memoryFiles) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	delete(m.sizes, key)
	return nil
}

func (m *memoryFiles) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[key]
	return ok
}

type subscriptionStoreStub struct {
	prefs     map[string]models.SubscriptionPreference
	upserts   int
	upsertErr error
}

func newSubscriptionStoreStub() *subscriptionStoreStub {
	return &subscriptionStoreStub{prefs: map[string]models.SubscriptionPreference{}}
}

func prefKey(email string, scope models.Scope) string {
	return email + "|" + scope.Institution + "|" + scope.Department + "|" + strconv.Itoa(scope.Term)
}

func (s *subscriptionStoreStub) Upsert(ctx context.Context, pref *models.SubscriptionPreference) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts++
	scope := models.Scope{Institution: pref.Institution, Department: pref.Department, Term: pref.Term}
	key := prefKey(pref.Email, scope)
	existing, ok := s.prefs[key]
	if ok {
		existing.WantsNotifications = true
		existing.LastViewed = time.Now()
		s.prefs[key] = existing
		return nil
	}
	pref.WantsNotifications = true
	s.prefs[key] = *pref
	return nil
}

func (s *subscriptionStoreStub) RecipientsFor(ctx context.Context, scope models.Scope) ([]string, error) {
	out := []string{}
	for _, p := range s.prefs {
		if p.Institution == scope.Institution && p.Department == scope.Department && p.Term == scope.Term && p.WantsNotifications {
			out = append(out, p.Email)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *subscriptionStoreStub) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	var removed int64
	for k, p := range s.prefs {
		if p.Email == email {
			delete(s.prefs, k)
			removed++
		}
	}
	return removed, nil
}

func (s *subscriptionStoreStub) ListByEmail(ctx context.Context, email string) ([]models.SubscriptionPreference, error) {
	out := []models.SubscriptionPreference{}
	for _, p := range s.prefs {
		if p.Email == email {
			out = append(out, p)
		}
	}
	return out, nil
}

type auditLoggerStub struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

type recordingNotifier struct {
	calls []notificationJob
}

func (n *recordingNotifier) Notify(ctx context.Context, doc models.Document, recipients []string) {
	n.calls = append(n.calls, notificationJob{Document: doc, Recipients: recipients})
}

type documentStoreStub struct {
	docs      map[string]models.Document
	listCalls int
	createErr error
}

func newDocumentStoreStub() *documentStoreStub {
	return &documentStoreStub{docs: map[string]models.Document{}}
}

func (s *documentStoreStub) Create(ctx context.Context, doc *models.Document) error {
	if s.createErr != nil {
		return s.createErr
	}
	if doc.ID == "" {
		doc.ID = "doc-" + doc.Title
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	s.docs[doc.ID] = *doc
	return nil
}

func (s *documentStoreStub) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	s.listCalls++
	out := []models.Document{}
	for _, d := range s.docs {
		if filter.Institution != "" && d.Institution != filter.Institution {
			continue
		}
		if filter.Department != "" && d.Department != filter.Department {
			continue
		}
		if filter.Term > 0 && d.Term != filter.Term {
			continue
		}
		if filter.UploaderID != "" && d.UploaderID != filter.UploaderID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *documentStoreStub) FindOwned(ctx context.Context, id, uploaderID, institution, department string) (*models.Document, error) {
	d, ok := s.docs[id]
	if !ok || d.UploaderID != uploaderID || d.Institution != institution || d.Department != department {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func (s *documentStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.docs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.docs, id)
	return nil
}

func (s *documentStoreStub) CountByCategory(ctx context.Context, institution, department string) (map[string]int, error) {
	out := map[string]int{}
	for _, d := range s.docs {
		if d.Institution == institution && d.Department == department {
			out[d.Category]++
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")

type memoryRevocations struct {
	mu      sync.Mutex
	tokens  map[string]time.Time
	kinds   map[string]string
	failErr error
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{tokens: map[string]time.Time{}, kinds: map[string]string{}}
}

func (m *memoryRevocations) Revoke(ctx context.Context, token, kind string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return false, m.failErr
	}
	if _, ok := m.tokens[token]; ok {
		return false, nil
	}
	m.tokens[token] = expiresAt
	m.kinds[token] = kind
	return true, nil
}

func (m *memoryRevocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return false, m.failErr
	}
	_, ok := m.tokens[token]
	return ok, nil
}

func (m *memoryRevocations) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for token, expires := range m.tokens {
		if expires.Before(before) {
			delete(m.tokens, token)
			delete(m.kinds, token)
			removed++
		}
	}
	return removed, nil
}
