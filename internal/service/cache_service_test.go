package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/papers-hub-api/internal/models"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
)

type memoryCacheRepo struct {
	values map[string][]byte
	getErr error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.values {
		if k == pattern || (strings.HasSuffix(pattern, "*") && strings.HasPrefix(k, prefix)) {
			delete(m.values, k)
		}
	}
	return nil
}

func TestCacheServiceScopeRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	scope := models.Scope{Institution: "meip", Department: "cse", Term: 3}

	_, hit := svc.GetScope(ctx, scope)
	assert.False(t, hit)

	svc.SetScope(ctx, scope, []models.Document{{ID: "doc-1", Title: "Unit 1"}})
	docs, hit := svc.GetScope(ctx, scope)
	assert.True(t, hit)
	assert.Equal(t, "Unit 1", docs[0].Title)

	svc.InvalidateScope(ctx, scope)
	_, hit = svc.GetScope(ctx, scope)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)
	scope := models.Scope{Institution: "meip", Department: "cse", Term: 3}

	svc.SetScope(context.Background(), scope, []models.Document{{ID: "doc-1"}})
	assert.Empty(t, repo.values)
	_, hit := svc.GetScope(context.Background(), scope)
	assert.False(t, hit)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceErrorsAreMisses(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errBoom
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	_, hit := svc.GetScope(context.Background(), models.Scope{Institution: "meip", Department: "cse", Term: 1})
	assert.False(t, hit)
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "scope:meip:cse:3", ScopeKey(models.Scope{Institution: "meip", Department: "cse", Term: 3}))
}
