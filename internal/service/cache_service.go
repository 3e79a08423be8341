package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/papers-hub-api/internal/models"
	appErrors "github.com/noah-isme/papers-hub-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches scope listings and records cache metrics.
// Cache errors never fail a request; they are logged and treated as misses.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// ScopeKey is the cache key of a scope listing.
func ScopeKey(scope models.Scope) string {
	return fmt.Sprintf("scope:%s:%s:%d", scope.Institution, scope.Department, scope.Term)
}

// GetScope loads a cached scope listing. It reports whether the cache was hit.
func (s *CacheService) GetScope(ctx context.Context, scope models.Scope) ([]models.Document, bool) {
	if !s.Enabled() {
		return nil, false
	}
	var docs []models.Document
	key := ScopeKey(scope)
	start := time.Now()
	err := s.repo.Get(ctx, key, &docs)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return docs, true
}

// SetScope stores a scope listing.
func (s *CacheService) SetScope(ctx context.Context, scope models.Scope, docs []models.Document) {
	if !s.Enabled() {
		return
	}
	key := ScopeKey(scope)
	start := time.Now()
	err := s.repo.Set(ctx, key, docs, s.defaultTTL)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateScope drops the cached listing of a scope.
func (s *CacheService) InvalidateScope(ctx context.Context, scope models.Scope) {
	if !s.Enabled() {
		return
	}
	key := ScopeKey(scope)
	if err := s.repo.DeleteByPattern(ctx, key); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", key), zap.Error(err))
	}
}
