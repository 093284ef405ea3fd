package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/peachstate-cre/propquery/pkg/models"
)

const (
	cacheKeyPrefix = "propquery:similar"
	generationKey  = "propquery:similar:gen"
	cacheTTL       = 10 * time.Minute
)

// cacheBackend is the slice of redis.Client the cache needs.
type cacheBackend interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// cachedStore layers a Redis read-through cache over Similar. Every
// successful Store bumps a generation counter, which changes the key
// space and retires all cached result sets at once. Cache failures fall
// back to the inner store.
type cachedStore struct {
	inner  Store
	rdb    cacheBackend
	logger *zap.Logger
}

var _ Store = (*cachedStore)(nil)

// WithCache wraps a store with the Redis cache. A nil client returns
// the inner store unchanged.
func WithCache(inner Store, rdb *redis.Client, logger *zap.Logger) Store {
	if rdb == nil {
		return inner
	}
	return &cachedStore{
		inner:  inner,
		rdb:    rdb,
		logger: logger.Named("learning.cache"),
	}
}

func (s *cachedStore) Store(ctx context.Context, rec *models.FeedbackRecord) error {
	if err := s.inner.Store(ctx, rec); err != nil {
		return err
	}
	if err := s.rdb.Incr(ctx, generationKey).Err(); err != nil {
		s.logger.Warn("failed to invalidate similarity cache", zap.Error(err))
	}
	return nil
}

func (s *cachedStore) Similar(ctx context.Context, c *models.Constraints, limit int) ([]models.FeedbackRecord, error) {
	key, ok := s.cacheKey(ctx, c, limit)
	if ok {
		cached, err := s.rdb.Get(ctx, key).Result()
		switch {
		case err == nil:
			var records []models.FeedbackRecord
			if err := json.Unmarshal([]byte(cached), &records); err == nil {
				return records, nil
			}
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("similarity cache read failed", zap.Error(err))
		}
	}

	records, err := s.inner.Similar(ctx, c, limit)
	if err != nil {
		return nil, err
	}

	if ok {
		payload, err := json.Marshal(records)
		if err == nil {
			if err := s.rdb.Set(ctx, key, payload, cacheTTL).Err(); err != nil {
				s.logger.Warn("similarity cache write failed", zap.Error(err))
			}
		}
	}
	return records, nil
}

func (s *cachedStore) Stats(ctx context.Context) (*models.StatsReport, error) {
	return s.inner.Stats(ctx)
}

// cacheKey derives a generation-scoped key from the constraint shape.
// ok is false when the generation counter cannot be read, which
// disables caching for this call rather than serving stale data.
func (s *cachedStore) cacheKey(ctx context.Context, c *models.Constraints, limit int) (string, bool) {
	gen, err := s.rdb.Get(ctx, generationKey).Result()
	if errors.Is(err, redis.Nil) {
		gen = "0"
	} else if err != nil {
		s.logger.Warn("failed to read cache generation", zap.Error(err))
		return "", false
	}

	shape := "any"
	if c != nil {
		shape = strings.Join([]string{
			string(c.Aggregation),
			strings.Join(c.Counties, ","),
			strings.Join(c.PropertyTypes, ","),
		}, "|")
	}
	return fmt.Sprintf("%s:%s:%d:%s", cacheKeyPrefix, gen, limit, shape), true
}
