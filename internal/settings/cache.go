package settings

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/safar/order-engine/internal/metrics"
	"go.uber.org/zap"
)

const cacheKey = "order-engine:settings:v1"

// CachedSource keeps the parsed snapshot in Redis for ttl. Any Redis failure
// falls through to the wrapped source.
type CachedSource struct {
	client *redis.Client
	next   Source
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedSource(client *redis.Client, next Source, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{client: client, next: next, ttl: ttl, logger: logger}
}

func (c *CachedSource) Snapshot(ctx context.Context) (Snapshot, error) {
	raw, err := c.client.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var s Snapshot
		if jsonErr := json.Unmarshal(raw, &s); jsonErr == nil {
			metrics.SettingsCacheLookups.WithLabelValues("hit").Inc()
			return s, nil
		}
		c.logger.Warn("discarding malformed cached settings")
	case errors.Is(err, redis.Nil):
		metrics.SettingsCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.SettingsCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("settings cache unavailable", zap.Error(err))
		return c.next.Snapshot(ctx)
	}

	s, err := c.next.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	if data, err := json.Marshal(s); err == nil {
		if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("store settings in cache", zap.Error(err))
		}
	}

	return s, nil
}

// Invalidate drops the cached snapshot so the next read hits the database.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, cacheKey).Err()
}
