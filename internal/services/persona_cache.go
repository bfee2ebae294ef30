package services

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PersonaCache stores the fetched persona between chat turns.
type PersonaCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisPersonaCache keeps the persona under a single Redis key with a TTL.
type RedisPersonaCache struct {
	client *redis.Client
}

func NewRedisPersonaCache(client *redis.Client) *RedisPersonaCache {
	return &RedisPersonaCache{client: client}
}

func (c *RedisPersonaCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisPersonaCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachedPersonaLoader serves the persona from cache until the TTL expires.
// Fetch failures are always surfaced; stale content is never served.
type CachedPersonaLoader struct {
	next   PersonaLoader
	cache  PersonaCache
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedPersonaLoader(next PersonaLoader, cache PersonaCache, key string, ttl time.Duration, logger *zap.Logger) *CachedPersonaLoader {
	return &CachedPersonaLoader{
		next:   next,
		cache:  cache,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *CachedPersonaLoader) LoadPersona(ctx context.Context) (string, error) {
	persona, ok, err := c.cache.Get(ctx, c.key)
	if err != nil {
		c.logger.Warn("persona cache read failed", zap.String("key", c.key), zap.Error(err))
	} else if ok {
		return persona, nil
	}

	persona, err = c.next.LoadPersona(ctx)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, c.key, persona, c.ttl); err != nil {
		c.logger.Warn("persona cache write failed", zap.String("key", c.key), zap.Error(err))
	}
	return persona, nil
}
