package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/upb/llm-router/services/providers"
)

const redisKeyPrefix = "cache:response:"

// RedisStore is a Store backed by Redis, for deployments running more
// than one engine instance. Redis applies the TTL itself, so expiry never
// needs an explicit check on read.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore creates a RedisStore from a Redis URL.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}, nil
}

// Get retrieves a cached response. Redis errors are treated as a miss so
// a cache outage degrades to fresh provider calls rather than failures.
func (s *RedisStore) Get(ctx context.Context, key Key) (*providers.Response, bool) {
	val, err := s.client.Get(ctx, redisKeyPrefix+string(key)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("cache read failed", zap.Error(err))
		return nil, false
	}

	var resp providers.Response
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		s.logger.Warn("cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return &resp, true
}

// Put stores a response with the configured TTL.
func (s *RedisStore) Put(ctx context.Context, key Key, resp *providers.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("cache serialize failed", zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, redisKeyPrefix+string(key), data, s.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
