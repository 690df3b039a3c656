package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore wraps a redis client used for RD caching and per-key usage
// accounting.
type RedisStore struct {
	Client *redis.Client
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// GetCachedRD returns the cached referring-domains count for a canonical
// target key. The boolean is false on a cache miss.
func (r *RedisStore) GetCachedRD(ctx context.Context, key string) (float64, bool, error) {
	val, err := r.Client.Get(ctx, "rd:"+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	rd, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt rd cache entry %q: %w", val, err)
	}
	return rd, true, nil
}

// SetCachedRD stores a referring-domains count under a canonical target key.
func (r *RedisStore) SetCachedRD(ctx context.Context, key string, rd float64, ttl time.Duration) error {
	return r.Client.Set(ctx, "rd:"+key, strconv.FormatFloat(rd, 'f', -1, 64), ttl).Err()
}

// IncrementKeyUsage increments the daily request counter for an API key.
// A 48h TTL is applied on first set. Returns the current count.
func (r *RedisStore) IncrementKeyUsage(ctx context.Context, keyID string) (int64, error) {
	key := fmt.Sprintf("usage:key:%s:%s", keyID, time.Now().UTC().Format("2006-01-02"))
	val, err := r.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		r.Client.Expire(ctx, key, 48*time.Hour)
	}
	return val, nil
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
