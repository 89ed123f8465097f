package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"mercator-hq/aegis/pkg/config"
)

// RedisStore counts requests in Redis so that every gateway instance shares
// the same windows. Each key/window pair maps to one Redis key:
//
//	<prefix>:<client key>:<window index>
//
// incremented with INCR and expired with PEXPIRE in one MULTI/EXEC round
// trip. Redis provides the atomicity.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key namespace. Surrounding colons are trimmed.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

// NewRedisStore creates a store on top of an existing client. The caller
// owns the client and closes it.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "aegis:ratelimit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (Window, error) {
	index, start, reset := windowBounds(now, window)
	redisKey := fmt.Sprintf("%s:%s:%d", s.prefix, key, index)

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Window{}, fmt.Errorf("redis increment %q: %w", redisKey, err)
	}

	return Window{Count: incr.Val(), Start: start, Reset: reset}, nil
}

// Ping checks connectivity to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Connect creates a Redis client from cfg and verifies it answers a PING
// within cfg.DialTimeout. The gateway treats a failure here as fatal.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = config.DefaultRedisDialTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
	}

	return rdb, nil
}
