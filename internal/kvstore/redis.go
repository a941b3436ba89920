package kvstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore adapts a *redis.Client to the Store interface. It is the
// production backend: a shared client instance is handed to every
// component at startup and pooled connections are the client's concern.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials host (a "host:port" address, optionally with a
// redis:// scheme) and returns a Store backed by it.
func NewRedisStore(host string) *RedisStore {
	opts := &redis.Options{Addr: host}
	if parsed, err := redis.ParseURL(host); err == nil {
		opts = parsed
	}
	return &RedisStore{client: redis.NewClient(opts)}
}

// Ping verifies connectivity at startup; an unreachable store should
// abort the process rather than serve with a silently broken backend.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return s.client.IncrBy(ctx, key, delta).Result()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// go-redis v9 reports Redis' -2/-1 sentinels as raw durations (-2ns,
	// -1ns) rather than scaling them to seconds; accept either form.
	switch {
	case d == -2 || d == -2*time.Second:
		return 0, ErrNotFound
	case d == -1 || d == -1*time.Second:
		return NoTTL, nil
	default:
		return d, nil
	}
}

func (s *RedisStore) HGet(ctx context.Context, hash, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, hash, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
