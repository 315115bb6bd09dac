package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps fixed-window counters in redis: INCR plus an expiry set
// only when the key is first created, so the window start is pinned to the
// first request. INCR is atomic server-side, which satisfies the no-lost-update
// contract across gateway instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr implements Store.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	pttl := pipe.PTTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate limit incr %s: %w", key, err)
	}

	remaining := pttl.Val()
	if remaining < 0 {
		// PTTL can race the ExpireNX within the same pipeline on old servers;
		// fall back to the full window.
		remaining = window
	}

	return incr.Val(), remaining, nil
}
