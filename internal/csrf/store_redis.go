package csrf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session tokens in redis under a csrf: prefix. SET NX plus a
// follow-up GET makes concurrent first issuances converge on one token across
// gateway instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (string, error) {
	val, err := s.client.Get(ctx, tokenKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("token get %s: %w", sessionID, err)
	}
	return val, nil
}

func (s *RedisStore) SetNX(ctx context.Context, sessionID, token string, ttl time.Duration) (string, error) {
	key := tokenKey(sessionID)

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("token setnx %s: %w", sessionID, err)
	}
	if ok {
		return token, nil
	}

	// Another request won the race; return the token it stored.
	existing, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("token get after setnx %s: %w", sessionID, err)
	}
	return existing, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, tokenKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("token delete %s: %w", sessionID, err)
	}
	return nil
}

func tokenKey(sessionID string) string {
	return "csrf:" + sessionID
}
