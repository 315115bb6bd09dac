package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"contact-gateway/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStore_Incr_CountsWithinWindow(t *testing.T) {
	store, _ := newMiniredisStore(t)

	for want := int64(1); want <= 3; want++ {
		count, remaining, err := store.Incr(context.Background(), "rl:submit:burst:a", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
		assert.Greater(t, remaining, time.Duration(0))
		assert.LessOrEqual(t, remaining, time.Minute)
	}
}

func TestRedisStore_Incr_WindowExpiryPinnedToFirstRequest(t *testing.T) {
	store, mr := newMiniredisStore(t)

	_, _, err := store.Incr(context.Background(), "rl:submit:burst:a", time.Minute)
	require.NoError(t, err)

	mr.FastForward(30 * time.Second)

	_, remaining, err := store.Incr(context.Background(), "rl:submit:burst:a", time.Minute)
	require.NoError(t, err)
	assert.LessOrEqual(t, remaining, 30*time.Second, "expiry must not be refreshed by later hits")
}

func TestRedisStore_Incr_ResetsAfterWindow(t *testing.T) {
	store, mr := newMiniredisStore(t)

	count, _, err := store.Incr(context.Background(), "rl:submit:burst:a", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	mr.FastForward(61 * time.Second)

	count, _, err = store.Incr(context.Background(), "rl:submit:burst:a", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "expired key restarts the window")
}

func TestRedisStore_Incr_SeparateKeysSeparateBuckets(t *testing.T) {
	store, _ := newMiniredisStore(t)

	count, _, err := store.Incr(context.Background(), "rl:submit:burst:a", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	count, _, err = store.Incr(context.Background(), "rl:submit:hourly:a", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLimiter_RedisStoreUnreachable_FailsClosed(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectTxPipeline()
	mock.ExpectIncr("rl:submit:burst:a").SetErr(errors.New("connection refused"))

	limiter := NewLimiter(NewRedisStore(client), []Tier{{Name: "burst", MaxRequests: 100, Window: time.Minute}}, logger.NewNoOpLogger())

	decision, err := limiter.Check(context.Background(), "a", "submit")
	assert.Error(t, err)
	assert.False(t, decision.Allowed)
}
