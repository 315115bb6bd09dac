package ratelimit

import (
	"context"
	"sync"
	"time"

	"contact-gateway/internal/models"
)

// MemoryStore is a mutex-guarded in-process bucket store with periodic cleanup
// of elapsed windows. Suitable for single-node deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*models.RateLimitBucket

	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithClock overrides the store's time source. Tests use it to step windows
// forward without sleeping.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func WithCleanupEvery(d time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		buckets:      make(map[string]*models.RateLimitBucket),
		idleTTL:      time.Hour,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Incr implements Store. Reset and increment happen under one lock acquisition
// so concurrent callers never lose counts.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.buckets[key]
	if !ok || bucket.Expired(now, window) {
		bucket = &models.RateLimitBucket{Key: key, WindowStart: now}
		s.buckets[key] = bucket
	}

	bucket.Count++
	return bucket.Count, bucket.Remaining(now, window), nil
}

// Cleanup drops buckets whose window ended longer than idleTTL ago.
func (s *MemoryStore) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, bucket := range s.buckets {
		if bucket.WindowStart.Before(cutoff) {
			delete(s.buckets, key)
		}
	}
}

// StartJanitor cleans idle buckets until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
