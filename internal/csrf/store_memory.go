package csrf

import (
	"context"
	"sync"
	"time"
)

type tokenEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded in-process token store with TTL handling.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]tokenEntry
	now    func() time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithClock overrides the store's time source for tests.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		tokens: make(map[string]tokenEntry),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	entry, ok := s.tokens[sessionID]
	s.mu.RUnlock()

	if !ok || s.now().After(entry.expiresAt) {
		return "", nil
	}
	return entry.token, nil
}

func (s *MemoryStore) SetNX(_ context.Context, sessionID, token string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.tokens[sessionID]; ok && s.now().Before(entry.expiresAt) {
		return entry.token, nil
	}

	s.tokens[sessionID] = tokenEntry{token: token, expiresAt: s.now().Add(ttl)}
	return token, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sessionID)
	return nil
}

// Cleanup drops expired tokens.
func (s *MemoryStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.tokens {
		if now.After(entry.expiresAt) {
			delete(s.tokens, id)
		}
	}
}

// StartJanitor cleans expired tokens until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
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
