// Package csrf issues and validates anti-forgery tokens bound to a session.
//
// A token is generated once per session and compared on every mutating
// request. Both operations are synchronous; validation never errors for a
// missing token, it simply reports false.
package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"contact-gateway/internal/common/logger"
)

const tokenBytes = 32

// TokenStore persists session-bound tokens. SetNX stores the token only when
// the session has none yet and returns the token that ended up stored, so
// concurrent first requests for one session converge on a single token.
type TokenStore interface {
	Get(ctx context.Context, sessionID string) (string, error)
	SetNX(ctx context.Context, sessionID, token string, ttl time.Duration) (stored string, err error)
	Delete(ctx context.Context, sessionID string) error
}

// Guard issues and validates per-session forgery tokens.
type Guard struct {
	store  TokenStore
	ttl    time.Duration
	logger logger.Logger
}

func NewGuard(store TokenStore, ttl time.Duration, log logger.Logger) *Guard {
	return &Guard{
		store:  store,
		ttl:    ttl,
		logger: log,
	}
}

// IssueToken returns the session's token, generating one if the session does
// not have a live token yet. Repeated calls within the TTL return the same
// value.
func (g *Guard) IssueToken(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("issue token: empty session id")
	}

	existing, err := g.store.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	if existing != "" {
		return existing, nil
	}

	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	stored, err := g.store.SetNX(ctx, sessionID, token, g.ttl)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return stored, nil
}

// ValidateRequest reports whether presented matches the token bound to
// sessionID. The comparison is constant-time. Missing, expired, and
// mismatched tokens all yield false without an error.
func (g *Guard) ValidateRequest(ctx context.Context, sessionID, presented string) bool {
	if sessionID == "" || presented == "" {
		return false
	}

	expected, err := g.store.Get(ctx, sessionID)
	if err != nil {
		g.logger.Error("token store lookup failed, rejecting request", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		return false
	}
	if expected == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

// Revoke drops the session's token, forcing a fresh one on next issue.
func (g *Guard) Revoke(ctx context.Context, sessionID string) error {
	return g.store.Delete(ctx, sessionID)
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
