// Package ratelimit implements fixed-window, multi-tier request limiting.
//
// A request must satisfy every configured tier; the retry-after hint reported
// on denial is the longest remaining window among the exceeded tiers. Counter
// state lives behind the Store interface so it can be backed by an in-process
// map or by redis, and swapped in tests.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"contact-gateway/internal/common/config"
	"contact-gateway/internal/common/errors"
	"contact-gateway/internal/common/logger"
	"contact-gateway/internal/common/metrics"
)

// Tier is one (max requests, window) rule.
type Tier struct {
	Name        string
	MaxRequests int64
	Window      time.Duration
}

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed bool
	// RetryAfter is the recommended wait before retrying. Zero when allowed.
	RetryAfter time.Duration
}

// Store provides atomic fixed-window counters. Incr must increment the bucket
// for key, resetting it first if its window has elapsed, and return the
// post-increment count together with the time remaining in the window. Two
// concurrent calls for the same key must never observe the same count.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

// Limiter checks an identifier against every configured tier.
type Limiter struct {
	store  Store
	tiers  []Tier
	logger logger.Logger
}

func NewLimiter(store Store, tiers []Tier, log logger.Logger) *Limiter {
	return &Limiter{
		store:  store,
		tiers:  tiers,
		logger: log,
	}
}

// TiersFromConfig converts the config representation into limiter tiers.
func TiersFromConfig(cfgs []config.RateLimitTierConfig) []Tier {
	tiers := make([]Tier, 0, len(cfgs))
	for _, c := range cfgs {
		tiers = append(tiers, Tier{
			Name:        c.Name,
			MaxRequests: int64(c.MaxRequests),
			Window:      config.GetDuration(c.Window),
		})
	}
	return tiers
}

// Check consumes one request slot for identifier under scope. Every tier is
// always incremented, even when an earlier tier already denied, so parallel
// windows stay in sync. A store failure denies the request: the limiter
// protects security-sensitive endpoints and must fail closed.
func (l *Limiter) Check(ctx context.Context, identifier, scope string) (Decision, error) {
	denied := false
	var retryAfter time.Duration

	for _, tier := range l.tiers {
		key := bucketKey(identifier, scope, tier.Name)

		count, remaining, err := l.store.Incr(ctx, key, tier.Window)
		if err != nil {
			l.logger.Error("rate limit store unreachable, denying request", map[string]interface{}{
				"scope":      scope,
				"identifier": identifier,
				"tier":       tier.Name,
				"error":      err.Error(),
			})
			return Decision{Allowed: false, RetryAfter: tier.Window}, errors.NewRateLimitStoreUnreachableError(err)
		}

		if count > tier.MaxRequests {
			denied = true
			if remaining > retryAfter {
				retryAfter = remaining
			}
			metrics.RateLimitDenials.WithLabelValues(scope, tier.Name).Inc()
		}
	}

	if denied {
		l.logger.Warn("request denied by rate limiter", map[string]interface{}{
			"scope":      scope,
			"identifier": identifier,
			"retryAfter": retryAfter.String(),
		})
		return Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}

	return Decision{Allowed: true}, nil
}

func bucketKey(identifier, scope, tier string) string {
	return fmt.Sprintf("rl:%s:%s:%s", scope, tier, identifier)
}
