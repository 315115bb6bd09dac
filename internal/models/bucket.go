package models

import "time"

// RateLimitBucket is one fixed-window counter for a (identifier, scope, tier)
// key. Stores mutate it atomically; the count resets once the window elapses.
type RateLimitBucket struct {
	Key         string    `json:"key"`
	WindowStart time.Time `json:"windowStart"`
	Count       int64     `json:"count"`
	Tier        string    `json:"tier"`
}

// Expired reports whether the bucket's window has fully elapsed at now.
func (b *RateLimitBucket) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(b.WindowStart) >= window
}

// Remaining returns the time left until the bucket resets, floored at zero.
func (b *RateLimitBucket) Remaining(now time.Time, window time.Duration) time.Duration {
	remaining := window - now.Sub(b.WindowStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}
