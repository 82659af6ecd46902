package otp

import (
	"context"
	"time"
)

type IDGenerator interface {
	NewID() string
}

// RateLimiter answers whether one more issuance is allowed for key within a
// trailing window. Implementations must count the trailing window, not fixed
// calendar buckets.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
