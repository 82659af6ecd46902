package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindowLimiter counts events in a trailing window using a sorted set
// per key: expired members are trimmed, the remainder counted, and the new
// event admitted only under the limit. The three steps run as a Lua script so
// two concurrent requests for the same key cannot both pass the check.
type SlidingWindowLimiter struct {
	client *redis.Client
	prefix string
}

func NewSlidingWindowLimiter(client *redis.Client, prefix string) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{client: client, prefix: prefix}
}

var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// Allow records one event for key and reports whether it stays within limit
// events per window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	res, err := allowScript.Run(ctx, l.client,
		[]string{l.prefix + ":" + key},
		time.Now().UnixMilli(), window.Milliseconds(), limit, uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limiter: %w", err)
	}
	return res == 1, nil
}
