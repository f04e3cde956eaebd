package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills capacity tokens per window and takes one.
// Returns 1 when the request is allowed.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local window_ms = tonumber(ARGV[3])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
if elapsed >= window_ms then
	local windows = math.floor(elapsed / window_ms)
	tokens = math.min(capacity, tokens + windows * capacity)
	last_refill = last_refill + windows * window_ms
end

local allowed = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('PEXPIRE', key, window_ms * 2)
return allowed
`)

// RedisRateLimiter is a token bucket shared by every instance using the same
// Redis.
type RedisRateLimiter struct {
	client   redis.Scripter
	prefix   string
	capacity int
	window   time.Duration
}

func NewRedisRateLimiter(client redis.Scripter, prefix string, capacity int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		prefix:   prefix,
		capacity: capacity,
		window:   window,
	}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}

	allowed, err := tokenBucketScript.Run(ctx, rl.client,
		[]string{rl.prefix + ":" + key},
		time.Now().UnixMilli(), rl.capacity, rl.window.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script failed: %w", err)
	}
	return allowed == 1, nil
}

func (rl *RedisRateLimiter) RetryAfter() time.Duration {
	return rl.window
}

func (rl *RedisRateLimiter) Stop() {}
