package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkScript applies the fixed-window algorithm atomically.
//
// KEYS[1] counter key, ARGV[1] max requests, ARGV[2] window in milliseconds.
// Returns {admitted, count, pttl}. A denied call leaves the counter untouched.
const checkScript = `
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
local ttl = redis.call("PTTL", KEYS[1])

if count == 0 or ttl < 0 then
  redis.call("SET", KEYS[1], "1", "PX", ARGV[2])
  return {1, 1, window}
end

if count >= max then
  return {0, count, ttl}
end

count = redis.call("INCR", KEYS[1])
return {1, count, ttl}
`

var checkLua = redis.NewScript(checkScript)

// RedisLimiter shares fixed-window counters between service instances.
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed [Limiter]. prefix namespaces the keys.
func NewRedisLimiter(client redis.UniversalClient, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisLimiter{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Check implements Limiter. Redis failures are wrapped in ErrBackendUnavailable.
func (l *RedisLimiter) Check(ctx context.Context, key string, opts Options) (Result, error) {
	if key == "" {
		return Result{}, ErrEmptyKey
	}
	opts, err := opts.Normalize()
	if err != nil {
		return Result{}, err
	}

	windowMS := opts.Window.Milliseconds()
	if windowMS < 1 {
		windowMS = 1
	}

	reply, err := checkLua.Run(ctx, l.redis, []string{l.key(key)}, opts.MaxRequests, windowMS).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(reply) != 3 {
		return Result{}, fmt.Errorf("%w: unexpected script reply %v", ErrBackendUnavailable, reply)
	}

	admitted, count, ttl := reply[0] == 1, int(reply[1]), reply[2]
	res := Result{
		Success: admitted,
		Limit:   opts.MaxRequests,
		ResetAt: l.now().Add(time.Duration(ttl) * time.Millisecond),
	}
	if admitted {
		res.Remaining = opts.MaxRequests - count
	}

	return res, nil
}

// Reset clears the counter for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (l *RedisLimiter) key(key string) string {
	return l.prefix + ":" + key
}
