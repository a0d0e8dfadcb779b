package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// resourceLimitLuaScript atomically checks a single (channel, resource)
// counter for the current UTC day against its cap and increments only if
// still under cap (spec.md §4.7 rate-limit table). Single-counter version
// of the teacher's multi-bucket `multiLimitLuaScript`, since Agency OS's
// limit is per-resource-per-day rather than per-second/minute/day.
const resourceLimitLuaScript = `
local key = KEYS[1]
local cap = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current + 1 > cap then
    return {0, current}
end

local newVal = redis.call("INCR", key)
if newVal == 1 then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}
`

// RateLimiter enforces the per-resource daily send caps of spec.md §4.7
// with a single atomic Redis Lua script, preventing the race window of a
// GET-then-INCR pattern under concurrent workers.
type RateLimiter struct {
	redis  *redis.Client
	script *redis.Script
}

// NewRateLimiter builds a RateLimiter against an existing Redis client.
func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient, script: redis.NewScript(resourceLimitLuaScript)}
}

// resourceKey identifies one rate-limited unit: a single mailbox,
// LinkedIn seat, phone number, or sender domain, bucketed per UTC day.
func resourceKey(channel, resource string, day time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%s", channel, resource, day.UTC().Format("2006-01-02"))
}

// Acquire attempts to claim one send token for (channel, resource) today.
// Returns false, no error, when the cap has already been reached — the
// caller re-queues the touch for the next day's send window (spec.md
// §4.7: "failure re-queues the touch for the next day at the client's
// send window start").
func (r *RateLimiter) Acquire(ctx context.Context, channel, resource string, cap int) (bool, error) {
	if cap <= 0 {
		return false, nil
	}
	key := resourceKey(channel, resource, time.Now())
	result, err := r.script.Run(ctx, r.redis, []string{key}, 1, 93600).Slice()
	if err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	allowed, ok := result[0].(int64)
	if !ok {
		return false, fmt.Errorf("rate limit script returned unexpected type %T", result[0])
	}
	return allowed == 1, nil
}

// CurrentUsage reports today's count for (channel, resource), for
// dashboards and ops tooling.
func (r *RateLimiter) CurrentUsage(ctx context.Context, channel, resource string) (int64, error) {
	key := resourceKey(channel, resource, time.Now())
	n, err := r.redis.Get(ctx, key).Int64()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("get current usage: %w", err)
	}
	return n, nil
}
