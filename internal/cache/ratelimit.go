package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitUserPrefix = "ratelimit:user:"
	rateLimitIPPrefix   = "ratelimit:ip:"
)

// RateLimitResult is the outcome of one token bucket draw.
type RateLimitResult struct {
	Allowed   bool
	Remaining int64
	// ResetAt is when the bucket will be full again.
	ResetAt    time.Time
	RetryAfter time.Duration
}

// bucket describes a token bucket refilled at perSecond up to burst tokens.
type bucket struct {
	key       string
	perSecond float64
	burst     int
}

// idleTTL keeps a key only as long as it takes an empty bucket to refill.
func (b bucket) idleTTL() time.Duration {
	d := time.Duration(float64(b.burst) / b.perSecond * float64(time.Second))
	if d < time.Second {
		return time.Second
	}
	return d + time.Second
}

func (b bucket) unlimited() *RateLimitResult {
	return &RateLimitResult{Allowed: true, Remaining: int64(b.burst), ResetAt: time.Now()}
}

// tokenBucketScript refills and draws atomically, using the Redis clock so
// every API node agrees on elapsed time. Times are in milliseconds.
//
// Returns {allowed, remaining, retry_after_ms, full_in_ms}.
var tokenBucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1]) / 1000
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call('TIME')
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
tokens = math.min(burst, tokens + math.max(0, now - ts) * rate)

local allowed = 0
local retry = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	retry = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], ttl)

return {allowed, math.floor(tokens), retry, math.ceil((burst - tokens) / rate)}
`)

// CheckUserRateLimit draws from the API bucket of an authenticated user.
// A zero rate disables the limit.
func (c *Cache) CheckUserRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*RateLimitResult, error) {
	b := bucket{key: rateLimitUserPrefix + userID, perSecond: float64(ratePerMinute) / 60, burst: burst}
	if ratePerMinute <= 0 {
		return b.unlimited(), nil
	}
	return c.draw(ctx, b)
}

// CheckIPRateLimit draws from the bucket of a client IP, used on the
// unauthenticated register and login endpoints. Raw IPs are never stored.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	b := bucket{key: rateLimitIPPrefix + hashIP(ip), perSecond: float64(ratePerSecond), burst: burst}
	if ratePerSecond <= 0 {
		return b.unlimited(), nil
	}
	return c.draw(ctx, b)
}

func (c *Cache) draw(ctx context.Context, b bucket) (*RateLimitResult, error) {
	burst := b.burst
	if burst < 1 {
		burst = 1
	}

	out, err := tokenBucketScript.Run(ctx, c.client,
		[]string{b.key},
		b.perSecond, burst, b.idleTTL().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("token bucket %s: %w", b.key, err)
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("token bucket %s: unexpected reply %v", b.key, out)
	}

	return &RateLimitResult{
		Allowed:    out[0] == 1,
		Remaining:  out[1],
		RetryAfter: time.Duration(out[2]) * time.Millisecond,
		ResetAt:    time.Now().Add(time.Duration(out[3]) * time.Millisecond),
	}, nil
}

func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
