// Package ratelimit implements windowed per-key rate limiting as a
// two-bucket sliding-window approximation (current + previous 60s window,
// weighted by how far into the current window we are), executed atomically
// via a Lua script against Redis/Valkey.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript increments the counter for the current 60s bucket and
// returns the weighted estimate of requests in the trailing window:
//
//	estimate = current_count + previous_count * (1 - elapsed/window)
//
// KEYS[1] = bucket key for the current window (key:<unix_minute>)
// KEYS[2] = bucket key for the previous window (key:<unix_minute - 1>)
// ARGV[1] = window size in seconds
// ARGV[2] = elapsed seconds into the current window
var slidingWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]) * 2)

local previous = tonumber(redis.call('GET', KEYS[2]) or '0')
local window = tonumber(ARGV[1])
local elapsed = tonumber(ARGV[2])
local weight = 1 - (elapsed / window)
if weight < 0 then weight = 0 end

local estimate = current + (previous * weight)
return estimate
`)

// Limiter enforces a per-key request budget within a rolling window.
type Limiter struct {
	rdb *redis.Client
}

// New creates a Limiter backed by the given Redis/Valkey client.
func New(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

// Allow reports whether a request under the given key is permitted against
// limit requests per window. Window is conventionally 60s.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	windowSeconds := int64(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	now := time.Now().Unix()
	currentBucket := now / windowSeconds
	elapsed := now - currentBucket*windowSeconds

	currentKey := fmt.Sprintf("ratelimit:%s:%d", key, currentBucket)
	previousKey := fmt.Sprintf("ratelimit:%s:%d", key, currentBucket-1)

	// Redis truncates Lua number replies to integers on the wire, so the
	// weighted estimate always comes back as an int64.
	estimate, err := slidingWindowScript.Run(ctx, l.rdb, []string{currentKey, previousKey}, windowSeconds, elapsed).Int64()
	if err != nil {
		return false, fmt.Errorf("ratelimit: run script: %w", err)
	}

	return estimate <= int64(limit), nil
}
