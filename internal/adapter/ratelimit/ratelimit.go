// Package ratelimit implements a sliding-window request limiter whose window
// bookkeeping lives in Redis.
//
// Every key owns a sorted set of accepted request timestamps. A Lua script
// prunes timestamps older than the window, counts the rest and records the
// new request only when the count is below the limit, so concurrent callers
// sharing one Redis never admit more than the limit.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const keyPrefix = "ratelimit:"

var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
if count >= limit then
	return {0, count}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)

return {1, count + 1}
`)

// SlidingWindow admits at most limit requests per key within any window-long interval.
type SlidingWindow struct {
	client redis.Scripter
	limit  int
	window time.Duration
	now    func() time.Time
}

type Option func(*SlidingWindow)

// WithClock replaces time.Now as the source of request timestamps.
func WithClock(now func() time.Time) Option {
	return func(sw *SlidingWindow) {
		sw.now = now
	}
}

func NewSlidingWindow(client redis.Scripter, limit int, window time.Duration, opts ...Option) *SlidingWindow {
	sw := &SlidingWindow{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(sw)
	}

	return sw
}

// Allow records a request for key and reports whether it fits in the window.
// Rejected requests are not recorded.
func (sw *SlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	const op = "adapter.ratelimit.SlidingWindow.Allow"

	now := sw.now().UnixMilli()

	suffix, err := gonanoid.New(8)
	if err != nil {
		return false, fmt.Errorf("%s: failed to generate window member: %w", op, err)
	}
	member := strconv.FormatInt(now, 10) + "-" + suffix

	res, err := slidingWindowScript.Run(ctx, sw.client,
		[]string{keyPrefix + key},
		now, sw.window.Milliseconds(), sw.limit, member,
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("%s: failed to evaluate window: %w", op, err)
	}

	if len(res) != 2 {
		return false, fmt.Errorf("%s: unexpected script result %v", op, res)
	}

	return res[0] == 1, nil
}
