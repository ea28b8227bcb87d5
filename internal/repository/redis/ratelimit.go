package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rensmac/taskboard/internal/config"
)

const rateLimitKeyPrefix = "taskboard:ratelimit:"

// RateLimiter enforces a fixed-window per-caller request budget in Redis, so
// the limit holds across server instances the same way the comment bus does.
type RateLimiter struct {
	client *Client
	cfg    config.RateLimitConfig
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, cfg: cfg}
}

// Allow counts the request against the caller's current one-minute window.
// It returns whether the request fits the budget, the remaining budget, and
// when the window resets.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	const window = time.Minute

	bucket := rateLimitKeyPrefix + key
	resetAt := time.Now().Truncate(window).Add(window)

	pipe := r.client.rdb.Pipeline()
	incr := pipe.Incr(ctx, bucket)
	// Expiry only on first increment, so the window does not slide.
	pipe.ExpireNX(ctx, bucket, window)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to check rate limit: %w", err)
	}

	budget := int64(r.cfg.RequestsPerMinute + r.cfg.Burst)
	count := incr.Val()
	remaining := budget - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= budget, int(remaining), resetAt, nil
}

// Reset clears the caller's current window.
func (r *RateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.rdb.Del(ctx, rateLimitKeyPrefix+key).Err()
}
