package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitRepository keeps fixed window request counters in Redis.
type RateLimitRepository struct {
	client *redis.Client
	prefix string
}

// NewRateLimitRepository constructs a RateLimitRepository.
func NewRateLimitRepository(client *redis.Client) *RateLimitRepository {
	return &RateLimitRepository{client: client, prefix: "ratelimit:"}
}

// Increment bumps the counter for key and returns the new count together with
// the time left in the current window. The window starts on the first hit.
func (r *RateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := r.prefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate limit increment %s: %w", key, err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}
