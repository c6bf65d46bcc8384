package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"newsletter/internal/ratelimit/models"
)

const redisKeyPrefix = "newsletter:ratelimit:"

// RedisBucketStore implements a fixed window limiter shared by every replica.
// Each window is one key holding a counter that expires with the window.
type RedisBucketStore struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedis constructs a Redis-backed bucket store.
func NewRedis(client redis.Cmdable) *RedisBucketStore {
	return &RedisBucketStore{client: client, now: time.Now}
}

// Allow increments the counter for the current window and reports whether
// the request fits within limit.
func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := s.now()
	windowStart := now.Truncate(window)
	resetAt := windowStart.Add(window)
	redisKey := fmt.Sprintf("%s%s:%d", redisKeyPrefix, key, windowStart.Unix())

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit incr: %w", err)
	}

	count := int(incr.Val())
	if count > limit {
		return models.Denied(limit, now, resetAt), nil
	}
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears every window counter for key.
func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	pattern := redisKeyPrefix + key + ":*"
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("rate limit reset: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}
