package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter implements sliding window rate limiting using Redis
type RateLimiter struct {
	redisClient *redis.Client
	now         func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		now:         time.Now,
	}
}

// Allow records a request for clientID and reports whether it fits within
// limit requests per window, plus how many remain. Redis errors are
// returned; callers decide whether to fail open.
func (rl *RateLimiter) Allow(ctx context.Context, clientID string, limit int, window time.Duration) (bool, int, error) {
	key := rateLimitKey(clientID)
	now := rl.now()
	windowStart := now.Add(-window).UnixMicro()

	pipe := rl.redisClient.TxPipeline()

	// Remove expired entries
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))

	// Count current requests in window
	countCmd := pipe.ZCard(ctx, key)

	// Add current request; members must be unique or same-instant requests collapse
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: uuid.NewString(),
	})

	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return true, limit, fmt.Errorf("failed to record request for rate limiting: %w", err)
	}

	count := int(countCmd.Val())
	if count >= limit {
		return false, 0, nil
	}
	return true, limit - count - 1, nil
}

// Reset clears the window for clientID.
func (rl *RateLimiter) Reset(ctx context.Context, clientID string) error {
	return rl.redisClient.Del(ctx, rateLimitKey(clientID)).Err()
}

func rateLimitKey(clientID string) string {
	return fmt.Sprintf("rate_limit:%s", clientID)
}
