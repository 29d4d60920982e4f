package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisRateLimiter keeps the sliding window in a sorted set scored by
// timestamp, one set per phone number.
type RedisRateLimiter struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisRateLimiter(client *redis.Client, logger *logrus.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		logger: logger,
	}
}

func (l *RedisRateLimiter) Admit(ctx context.Context, phone string) (bool, error) {
	key := fmt.Sprintf("otp:rl:%s", phone)
	now := time.Now()
	cutoff := now.Add(-rateLimitWindow)

	if err := l.client.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff.UnixNano(), 10)).Err(); err != nil {
		l.logger.WithError(err).Error("Failed to trim rate limit window in Redis")
		return false, fmt.Errorf("failed to trim rate limit window: %w", err)
	}

	count, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count rate limit attempts: %w", err)
	}

	if count >= rateLimitMax {
		return false, nil
	}

	member := redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	}
	if err := l.client.ZAdd(ctx, key, member).Err(); err != nil {
		return false, fmt.Errorf("failed to record rate limit attempt: %w", err)
	}

	if err := l.client.Expire(ctx, key, rateLimitWindow).Err(); err != nil {
		return false, fmt.Errorf("failed to expire rate limit key: %w", err)
	}

	return true, nil
}

func (l *RedisRateLimiter) EvictStale(ctx context.Context, now time.Time) error {
	// Entries are trimmed on each Admit and the key carries a window-length
	// TTL, so there is nothing to sweep.
	return nil
}
