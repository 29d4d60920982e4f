package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/otpgate/otpgate/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisOTPStore is an alternative OTPStore backend for deployments that need
// shared state across instances. Records expire via the native Redis TTL, so
// EvictExpired is a no-op.
type RedisOTPStore struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisOTPStore(client *redis.Client, logger *logrus.Logger) *RedisOTPStore {
	return &RedisOTPStore{
		client: client,
		logger: logger,
	}
}

func (s *RedisOTPStore) Issue(ctx context.Context, phone, code string, ttl time.Duration) error {
	now := time.Now()
	record := models.OTPRecord{
		Code:      code,
		Phone:     phone,
		Attempts:  0,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	dataJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal OTP record: %w", err)
	}

	key := fmt.Sprintf("otp:%s", phone)
	if err := s.client.Set(ctx, key, dataJSON, ttl).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to store OTP in Redis")
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	return nil
}

func (s *RedisOTPStore) Lookup(ctx context.Context, phone string) (*models.OTPRecord, error) {
	key := fmt.Sprintf("otp:%s", phone)

	dataJSON, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to get OTP from Redis")
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}

	var record models.OTPRecord
	if err := json.Unmarshal([]byte(dataJSON), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OTP record: %w", err)
	}

	return &record, nil
}

func (s *RedisOTPStore) EvictExpired(ctx context.Context, now time.Time) error {
	// Redis expires keys on its own.
	return nil
}
