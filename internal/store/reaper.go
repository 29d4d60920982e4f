package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const reapInterval = 5 * time.Minute

// Reaper periodically evicts expired OTP records and stale rate limit
// entries. It runs until its context is cancelled.
type Reaper struct {
	otps     OTPStore
	limiter  RateLimiter
	interval time.Duration
	logger   *logrus.Logger
}

func NewReaper(otps OTPStore, limiter RateLimiter, logger *logrus.Logger) *Reaper {
	return &Reaper{
		otps:     otps,
		limiter:  limiter,
		interval: reapInterval,
		logger:   logger,
	}
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	now := time.Now()

	if err := r.otps.EvictExpired(ctx, now); err != nil {
		r.logger.WithError(err).Error("Failed to evict expired OTP records")
	}

	if err := r.limiter.EvictStale(ctx, now); err != nil {
		r.logger.WithError(err).Error("Failed to evict stale rate limit entries")
	}
}
