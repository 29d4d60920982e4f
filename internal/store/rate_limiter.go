package store

import (
	"context"
	"sync"
	"time"
)

const (
	rateLimitMax    = 5
	rateLimitWindow = time.Hour
)

// RateLimiter admits or rejects OTP issuance attempts per phone number using
// a sliding one-hour window. A rejected attempt does not consume quota.
type RateLimiter interface {
	Admit(ctx context.Context, phone string) (bool, error)
	EvictStale(ctx context.Context, now time.Time) error
}

type MemoryRateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	now      func() time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (l *MemoryRateLimiter) Admit(ctx context.Context, phone string) (bool, error) {
	now := l.now()
	cutoff := now.Add(-rateLimitWindow)

	l.mu.Lock()
	defer l.mu.Unlock()

	var recent []time.Time
	for _, t := range l.attempts[phone] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rateLimitMax {
		l.attempts[phone] = recent
		return false, nil
	}

	l.attempts[phone] = append(recent, now)
	return true, nil
}

func (l *MemoryRateLimiter) EvictStale(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-rateLimitWindow)

	l.mu.Lock()
	defer l.mu.Unlock()

	for phone, attempts := range l.attempts {
		var recent []time.Time
		for _, t := range attempts {
			if t.After(cutoff) {
				recent = append(recent, t)
			}
		}
		if len(recent) == 0 {
			delete(l.attempts, phone)
		} else {
			l.attempts[phone] = recent
		}
	}
	return nil
}
