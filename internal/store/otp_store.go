package store

import (
	"context"
	"sync"
	"time"

	"github.com/otpgate/otpgate/internal/models"
)

// OTPStore holds the active OTP per phone number. At most one record is live
// per phone; issuing overwrites any prior record.
type OTPStore interface {
	Issue(ctx context.Context, phone, code string, ttl time.Duration) error
	// Lookup returns the current record without checking expiry. Expired
	// records are removed by the reaper, not here.
	Lookup(ctx context.Context, phone string) (*models.OTPRecord, error)
	EvictExpired(ctx context.Context, now time.Time) error
}

type MemoryOTPStore struct {
	mu      sync.Mutex
	records map[string]models.OTPRecord
	now     func() time.Time
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{
		records: make(map[string]models.OTPRecord),
		now:     time.Now,
	}
}

func (s *MemoryOTPStore) Issue(ctx context.Context, phone, code string, ttl time.Duration) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[phone] = models.OTPRecord{
		Code:      code,
		Phone:     phone,
		Attempts:  0,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

func (s *MemoryOTPStore) Lookup(ctx context.Context, phone string) (*models.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[phone]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *MemoryOTPStore) EvictExpired(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for phone, record := range s.records {
		if record.ExpiresAt.Before(now) {
			delete(s.records, phone)
		}
	}
	return nil
}
