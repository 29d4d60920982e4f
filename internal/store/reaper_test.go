package store

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestReaperSweep(t *testing.T) {
	ctx := context.Background()
	otps := NewMemoryOTPStore()
	limiter := NewMemoryRateLimiter()

	otps.Issue(ctx, "9111111111", "111111", -time.Minute)
	otps.Issue(ctx, "9222222222", "222222", 10*time.Minute)
	limiter.attempts["9333333333"] = []time.Time{time.Now().Add(-2 * time.Hour)}
	limiter.attempts["9444444444"] = []time.Time{time.Now()}

	r := NewReaper(otps, limiter, discardLogger())
	r.sweep(ctx)

	if record, _ := otps.Lookup(ctx, "9111111111"); record != nil {
		t.Error("expected the expired OTP record to be reaped")
	}
	if record, _ := otps.Lookup(ctx, "9222222222"); record == nil {
		t.Error("expected the live OTP record to survive the sweep")
	}
	if _, ok := limiter.attempts["9333333333"]; ok {
		t.Error("expected the stale rate limit entry to be reaped")
	}
	if _, ok := limiter.attempts["9444444444"]; !ok {
		t.Error("expected the fresh rate limit entry to survive the sweep")
	}
}

func TestReaperSweepIdempotent(t *testing.T) {
	ctx := context.Background()
	otps := NewMemoryOTPStore()
	limiter := NewMemoryRateLimiter()
	otps.Issue(ctx, "9111111111", "111111", -time.Minute)

	r := NewReaper(otps, limiter, discardLogger())
	r.sweep(ctx)
	r.sweep(ctx)

	if record, _ := otps.Lookup(ctx, "9111111111"); record != nil {
		t.Error("expected the expired record to stay gone")
	}
}

func TestReaperStopsOnCancel(t *testing.T) {
	r := NewReaper(NewMemoryOTPStore(), NewMemoryRateLimiter(), discardLogger())
	r.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after context cancellation")
	}
}
