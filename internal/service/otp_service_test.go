package service

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/otpgate/otpgate/internal/config"
	"github.com/otpgate/otpgate/internal/store"
	"github.com/otpgate/otpgate/internal/whatsapp"
	"github.com/sirupsen/logrus"
)

type fakeGateway struct {
	calls     int
	lastPhone string
	lastCode  string
	result    *whatsapp.SendResult
	err       error
}

func (f *fakeGateway) SendOTP(ctx context.Context, phone, code string, expiryMinutes int) (*whatsapp.SendResult, error) {
	f.calls++
	f.lastPhone = phone
	f.lastCode = code
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeConsentStore struct {
	upserts map[string]bool
	err     error
}

func (f *fakeConsentStore) Upsert(ctx context.Context, phoneNumber string, termsAccepted bool) error {
	if f.err != nil {
		return f.err
	}
	if f.upserts == nil {
		f.upserts = make(map[string]bool)
	}
	f.upserts[phoneNumber] = termsAccepted
	return nil
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(gateway *fakeGateway, users *fakeConsentStore) (*OTPService, *store.MemoryOTPStore) {
	if gateway.result == nil && gateway.err == nil {
		gateway.result = &whatsapp.SendResult{DeliveryID: "msg-123", Status: "submitted"}
	}
	otps := store.NewMemoryOTPStore()
	svc := NewOTPService(
		otps,
		store.NewMemoryRateLimiter(),
		gateway,
		users,
		&config.OTPConfig{Expiry: 5 * time.Minute},
		discardLogger(),
	)
	return svc, otps
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"+91 98765-43210", "9876543210"},
		{"9876543210", "9876543210"},
		{"919876543210", "9876543210"},
		{"(987) 654-3210", "9876543210"},
	}

	for _, tt := range tests {
		if got := NormalizePhone(tt.raw); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestIssueOTPValidation(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		consent bool
		message string
	}{
		{"empty phone", "", true, "phone required"},
		{"nine digits", "987654321", true, "invalid phone"},
		{"eleven digits", "98765432101", true, "invalid phone"},
		{"invalid leading digit", "1234567890", true, "invalid phone"},
		{"leading zero", "0876543210", true, "invalid phone"},
		{"missing consent", "9876543210", false, "consent required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &fakeGateway{}
			svc, _ := newTestService(gateway, &fakeConsentStore{})

			_, err := svc.IssueOTP(context.Background(), tt.phone, tt.consent)

			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, validationErr.Message)
			}
			if gateway.calls != 0 {
				t.Error("gateway must not be called for invalid input")
			}
		})
	}
}

func TestIssueOTPSuccess(t *testing.T) {
	gateway := &fakeGateway{}
	users := &fakeConsentStore{}
	svc, otps := newTestService(gateway, users)

	result, err := svc.IssueOTP(context.Background(), "+91 98765-43210", true)
	if err != nil {
		t.Fatalf("IssueOTP returned error: %v", err)
	}

	if result.DeliveryID != "msg-123" {
		t.Errorf("expected deliveryId msg-123, got %s", result.DeliveryID)
	}
	if result.Status != "submitted" {
		t.Errorf("expected status submitted, got %s", result.Status)
	}
	if result.ExpiresIn < 1 || result.ExpiresIn > 300 {
		t.Errorf("expected expiresIn within (0, 300], got %d", result.ExpiresIn)
	}

	if gateway.lastPhone != "9876543210" {
		t.Errorf("expected gateway to receive the normalized phone, got %s", gateway.lastPhone)
	}
	if !regexp.MustCompile(`^\d{6}$`).MatchString(gateway.lastCode) {
		t.Errorf("expected a 6-digit code, got %q", gateway.lastCode)
	}

	record, err := otps.Lookup(context.Background(), "9876543210")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if record == nil || record.Code != gateway.lastCode {
		t.Errorf("expected the stored code to match the delivered one")
	}

	if !users.upserts["9876543210"] {
		t.Error("expected consent to be recorded for the normalized phone")
	}
}

func TestIssueOTPReissueOverwrites(t *testing.T) {
	gateway := &fakeGateway{}
	svc, otps := newTestService(gateway, &fakeConsentStore{})
	ctx := context.Background()

	if _, err := svc.IssueOTP(ctx, "9876543210", true); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}
	if _, err := svc.IssueOTP(ctx, "9876543210", true); err != nil {
		t.Fatalf("second issue failed: %v", err)
	}

	record, _ := otps.Lookup(ctx, "9876543210")
	if record == nil || record.Code != gateway.lastCode {
		t.Error("expected only the most recent code to be retrievable")
	}
}

func TestIssueOTPRateLimit(t *testing.T) {
	gateway := &fakeGateway{}
	svc, _ := newTestService(gateway, &fakeConsentStore{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.IssueOTP(ctx, "9876543210", true); err != nil {
			t.Fatalf("issue %d failed: %v", i+1, err)
		}
	}

	_, err := svc.IssueOTP(ctx, "9876543210", true)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on the 6th issue, got %v", err)
	}
	if gateway.calls != 5 {
		t.Errorf("expected 5 gateway calls, got %d", gateway.calls)
	}
}

func TestIssueOTPInvalidPhoneConsumesNoQuota(t *testing.T) {
	gateway := &fakeGateway{}
	svc, _ := newTestService(gateway, &fakeConsentStore{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		svc.IssueOTP(ctx, "1234567890", true)
	}

	for i := 0; i < 5; i++ {
		if _, err := svc.IssueOTP(ctx, "9876543210", true); err != nil {
			t.Fatalf("issue %d failed after invalid attempts: %v", i+1, err)
		}
	}
	if gateway.calls != 5 {
		t.Errorf("expected 5 gateway calls, got %d", gateway.calls)
	}
}

func TestIssueOTPDeliveryFailureKeepsRecord(t *testing.T) {
	gateway := &fakeGateway{err: whatsapp.ErrNoResponse}
	svc, otps := newTestService(gateway, &fakeConsentStore{})
	ctx := context.Background()

	_, err := svc.IssueOTP(ctx, "9876543210", true)

	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if !errors.Is(err, whatsapp.ErrNoResponse) {
		t.Error("expected the gateway error to be wrapped")
	}

	// The stored OTP is not rolled back on delivery failure.
	record, _ := otps.Lookup(ctx, "9876543210")
	if record == nil {
		t.Error("expected the OTP record to remain after a delivery failure")
	}
}

func TestIssueOTPConsentFailureIsNonFatal(t *testing.T) {
	gateway := &fakeGateway{}
	users := &fakeConsentStore{err: errors.New("dynamodb unavailable")}
	svc, _ := newTestService(gateway, users)

	result, err := svc.IssueOTP(context.Background(), "9876543210", true)
	if err != nil {
		t.Fatalf("expected consent persistence failure to be non-fatal, got %v", err)
	}
	if result.DeliveryID != "msg-123" {
		t.Errorf("expected the delivery result to be returned, got %+v", result)
	}
}

func TestGenerateCodeRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode returned error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected a 6-character code, got %q", code)
		}
		if code[0] == '0' {
			t.Fatalf("expected no leading zero, got %q", code)
		}
	}
}
