package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/otpgate/otpgate/internal/config"
	"github.com/otpgate/otpgate/internal/store"
	"github.com/otpgate/otpgate/internal/whatsapp"
	"github.com/sirupsen/logrus"
)

var (
	nonDigits    = regexp.MustCompile(`\D`)
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// DeliveryGateway transmits the code to the user out-of-band.
type DeliveryGateway interface {
	SendOTP(ctx context.Context, phone, code string, expiryMinutes int) (*whatsapp.SendResult, error)
}

// ConsentStore persists the consent acknowledgment per phone number.
type ConsentStore interface {
	Upsert(ctx context.Context, phoneNumber string, termsAccepted bool) error
}

type OTPService struct {
	otps    store.OTPStore
	limiter store.RateLimiter
	gateway DeliveryGateway
	users   ConsentStore
	cfg     *config.OTPConfig
	logger  *logrus.Logger
}

type IssueResult struct {
	DeliveryID string
	Status     string
	ExpiresIn  int64
}

func NewOTPService(
	otps store.OTPStore,
	limiter store.RateLimiter,
	gateway DeliveryGateway,
	users ConsentStore,
	cfg *config.OTPConfig,
	logger *logrus.Logger,
) *OTPService {
	return &OTPService{
		otps:    otps,
		limiter: limiter,
		gateway: gateway,
		users:   users,
		cfg:     cfg,
		logger:  logger,
	}
}

// NormalizePhone strips non-digit characters and a single leading country
// code 91, yielding the 10-digit national number.
func NormalizePhone(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	return digits
}

// IssueOTP validates the request, admits it through the rate limiter,
// generates and stores a fresh code, and hands it to the delivery gateway.
// Each gate short-circuits on failure.
func (s *OTPService) IssueOTP(ctx context.Context, rawPhone string, consentGiven bool) (*IssueResult, error) {
	if rawPhone == "" {
		return nil, &ValidationError{Message: "phone required"}
	}

	phone := NormalizePhone(rawPhone)
	if !phonePattern.MatchString(phone) {
		return nil, &ValidationError{Message: "invalid phone"}
	}

	if !consentGiven {
		return nil, &ValidationError{Message: "consent required"}
	}

	admitted, err := s.limiter.Admit(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if !admitted {
		return nil, ErrRateLimited
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP: %w", err)
	}

	if err := s.otps.Issue(ctx, phone, code, s.cfg.Expiry); err != nil {
		return nil, fmt.Errorf("failed to store OTP: %w", err)
	}

	expiryMinutes := int(s.cfg.Expiry.Minutes())
	result, err := s.gateway.SendOTP(ctx, phone, code, expiryMinutes)
	if err != nil {
		s.logger.WithError(err).WithField("phone", phone).Error("Failed to deliver OTP")
		return nil, &DeliveryError{Err: err}
	}

	// Consent record is best effort; the OTP has already been delivered.
	if err := s.users.Upsert(ctx, phone, true); err != nil {
		s.logger.WithError(err).WithField("phone", phone).Warn("Failed to record consent")
	}

	return &IssueResult{
		DeliveryID: result.DeliveryID,
		Status:     result.Status,
		ExpiresIn:  int64(s.cfg.Expiry.Seconds()),
	}, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
