package service

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when a phone number has exhausted its issuance
// quota for the trailing window.
var ErrRateLimited = errors.New("too many OTP requests")

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DeliveryError wraps a gateway failure. The OTP record written before the
// send is left in place (matching the original behavior).
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver OTP: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
