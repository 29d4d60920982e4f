package models

import "time"

type OTPRecord struct {
	Code      string    `json:"code"`
	Phone     string    `json:"phone"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
