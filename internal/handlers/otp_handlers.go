package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/otpgate/otpgate/internal/service"
	"github.com/sirupsen/logrus"
)

type OTPHandlers struct {
	otpService *service.OTPService
	logger     *logrus.Logger
}

func NewOTPHandlers(otpService *service.OTPService, logger *logrus.Logger) *OTPHandlers {
	return &OTPHandlers{
		otpService: otpService,
		logger:     logger,
	}
}

type IssueOTPRequest struct {
	Phone        string `json:"phone"`
	ConsentGiven bool   `json:"consentGiven"`
}

type IssueOTPResponse struct {
	Success    bool   `json:"success"`
	ExpiresIn  int64  `json:"expiresIn"`
	DeliveryID string `json:"deliveryId"`
	Status     string `json:"status"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *OTPHandlers) IssueOTP(w http.ResponseWriter, r *http.Request) {
	var req IssueOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.otpService.IssueOTP(r.Context(), req.Phone, req.ConsentGiven)
	if err != nil {
		var validationErr *service.ValidationError
		var deliveryErr *service.DeliveryError

		switch {
		case errors.As(err, &validationErr):
			h.respondWithError(w, http.StatusBadRequest, validationErr.Message)
		case errors.Is(err, service.ErrRateLimited):
			h.respondWithError(w, http.StatusTooManyRequests, "Too many OTP requests. Please try again later.")
		case errors.As(err, &deliveryErr):
			h.respondWithError(w, http.StatusInternalServerError, deliveryErr.Error())
		default:
			h.logger.WithError(err).Error("Failed to issue OTP")
			h.respondWithError(w, http.StatusInternalServerError, "Failed to send OTP")
		}
		return
	}

	h.respondWithJSON(w, http.StatusOK, IssueOTPResponse{
		Success:    true,
		ExpiresIn:  result.ExpiresIn,
		DeliveryID: result.DeliveryID,
		Status:     result.Status,
	})
}

func (h *OTPHandlers) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *OTPHandlers) respondWithError(w http.ResponseWriter, status int, message string) {
	h.respondWithJSON(w, status, ErrorResponse{
		Success: false,
		Message: message,
	})
}
