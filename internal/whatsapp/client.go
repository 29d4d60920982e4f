package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/otpgate/otpgate/internal/config"
	"github.com/sirupsen/logrus"
)

const sendTimeout = 15 * time.Second

// Client sends templated OTP messages through the WhatsApp provider API.
type Client struct {
	baseURL    string
	apiKey     string
	sender     string
	appName    string
	template   string
	httpClient *http.Client
	logger     *logrus.Logger
}

type SendResult struct {
	DeliveryID string
	Status     string
}

type templateRequest struct {
	Source      string   `json:"source"`
	SrcName     string   `json:"src.name,omitempty"`
	Destination string   `json:"destination"`
	Template    string   `json:"template"`
	Params      []string `json:"params"`
}

type templateResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

func NewClient(cfg *config.WhatsAppConfig, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		sender:   cfg.Sender,
		appName:  cfg.AppName,
		template: cfg.TemplateName,
		httpClient: &http.Client{
			Timeout: sendTimeout,
		},
		logger: logger,
	}
}

// SendOTP submits a template message carrying the code to the 10-digit
// national number. The country code is prepended for the provider.
func (c *Client) SendOTP(ctx context.Context, phone, code string, expiryMinutes int) (*SendResult, error) {
	payload := templateRequest{
		Source:      c.sender,
		SrcName:     c.appName,
		Destination: "91" + phone,
		Template:    c.template,
		Params:      []string{code, strconv.Itoa(expiryMinutes)},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template request: %w", err)
	}

	url := c.baseURL + "/wa/api/v1/template/msg"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build template request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrAuth
	case http.StatusBadRequest:
		var parsed templateResponse
		detail := string(respBody)
		if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.Message != "" {
			detail = parsed.Message
		}
		return nil, &BadRequestError{Detail: detail}
	case http.StatusTooManyRequests:
		return nil, ErrProviderRateLimit
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UnexpectedResponseError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed templateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &UnexpectedResponseError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	status := parsed.Status
	if status == "" {
		status = "submitted"
	}

	c.logger.WithFields(logrus.Fields{
		"delivery_id": parsed.MessageID,
		"status":      status,
	}).Info("OTP message submitted")

	return &SendResult{
		DeliveryID: parsed.MessageID,
		Status:     status,
	}, nil
}
