package whatsapp

import (
	"errors"
	"fmt"
)

var (
	ErrAuth              = errors.New("whatsapp: authentication failed")
	ErrProviderRateLimit = errors.New("whatsapp: provider rate limit exceeded")
	ErrNoResponse        = errors.New("whatsapp: no response from provider")
)

type BadRequestError struct {
	Detail string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("whatsapp: provider rejected request: %s", e.Detail)
}

type UnexpectedResponseError struct {
	StatusCode int
	Body       string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("whatsapp: unexpected response (status %d): %s", e.StatusCode, e.Body)
}
