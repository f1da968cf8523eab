package recall

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var ErrNotFound = errors.New("recall resource not found")

// ProviderError is returned for any non-2xx provider response.
type ProviderError struct {
	Op      string
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("recall %s: status %d (%s): %s", e.Op, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("recall %s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Retryable reports whether repeating the call later could succeed.
func (e *ProviderError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func newProviderError(op string, status int, body []byte) *ProviderError {
	pe := &ProviderError{Op: op, Status: status}

	var payload struct {
		Code    string `json:"code"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		pe.Code = payload.Code
		pe.Message = payload.Detail
		if pe.Message == "" {
			pe.Message = payload.Message
		}
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(status)
	}
	return pe
}

// IsRetryable treats transport failures and retryable provider statuses as
// transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return true
}
