package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Error wraps provider errors with status metadata.
type Error struct {
	Provider  string
	Status    int
	Temporary bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Err != nil {
		if e.Provider != "" {
			return fmt.Sprintf("%s: %v", e.Provider, e.Err)
		}
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error (status=%d)", e.Provider, e.Status)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether an error is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsNonRetryable(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var provErr *Error
	if errors.As(err, &provErr) {
		if provErr.Temporary {
			return true
		}
		if provErr.Status == 429 || (provErr.Status >= 500 && provErr.Status <= 599) {
			return true
		}
		return false
	}
	return true
}

// nonRetryableMarkers are substrings that identify auth, quota, and
// content-policy failures. Retrying these wastes the backoff budget; the
// caller should fall back to a different model instead.
var nonRetryableMarkers = []string{
	"401",
	"403",
	"invalid_api_key",
	"invalid api key",
	"quota",
	"insufficient_quota",
	"content_policy",
	"content policy",
}

// IsNonRetryable reports whether an error must never be retried against
// the same model.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	var provErr *Error
	if errors.As(err, &provErr) {
		switch provErr.Status {
		case 401, 403:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range nonRetryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
