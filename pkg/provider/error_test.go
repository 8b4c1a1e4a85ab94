package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"auth status", &Error{Provider: "openai", Status: 401, Err: errors.New("unauthorized")}, true},
		{"forbidden status", &Error{Provider: "openai", Status: 403, Err: errors.New("forbidden")}, true},
		{"401 in message", errors.New("upstream returned 401"), true},
		{"invalid api key", errors.New("error: invalid_api_key"), true},
		{"quota exhausted", errors.New("insufficient_quota for this billing period"), true},
		{"content policy", errors.New("rejected by content_policy"), true},
		{"plain network error", errors.New("connection reset by peer"), false},
		{"server error", &Error{Provider: "openai", Status: 500, Err: errors.New("internal")}, false},
		{"wrapped auth error", fmt.Errorf("call failed: %w", &Error{Status: 401, Err: errors.New("no")}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNonRetryable(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"rate limited", &Error{Status: 429, Err: errors.New("slow down")}, true},
		{"server error", &Error{Status: 503, Err: errors.New("unavailable")}, true},
		{"explicitly temporary", &Error{Temporary: true, Err: errors.New("server starting")}, true},
		{"client error", &Error{Status: 400, Err: errors.New("bad request")}, false},
		{"auth never transient", &Error{Status: 401, Err: errors.New("unauthorized")}, false},
		{"quota never transient", errors.New("quota exceeded"), false},
		{"unknown error defaults to retryable", errors.New("mystery"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := &Error{Provider: "ollama", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "ollama")
	assert.Contains(t, err.Error(), "root cause")
}
