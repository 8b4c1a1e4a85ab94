// Package observability provides structured logging construction.
package observability

import "go.uber.org/zap"

// Field is a structured log field.
type Field = zap.Field

// NewLogger builds the process logger: JSON output in production, console
// output otherwise. Callers that want silence pass the result of
// zap.NewNop instead.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// MustLogger builds a logger and panics on failure. Intended for main.
func MustLogger(env string) *zap.Logger {
	logger, err := NewLogger(env)
	if err != nil {
		panic(err)
	}
	return logger
}
