// Package llm defines the provider interface and implementations for LLM interaction.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Settings configures the LLM request.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Seed        *int
}

// Provider generates text from a prompt using an LLM.
type Provider interface {
	Generate(ctx context.Context, prompt string, settings Settings) (string, error)
	Name() string
}

// ErrorCode classifies provider failures for aggregation upstream.
type ErrorCode string

const (
	CodeAPIKeyMissing ErrorCode = "API_KEY_MISSING"
	CodeRateLimited   ErrorCode = "RATE_LIMITED"
	CodeModelError    ErrorCode = "MODEL_ERROR"
	CodeNetwork       ErrorCode = "NETWORK_ERROR"
)

// Error is a coded provider failure.
type Error struct {
	Code     ErrorCode
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the error code from a provider error, defaulting to
// MODEL_ERROR for anything untyped.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeModelError
}

func newError(code ErrorCode, provider, format string, args ...any) *Error {
	return &Error{Code: code, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code ErrorCode, provider string, err error, format string, args ...any) *Error {
	return &Error{Code: code, Provider: provider, Message: fmt.Sprintf(format, args...), Err: err}
}
