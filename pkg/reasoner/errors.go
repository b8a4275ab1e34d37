package reasoner

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProviderError is a non-specific failure reported by a provider.
type ProviderError struct {
	// Provider is the name of the provider that returned the error
	Provider string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// AuthError means the provider rejected the credentials (HTTP 401 or 403).
type AuthError struct {
	Provider string
	Message  string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// RateLimitError means the provider throttled the request (HTTP 429).
type RateLimitError struct {
	Provider string

	// RetryAfter is the provider's suggested wait, if any. It is reported
	// for diagnostics only; calls are never retried.
	RetryAfter time.Duration

	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// TimeoutError means the call did not finish within its deadline.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.Timeout)
}

// ParseError means the provider answered with content that is not a usable
// compliance entry.
type ParseError struct {
	Provider string

	// RawResponse is the content that failed to parse.
	RawResponse string

	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ConfigError means a provider cannot be built from its configuration.
type ConfigError struct {
	Provider string
	Field    string
	Message  string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

// Outcome labels used in logs and metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeTimeout   = "timeout"
	OutcomeAuth      = "auth"
	OutcomeRateLimit = "rate_limit"
	OutcomeParse     = "parse"
	OutcomeProvider  = "provider"
	OutcomeCanceled  = "canceled"
)

// Classify returns the outcome label for err.
func Classify(err error) string {
	if err == nil {
		return OutcomeSuccess
	}

	var (
		authErr    *AuthError
		rateErr    *RateLimitError
		timeoutErr *TimeoutError
		parseErr   *ParseError
	)
	switch {
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.As(err, &authErr):
		return OutcomeAuth
	case errors.As(err, &rateErr):
		return OutcomeRateLimit
	case errors.As(err, &parseErr):
		return OutcomeParse
	default:
		return OutcomeProvider
	}
}
