package errors

import (
	"errors"
	"fmt"
	"time"
)

// APIKind identifies the category of an API-level failure.
type APIKind string

// API error kinds
const (
	KindNetwork        APIKind = "network"
	KindTimeout        APIKind = "timeout"
	KindAuthentication APIKind = "authentication"
	KindRateLimit      APIKind = "rate_limit"
	KindValidation     APIKind = "validation"
	KindServer         APIKind = "server"
	KindCircuitOpen    APIKind = "circuit_open"
	KindMessageParse   APIKind = "message_parse"
)

// APIError is the typed error produced by the transport and resilience layers.
// Retryable is the explicit flag consulted by the retry policy; RetryAfter is
// the server-provided wait hint on rate-limit responses, zero when absent.
type APIError struct {
	Kind       APIKind
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Retryable  bool
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a retryable transport-level error
func NewNetworkError(msg string, cause error) *APIError {
	return &APIError{Kind: KindNetwork, Message: msg, Retryable: true, Err: cause}
}

// NewTimeoutError creates a retryable timeout error covering both the overall
// request deadline and stream inactivity.
func NewTimeoutError(msg string, cause error) *APIError {
	return &APIError{Kind: KindTimeout, Message: msg, Retryable: true, Err: cause}
}

// NewAuthenticationError creates a non-retryable 401-class error
func NewAuthenticationError(statusCode int, msg string) *APIError {
	return &APIError{Kind: KindAuthentication, StatusCode: statusCode, Message: msg}
}

// NewRateLimitError creates a 429 error carrying the Retry-After hint.
// Rate-limit errors retry on their own schedule, independent of the generic
// retryable classification, so Retryable is set for the policy check as well.
func NewRateLimitError(retryAfter time.Duration, msg string) *APIError {
	return &APIError{
		Kind:       KindRateLimit,
		StatusCode: 429,
		Message:    msg,
		RetryAfter: retryAfter,
		Retryable:  true,
	}
}

// NewValidationError creates a non-retryable 400/422-class error
func NewValidationError(statusCode int, msg string) *APIError {
	return &APIError{Kind: KindValidation, StatusCode: statusCode, Message: msg}
}

// NewServerError creates a retryable 5xx error
func NewServerError(statusCode int, msg string) *APIError {
	return &APIError{Kind: KindServer, StatusCode: statusCode, Message: msg, Retryable: true}
}

// NewCircuitOpenError creates the fail-fast error emitted while the breaker is
// open. Not retryable and never counted as a new breaker failure.
func NewCircuitOpenError() *APIError {
	return &APIError{Kind: KindCircuitOpen, Message: "circuit breaker is open", Err: ErrCircuitOpen}
}

// NewMessageParseError creates a recoverable decode error. Dropped at the
// block level, never surfaced as a stream failure.
func NewMessageParseError(msg string, cause error) *APIError {
	return &APIError{Kind: KindMessageParse, Message: msg, Err: cause}
}

// StatusError maps an HTTP status code onto the API error taxonomy.
// retryAfter applies only to 429 responses and may be zero.
func StatusError(statusCode int, body string, retryAfter time.Duration) *APIError {
	switch {
	case statusCode == 401 || statusCode == 403:
		return NewAuthenticationError(statusCode, body)
	case statusCode == 429:
		return NewRateLimitError(retryAfter, body)
	case statusCode == 400 || statusCode == 422:
		return NewValidationError(statusCode, body)
	case statusCode >= 500:
		return NewServerError(statusCode, body)
	default:
		return &APIError{Kind: KindNetwork, StatusCode: statusCode, Message: body}
	}
}

// IsRateLimit reports whether err is a 429 rate-limit error
func IsRateLimit(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Kind == KindRateLimit
}

// IsCircuitOpen reports whether err is the breaker's fail-fast error
func IsCircuitOpen(err error) bool {
	if errors.Is(err, ErrCircuitOpen) {
		return true
	}
	var ae *APIError
	return errors.As(err, &ae) && ae.Kind == KindCircuitOpen
}

// RetryAfterHint extracts the server wait hint from a rate-limit error,
// returning false when err carries none.
func RetryAfterHint(err error) (time.Duration, bool) {
	var ae *APIError
	if errors.As(err, &ae) && ae.Kind == KindRateLimit && ae.RetryAfter > 0 {
		return ae.RetryAfter, true
	}
	return 0, false
}
