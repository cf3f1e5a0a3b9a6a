// Package errors provides standardized error handling patterns for uistream.
//
// # Overview
//
// Two complementary mechanisms live here. The three-class classification system
// (Transient, Invalid, Fatal) carried over from the streaming framework drives
// coarse handling decisions, while the typed APIError taxonomy models the
// failure modes of an upstream LLM API: network, timeout, authentication,
// rate-limit, validation, server, circuit-open, and message-parse errors.
//
// # Classification
//
//   - Transient: network timeouts, lost connections, rate limiting (retry)
//   - Invalid: malformed input, parse failures (do not retry)
//   - Fatal: unrecoverable states (stop processing)
//
// Retryable(err) is the single decision point consulted by the retry policy:
// true for APIErrors carrying the explicit retryable flag and for recognized
// transient network conditions, false for validation and plain unclassified
// errors.
//
// # Wrapping
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// via Wrap, WrapTransient, WrapInvalid, and WrapFatal. Classification is
// preserved through errors.Is/As chains.
//
// # HTTP mapping
//
// StatusError maps response status codes onto the taxonomy: 401/403 to
// authentication, 400/422 to validation, 429 to rate-limit (carrying the
// Retry-After hint), and 5xx to server errors.
package errors
