// Package handler orchestrates model calls through the resilience stack.
//
// The Orchestrator takes a raw request, obtains a wire event stream from a
// Transport, and emits a normalized event sequence: text deltas, structured
// messages, thinking content, and exactly one terminal Complete or Error.
// Around every call it applies circuit-breaker gating, retry with backoff,
// rate-limit cooperation, and an inactivity watchdog. The UI layer consumes
// only the normalized events and never sees retry or breaker internals.
package handler
