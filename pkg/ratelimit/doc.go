// Package ratelimit tracks server-signaled rate-limit windows and queues
// calls during them.
//
// Unlike a client-side token bucket, the limiter is entirely reactive: it only
// enters a window when the upstream answers 429, honoring the Retry-After
// header when present and a default window otherwise. Calls submitted during
// an active window queue in FIFO order and drain when the window elapses.
package ratelimit
