package retry

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/c360/uistream/errors"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Policy provides retry configuration. The zero value is unusable; construct
// via DefaultPolicy or fill every field. Policy is immutable and stateless so
// a single value may be shared by concurrent callers.
type Policy struct {
	MaxAttempts  int           // Maximum number of attempts before giving up
	InitialDelay time.Duration // Base delay unit between attempts
	MaxDelay     time.Duration // Ceiling for computed delays
	Multiplier   float64       // Backoff multiplier applied per attempt
	Jitter       float64       // Optional jitter fraction (0 = deterministic)
}

// DefaultPolicy returns sensible defaults for API calls
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// ShouldRetry reports whether another attempt is allowed after err, given the
// number of attempts already made. Attempts at or beyond MaxAttempts never
// retry; otherwise the decision delegates to the error classification.
func (p Policy) ShouldRetry(err error, attempts int) bool {
	if err == nil || attempts >= p.MaxAttempts {
		return false
	}
	return errors.Retryable(err)
}

// Delay returns the wait before the given (zero-based) retry attempt:
// InitialDelay * Multiplier * attempt, capped at MaxDelay. Delay(0) is zero.
//
// The multiplier scales linearly with the attempt number rather than
// compounding. Callers depend on the exact sequence this produces, including
// the zero first step, so do not replace it with a power-of-multiplier curve.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := time.Duration(float64(p.InitialDelay) * p.Multiplier * float64(attempt))
	if d > p.MaxDelay || d < 0 {
		return p.MaxDelay
	}
	return d
}

// jittered adds up to Jitter fraction of extra wait on top of d
func (p Policy) jittered(d time.Duration) time.Duration {
	if p.Jitter <= 0 || d <= 0 {
		return d
	}
	randMu.Lock()
	extra := time.Duration(randSource.Int63n(int64(float64(d) * p.Jitter)))
	randMu.Unlock()
	return d + extra
}

// Do executes fn with backoff retry. On a non-retryable error or exhausted
// attempts the last error is returned unchanged so callers can inspect it
// with errors.As.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			// Delay(0) is zero, so the first retry runs immediately.
			if err := Sleep(ctx, p.jittered(p.Delay(attempt-1))); err != nil {
				return fmt.Errorf("retry cancelled before attempt %d: %w", attempt+1, err)
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !p.ShouldRetry(lastErr, attempt+1) {
			return lastErr
		}
	}

	return lastErr
}

// DoWithResult executes fn with retry and returns both result and error
func DoWithResult[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}

// Sleep waits for d with context cancellation support. A zero or negative
// duration returns immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
