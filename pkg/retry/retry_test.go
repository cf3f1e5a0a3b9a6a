package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/uistream/errors"
)

func testPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDelay_Formula(t *testing.T) {
	p := Policy{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
	assert.Equal(t, 600*time.Millisecond, p.Delay(3))
	// Linear growth, not multiplier^attempt: attempt 4 is 800ms, not 1.6s.
	assert.Equal(t, 800*time.Millisecond, p.Delay(4))
	assert.Equal(t, 1*time.Second, p.Delay(5))
	assert.Equal(t, 1*time.Second, p.Delay(50))
}

func TestDelay_NonDecreasing(t *testing.T) {
	p := testPolicy()
	prev := time.Duration(0)
	for n := 0; n < 100; n++ {
		d := p.Delay(n)
		assert.GreaterOrEqual(t, d, prev)
		assert.LessOrEqual(t, d, p.MaxDelay)
		prev = d
	}
}

func TestShouldRetry(t *testing.T) {
	p := testPolicy()

	retryable := errors.NewServerError(500, "boom")
	assert.True(t, p.ShouldRetry(retryable, 0))
	assert.True(t, p.ShouldRetry(retryable, 2))
	assert.False(t, p.ShouldRetry(retryable, 3), "attempts at MaxAttempts never retry")
	assert.False(t, p.ShouldRetry(retryable, 10))

	assert.False(t, p.ShouldRetry(errors.NewValidationError(400, "bad"), 0))
	assert.False(t, p.ShouldRetry(stderrors.New("unclassified"), 0))
	assert.False(t, p.ShouldRetry(nil, 0))
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := testPolicy().Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.NewNetworkError("flaky", nil)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	want := errors.NewValidationError(422, "malformed")
	err := testPolicy().Do(context.Background(), func() error {
		attempts++
		return want
	})

	assert.Equal(t, 1, attempts)
	var ae *errors.APIError
	require.True(t, stderrors.As(err, &ae))
	assert.Equal(t, errors.KindValidation, ae.Kind)
}

func TestDo_ExhaustedReturnsLastError(t *testing.T) {
	attempts := 0
	err := testPolicy().Do(context.Background(), func() error {
		attempts++
		return errors.NewServerError(503, "still down")
	})

	assert.Equal(t, 3, attempts)
	var ae *errors.APIError
	require.True(t, stderrors.As(err, &ae))
	assert.Equal(t, 503, ae.StatusCode)
}

func TestDo_ContextCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	attempts := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, func() error {
		attempts++
		return errors.NewNetworkError("down", nil)
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.Less(t, attempts, 5)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), testPolicy(), func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.NewTimeoutError("slow", nil)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, attempts)
}

func TestSleep_ZeroReturnsImmediately(t *testing.T) {
	start := time.Now()
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestDo_FirstRetryHasNoBackoff(t *testing.T) {
	// A backoff of an hour would trip the deadline below unless the first
	// retry waits Delay(0), which is zero.
	p := Policy{
		MaxAttempts:  2,
		InitialDelay: time.Hour,
		MaxDelay:     2 * time.Hour,
		Multiplier:   2.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	calls := 0
	err := p.Do(ctx, func() error {
		calls++
		if calls == 1 {
			return errors.NewNetworkError("flaky", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
