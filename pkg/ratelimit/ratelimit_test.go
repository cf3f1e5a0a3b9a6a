package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   *time.Duration
	}{
		{"integer seconds", "2", durationPtr(2 * time.Second)},
		{"zero", "0", durationPtr(0)},
		{"empty", "", nil},
		{"garbage", "soon", nil},
		{"negative", "-5", nil},
		{"http date unsupported", "Wed, 21 Oct 2015 07:28:00 GMT", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRetryAfter(tt.header)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestRecordRateLimit_IgnoresNon429(t *testing.T) {
	l := New()
	l.RecordRateLimit(500, nil)
	l.RecordRateLimit(200, nil)
	assert.False(t, l.Limited())
}

func TestRecordRateLimit_OpensWindow(t *testing.T) {
	l := New()
	l.RecordRateLimit(429, durationPtr(50*time.Millisecond))
	assert.True(t, l.Limited())

	deadline := l.Deadline()
	assert.False(t, deadline.IsZero())
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 20*time.Millisecond)
}

func TestExecute_RunsImmediatelyWhenNotLimited(t *testing.T) {
	l := New()
	ran := false
	err := l.Execute(context.Background(), func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestExecute_QueuesDuringWindowAndDrainsFIFO(t *testing.T) {
	l := New()
	l.RecordRateLimit(429, durationPtr(60*time.Millisecond))

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 1; i <= 3; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			err := l.Execute(context.Background(), func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
		// Stagger submissions so queue order is deterministic.
		time.Sleep(5 * time.Millisecond)
	}

	assert.Equal(t, 3, l.QueueDepth())
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3}, order)
	assert.False(t, l.Limited())
	assert.Equal(t, 0, l.QueueDepth())
}

func TestExecute_CancelledWhileQueued(t *testing.T) {
	l := New()
	l.RecordRateLimit(429, durationPtr(80*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Execute(ctx, func() error {
			t.Error("queued fn must not run after cancellation")
			return nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)

	// Drain must tolerate the cancelled entry.
	time.Sleep(100 * time.Millisecond)
	assert.False(t, l.Limited())
}

func TestRecordRateLimit_LaterWindowExtends(t *testing.T) {
	l := New()
	l.RecordRateLimit(429, durationPtr(30*time.Millisecond))
	first := l.Deadline()

	l.RecordRateLimit(429, durationPtr(120*time.Millisecond))
	assert.True(t, l.Deadline().After(first))

	// Still limited after the first window would have elapsed.
	time.Sleep(60 * time.Millisecond)
	assert.True(t, l.Limited())
}

func TestRecordRateLimit_NilRetryAfterUsesDefault(t *testing.T) {
	l := New(WithDefaultWindow(40 * time.Millisecond))
	l.RecordRateLimit(429, nil)
	assert.True(t, l.Limited())

	time.Sleep(60 * time.Millisecond)
	assert.False(t, l.Limited())
}
