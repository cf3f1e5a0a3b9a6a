package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// DefaultWindow is the rate-limit window applied when a 429 response carries
// no Retry-After header.
const DefaultWindow = 60 * time.Second

// pending is a queued call waiting for the rate-limit window to elapse
type pending struct {
	ctx  context.Context
	fn   func() error
	done chan error
}

// Limiter tracks externally-signaled rate-limit windows. While a window is
// active, Execute queues calls instead of running them; when the window
// elapses the queue drains in FIFO order. One instance is shared by all
// requests to the same upstream and is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	limited  bool
	deadline time.Time
	queue    []pending
	timer    *time.Timer

	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Limiter
type Option func(*Limiter)

// WithDefaultWindow overrides the window used when Retry-After is absent
func WithDefaultWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

// WithClock injects a clock for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a rate limiter
func New(opts ...Option) *Limiter {
	l := &Limiter{
		window: DefaultWindow,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordRateLimit records a rate-limit response. Any status other than 429 is
// a no-op. On 429 the limiter enters (or extends) a window of retryAfter, or
// the default window when retryAfter is nil, and schedules the drain.
func (l *Limiter) RecordRateLimit(statusCode int, retryAfter *time.Duration) {
	if statusCode != http.StatusTooManyRequests {
		return
	}

	window := l.window
	if retryAfter != nil && *retryAfter > 0 {
		window = *retryAfter
	}

	l.mu.Lock()
	deadline := l.now().Add(window)
	// A fresh 429 extends the window but never shortens one already running.
	if !l.limited || deadline.After(l.deadline) {
		l.deadline = deadline
		if l.timer != nil {
			l.timer.Stop()
		}
		l.timer = time.AfterFunc(window, l.drain)
	}
	l.limited = true
	l.mu.Unlock()

	l.logger.Warn("rate limited by upstream", "window", window)
}

// Limited reports whether a rate-limit window is currently active
func (l *Limiter) Limited() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limited && l.now().Before(l.deadline)
}

// Deadline returns the end of the active window, zero when not limited
func (l *Limiter) Deadline() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.limited {
		return time.Time{}
	}
	return l.deadline
}

// Execute runs fn immediately when no window is active, otherwise queues it
// until the window elapses. Queued calls run in submission order; a call whose
// context is cancelled while queued returns the context error without running.
func (l *Limiter) Execute(ctx context.Context, fn func() error) error {
	l.mu.Lock()
	if !l.limited || !l.now().Before(l.deadline) {
		l.limited = false
		l.mu.Unlock()
		return fn()
	}

	p := pending{ctx: ctx, fn: fn, done: make(chan error, 1)}
	l.queue = append(l.queue, p)
	depth := len(l.queue)
	l.mu.Unlock()

	l.logger.Debug("call queued behind rate-limit window", "queue_depth", depth)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-p.done:
		return err
	}
}

// QueueDepth returns the number of calls waiting on the window
func (l *Limiter) QueueDepth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// drain clears the window and runs queued calls in FIFO order
func (l *Limiter) drain() {
	l.mu.Lock()
	// A later 429 may have extended the window past this timer's deadline.
	if l.now().Before(l.deadline) {
		l.mu.Unlock()
		return
	}
	l.limited = false
	queue := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, p := range queue {
		if p.ctx.Err() != nil {
			p.done <- p.ctx.Err()
			continue
		}
		p.done <- p.fn()
	}
}

// ParseRetryAfter parses an integer-seconds Retry-After header value,
// returning nil when the value is absent or unparseable.
func ParseRetryAfter(header string) *time.Duration {
	if header == "" {
		return nil
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return nil
	}
	d := time.Duration(seconds) * time.Second
	return &d
}
