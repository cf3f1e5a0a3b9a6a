package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/c360/uistream/decode"
	"github.com/c360/uistream/errors"
	"github.com/c360/uistream/metric"
	"github.com/c360/uistream/pkg/breaker"
	"github.com/c360/uistream/pkg/dedup"
	"github.com/c360/uistream/pkg/ratelimit"
	"github.com/c360/uistream/pkg/retry"
	"github.com/c360/uistream/protocol"
)

// DefaultInactivityTimeout bounds the gap between consecutive stream events
const DefaultInactivityTimeout = 30 * time.Second

// Orchestrator composes the resilience stack around a Transport and emits
// normalized stream events. One Orchestrator serves many concurrent calls;
// the breaker, limiter, deduplicator, and collector are shared across them.
type Orchestrator struct {
	transport  Transport
	breaker    *breaker.Breaker
	policy     retry.Policy
	limiter    *ratelimit.Limiter
	dedup      *dedup.Deduplicator[protocol.FullResponse]
	collector  *metric.Collector
	logger     *slog.Logger
	inactivity time.Duration
	bufferSize int
	newID      func() string
	now        func() time.Time
	sleep      func(context.Context, time.Duration) error
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithBreaker sets the shared circuit breaker
func WithBreaker(b *breaker.Breaker) Option {
	return func(o *Orchestrator) { o.breaker = b }
}

// WithRetryPolicy sets the retry policy
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithRateLimiter sets the shared rate limiter
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(o *Orchestrator) { o.limiter = l }
}

// WithDeduplicator sets the deduplicator used by Complete
func WithDeduplicator(d *dedup.Deduplicator[protocol.FullResponse]) Option {
	return func(o *Orchestrator) { o.dedup = d }
}

// WithCollector sets the metrics collector
func WithCollector(c *metric.Collector) Option {
	return func(o *Orchestrator) { o.collector = c }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithInactivityTimeout bounds the gap between stream events; zero disables
// the watchdog.
func WithInactivityTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.inactivity = d }
}

// WithBufferSize sets the capacity of the output event channel. Zero means
// unbuffered; the producer then blocks until the consumer reads each event.
func WithBufferSize(n int) Option {
	return func(o *Orchestrator) { o.bufferSize = n }
}

// WithIDGenerator injects the request-ID generator for deterministic tests
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// WithClock injects a clock for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSleeper injects the backoff sleep function for deterministic tests
func WithSleeper(fn func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// New creates an orchestrator around transport
func New(transport Transport, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transport:  transport,
		breaker:    breaker.New(breaker.DefaultConfig()),
		policy:     retry.DefaultPolicy(),
		limiter:    ratelimit.New(),
		dedup:      dedup.New[protocol.FullResponse](dedup.DefaultConfig()),
		collector:  metric.NewCollector(),
		logger:     slog.Default(),
		inactivity: DefaultInactivityTimeout,
		newID:      uuid.NewString,
		now:        time.Now,
		sleep:      retry.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stream performs one streaming model call. The returned channel carries a
// finite sequence terminated by exactly one Complete or Error event, unless
// ctx is cancelled first, in which case the channel closes without a
// terminal event. Failed attempts that are retried do not surface their
// partial events; only the final attempt's events reach the consumer.
func (o *Orchestrator) Stream(ctx context.Context, req Request) <-chan protocol.StreamEvent {
	out := make(chan protocol.StreamEvent, o.bufferSize)
	go o.run(ctx, req, out)
	return out
}

func (o *Orchestrator) run(ctx context.Context, req Request, out chan<- protocol.StreamEvent) {
	defer close(out)

	requestID := o.newID()
	start := o.now()
	o.collector.Record(metric.Event{Type: metric.RequestStarted, RequestID: requestID})
	o.logger.Debug("stream request started", "request_id", requestID, "model", req.Model)

	var staged []protocol.StreamEvent
	err := o.withResilience(ctx, requestID, func(ctx context.Context) error {
		staged = staged[:0]
		return o.attempt(ctx, req, requestID, &staged)
	})

	if ctx.Err() != nil {
		// Consumer is gone; no terminal event, no further accounting.
		o.logger.Debug("stream request cancelled", "request_id", requestID)
		return
	}

	duration := o.now().Sub(start)
	if err != nil {
		o.collector.Record(metric.Event{
			Type:      metric.RequestFailed,
			RequestID: requestID,
			Duration:  duration,
			Error:     err.Error(),
		})
		o.logger.Warn("stream request failed", "request_id", requestID, "error", err)
		o.flush(ctx, out, staged)
		o.emit(ctx, out, o.tagged(protocol.ErrorEvent(err), requestID))
		return
	}

	o.collector.Record(metric.Event{
		Type:      metric.RequestSucceeded,
		RequestID: requestID,
		Duration:  duration,
	})
	o.flush(ctx, out, staged)
	o.emit(ctx, out, o.tagged(protocol.CompleteEvent(), requestID))
}

// Complete performs one non-streaming model call and parses the full
// response body. Structurally identical concurrent calls collapse onto one
// upstream request through the deduplicator.
func (o *Orchestrator) Complete(ctx context.Context, req Request) (protocol.FullResponse, error) {
	key, err := dedup.Key(req)
	if err != nil {
		return protocol.FullResponse{}, errors.Wrap(err, "Orchestrator", "Complete", "compute request key")
	}

	return o.dedup.Execute(ctx, key, func(ctx context.Context) (protocol.FullResponse, error) {
		requestID := o.newID()
		start := o.now()
		o.collector.Record(metric.Event{Type: metric.RequestStarted, RequestID: requestID})

		var body map[string]any
		callErr := o.withResilience(ctx, requestID, func(ctx context.Context) error {
			var ferr error
			body, ferr = o.transport.Fetch(ctx, req)
			return ferr
		})

		duration := o.now().Sub(start)
		if callErr != nil {
			o.collector.Record(metric.Event{
				Type:      metric.RequestFailed,
				RequestID: requestID,
				Duration:  duration,
				Error:     callErr.Error(),
			})
			return protocol.FullResponse{}, callErr
		}

		o.collector.Record(metric.Event{
			Type:      metric.RequestSucceeded,
			RequestID: requestID,
			Duration:  duration,
		})
		return protocol.ParseFullResponse(body), nil
	})
}

// withResilience runs attemptFn under circuit-breaker gating, rate-limit
// cooperation, and the retry policy. A 429 is always retried up to
// MaxAttempts, honoring the Retry-After hint over the policy delay.
func (o *Orchestrator) withResilience(ctx context.Context, requestID string, attemptFn func(context.Context) error) error {
	attempt := 0
	for {
		if err := o.breaker.Allow(); err != nil {
			// Fail fast; an open circuit is not a new failure.
			return err
		}

		err := o.limiter.Execute(ctx, func() error { return attemptFn(ctx) })
		if err == nil {
			o.breaker.RecordSuccess()
			return nil
		}
		if ctx.Err() != nil {
			// Cancellation is neither success nor failure.
			return err
		}

		o.breaker.RecordFailure()
		attempt++

		rateLimited := errors.IsRateLimit(err)
		if rateLimited {
			hint, ok := errors.RetryAfterHint(err)
			var hintPtr *time.Duration
			if ok {
				hintPtr = &hint
			}
			o.limiter.RecordRateLimit(http.StatusTooManyRequests, hintPtr)
			o.collector.Record(metric.Event{Type: metric.RateLimited, RequestID: requestID, Attempt: attempt})
		}

		var retryable bool
		if rateLimited {
			retryable = attempt < o.policy.MaxAttempts
		} else {
			retryable = o.policy.ShouldRetry(err, attempt)
		}
		if !retryable {
			return err
		}

		// Indexed by retries already waited, so the first retry is
		// immediate: Delay(0) == 0.
		delay := o.policy.Delay(attempt - 1)
		if rateLimited {
			if hint, ok := errors.RetryAfterHint(err); ok {
				delay = hint
			}
		}

		o.collector.Record(metric.Event{Type: metric.RequestRetried, RequestID: requestID, Attempt: attempt})
		o.logger.Warn("retrying request",
			"request_id", requestID,
			"attempt", attempt,
			"delay", delay,
			"error", err)

		if serr := o.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

// attempt opens one stream and decodes it to completion, staging decoded
// events into staged. Returns nil on a clean message_stop or EOF.
func (o *Orchestrator) attempt(ctx context.Context, req Request, requestID string, staged *[]protocol.StreamEvent) error {
	dec := decode.New(func(ev protocol.StreamEvent) {
		*staged = append(*staged, o.tagged(ev, requestID))
	}, decode.WithLogger(o.logger))

	stream, err := o.transport.CreateStream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	done := make(chan struct{})
	defer close(done)

	events := make(chan protocol.RawEvent)
	readErr := make(chan error, 1)
	go func() {
		for {
			ev, err := stream.Next()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	var watchdog *time.Timer
	var expired <-chan time.Time
	if o.inactivity > 0 {
		watchdog = time.NewTimer(o.inactivity)
		expired = watchdog.C
		defer watchdog.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-expired:
			return errors.NewTimeoutError("stream inactive", nil)

		case err := <-readErr:
			if err == io.EOF {
				return nil
			}
			return err

		case ev := <-events:
			if watchdog != nil {
				if !watchdog.Stop() {
					select {
					case <-watchdog.C:
					default:
					}
				}
				watchdog.Reset(o.inactivity)
			}

			switch ev.Type() {
			case protocol.EventMessageStop:
				return nil
			case protocol.EventError:
				return errors.NewServerError(0, ev.ErrorMessage())
			case protocol.EventMessageDelta:
				*staged = append(*staged, o.tagged(protocol.DeltaEvent(ev), requestID))
			case protocol.EventPing, protocol.EventMessageStart:
				// keepalive and preamble, nothing to surface
			default:
				dec.Feed(ev)
			}
		}
	}
}

func (o *Orchestrator) tagged(ev protocol.StreamEvent, requestID string) protocol.StreamEvent {
	ev.RequestID = requestID
	return ev
}

func (o *Orchestrator) flush(ctx context.Context, out chan<- protocol.StreamEvent, staged []protocol.StreamEvent) {
	for _, ev := range staged {
		o.emit(ctx, out, ev)
	}
}

func (o *Orchestrator) emit(ctx context.Context, out chan<- protocol.StreamEvent, ev protocol.StreamEvent) {
	select {
	case out <- ev:
		o.collector.Record(metric.Event{
			Type:      metric.StreamEmitted,
			RequestID: ev.RequestID,
			Detail:    ev.Kind.String(),
		})
	case <-ctx.Done():
	}
}
