package metric

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/uistream/pkg/breaker"
)

// EventType identifies a request lifecycle event
type EventType string

// Lifecycle event types
const (
	RequestStarted   EventType = "request_started"
	RequestSucceeded EventType = "request_succeeded"
	RequestFailed    EventType = "request_failed"
	RequestRetried   EventType = "request_retried"
	RateLimited      EventType = "rate_limited"
	CircuitOpened    EventType = "circuit_opened"
	CircuitClosed    EventType = "circuit_closed"
	StreamEmitted    EventType = "stream_event"
)

// Event is one recorded lifecycle event
type Event struct {
	Type      EventType     `json:"type"`
	RequestID string        `json:"request_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Attempt   int           `json:"attempt,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Error     string        `json:"error,omitempty"`
	Detail    string        `json:"detail,omitempty"`
}

// Stats holds aggregate statistics derived from the event log
type Stats struct {
	TotalRequests  int64
	Succeeded      int64
	Failed         int64
	Retries        int64
	RateLimits     int64
	SuccessRate    float64
	AverageLatency time.Duration
}

// Collector is an append-only lifecycle event bus. It keeps a bounded
// in-memory log for inspection, updates Prometheus instruments, and
// optionally publishes every event as JSON to a NATS subject for remote
// observability. Recording is for observability, never correctness; all
// methods are safe for concurrent use and a Record call never fails the
// caller.
type Collector struct {
	mu     sync.Mutex
	events []Event
	start  int // ring start when the bound is reached

	totalRequests int64
	succeeded     int64
	failed        int64
	retries       int64
	rateLimits    int64
	totalLatency  time.Duration

	maxEvents int
	metrics   *Metrics
	nc        *nats.Conn
	subject   string
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Collector
type Option func(*Collector)

// WithMaxEvents bounds the in-memory event log (default 1000). Older events
// are discarded first once the bound is reached.
func WithMaxEvents(n int) Option {
	return func(c *Collector) { c.maxEvents = n }
}

// WithRegistry registers Prometheus instruments with reg
func WithRegistry(reg prometheus.Registerer) Option {
	return func(c *Collector) {
		c.metrics = NewMetrics()
		// Registration failures are logged, not fatal: observability is
		// never allowed to break the client.
		if err := c.metrics.Register(reg); err != nil {
			c.logger.Error("metric registration failed", "error", err)
		}
	}
}

// WithNATSFanout publishes every recorded event as JSON to subject on nc.
// A nil connection disables publishing.
func WithNATSFanout(nc *nats.Conn, subject string) Option {
	return func(c *Collector) {
		c.nc = nc
		c.subject = subject
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// WithClock injects a clock for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// NewCollector creates a collector
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		maxEvents: 1000,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Record appends a lifecycle event. The timestamp is filled in when zero.
func (c *Collector) Record(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now()
	}

	c.mu.Lock()
	c.appendLocked(event)
	c.aggregateLocked(event)
	c.mu.Unlock()

	c.instrument(event)
	c.publish(event)
}

// Events returns a copy of the retained event log, oldest first
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Event, 0, len(c.events))
	for i := 0; i < len(c.events); i++ {
		out = append(out, c.events[(c.start+i)%len(c.events)])
	}
	return out
}

// EventsOfType returns retained events matching t, oldest first
func (c *Collector) EventsOfType(t EventType) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Stats returns aggregate statistics over every recorded event, including
// those no longer retained in the bounded log.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		TotalRequests: c.totalRequests,
		Succeeded:     c.succeeded,
		Failed:        c.failed,
		Retries:       c.retries,
		RateLimits:    c.rateLimits,
	}
	completed := c.succeeded + c.failed
	if completed > 0 {
		s.SuccessRate = float64(c.succeeded) / float64(completed)
		s.AverageLatency = c.totalLatency / time.Duration(completed)
	}
	return s
}

// SetBreakerState updates the breaker-state gauge (0=closed, 1=open, 2=half-open)
func (c *Collector) SetBreakerState(state int) {
	if c.metrics != nil {
		c.metrics.BreakerState.Set(float64(state))
	}
}

// BreakerHook returns a state-change callback for breaker.WithStateChange
// that records circuit transitions and keeps the state gauge current.
func (c *Collector) BreakerHook() func(breaker.State) {
	return func(s breaker.State) {
		c.SetBreakerState(int(s))
		switch s {
		case breaker.StateOpen:
			c.Record(Event{Type: CircuitOpened})
		case breaker.StateClosed:
			c.Record(Event{Type: CircuitClosed})
		}
	}
}

// SetRateLimitQueueDepth updates the queued-calls gauge
func (c *Collector) SetRateLimitQueueDepth(depth int) {
	if c.metrics != nil {
		c.metrics.QueuedRateLimit.Set(float64(depth))
	}
}

// RecordDedupCollapse counts a request collapsed onto an in-flight duplicate
func (c *Collector) RecordDedupCollapse() {
	if c.metrics != nil {
		c.metrics.DedupCollapses.Inc()
	}
}

// appendLocked stores an event in the bounded log. Must hold the lock.
func (c *Collector) appendLocked(event Event) {
	if len(c.events) < c.maxEvents {
		c.events = append(c.events, event)
		return
	}
	// Ring overwrite of the oldest entry.
	c.events[c.start] = event
	c.start = (c.start + 1) % len(c.events)
}

// aggregateLocked folds an event into the running totals. Must hold the lock.
func (c *Collector) aggregateLocked(event Event) {
	switch event.Type {
	case RequestStarted:
		c.totalRequests++
	case RequestSucceeded:
		c.succeeded++
		c.totalLatency += event.Duration
	case RequestFailed:
		c.failed++
		c.totalLatency += event.Duration
	case RequestRetried:
		c.retries++
	case RateLimited:
		c.rateLimits++
	}
}

// instrument updates Prometheus counters for an event
func (c *Collector) instrument(event Event) {
	if c.metrics == nil {
		return
	}
	switch event.Type {
	case RequestSucceeded:
		c.metrics.RequestsTotal.WithLabelValues("success").Inc()
		c.metrics.ObserveDuration(event.Duration)
	case RequestFailed:
		c.metrics.RequestsTotal.WithLabelValues("failure").Inc()
		c.metrics.ObserveDuration(event.Duration)
	case RequestRetried:
		c.metrics.RetriesTotal.Inc()
	case RateLimited:
		c.metrics.RateLimitsTotal.Inc()
	case StreamEmitted:
		c.metrics.StreamEventsOut.WithLabelValues(event.Detail).Inc()
	}
}

// publish fans an event out to NATS when configured. Publish failures are
// logged and swallowed.
func (c *Collector) publish(event Event) {
	nc := c.nc
	if nc == nil || c.subject == "" {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("failed to marshal metric event", "error", err)
		return
	}
	if err := nc.Publish(c.subject, data); err != nil {
		c.logger.Error("failed to publish metric event", "error", err, "subject", c.subject)
	}
}
