package uistream

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/uistream/config"
	"github.com/c360/uistream/handler"
	"github.com/c360/uistream/metric"
	"github.com/c360/uistream/pkg/breaker"
	"github.com/c360/uistream/pkg/dedup"
	"github.com/c360/uistream/pkg/ratelimit"
	"github.com/c360/uistream/protocol"
	"github.com/c360/uistream/transport"
)

// Client assembles the full stack from configuration: transport, circuit
// breaker, rate limiter, deduplicator, metrics, and the orchestrator wiring
// them together.
type Client struct {
	orchestrator *handler.Orchestrator
	collector    *metric.Collector
}

// Option configures a Client
type Option func(*clientDeps)

type clientDeps struct {
	transport handler.Transport
	logger    *slog.Logger
	registry  prometheus.Registerer
	natsConn  *nats.Conn
}

// WithTransport overrides the HTTP transport, mainly for tests
func WithTransport(t handler.Transport) Option {
	return func(d *clientDeps) { d.transport = t }
}

// WithLogger sets the logger for every component
func WithLogger(logger *slog.Logger) Option {
	return func(d *clientDeps) { d.logger = logger }
}

// WithMetricsRegistry registers Prometheus instruments with reg
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(d *clientDeps) { d.registry = reg }
}

// WithNATSConn enables metric fanout over the given connection
func WithNATSConn(nc *nats.Conn) Option {
	return func(d *clientDeps) { d.natsConn = nc }
}

// New builds a client from cfg
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deps := &clientDeps{logger: slog.Default()}
	for _, opt := range opts {
		opt(deps)
	}

	collectorOpts := []metric.Option{
		metric.WithMaxEvents(cfg.Metrics.MaxEvents),
		metric.WithLogger(deps.logger),
	}
	if deps.registry != nil {
		collectorOpts = append(collectorOpts, metric.WithRegistry(deps.registry))
	}
	if deps.natsConn != nil {
		collectorOpts = append(collectorOpts, metric.WithNATSFanout(deps.natsConn, cfg.Metrics.NATSSubject))
	}
	collector := metric.NewCollector(collectorOpts...)

	brk := breaker.New(cfg.Breaker.BreakerConfig(),
		breaker.WithStateChange(collector.BreakerHook()))

	limiter := ratelimit.New(
		ratelimit.WithDefaultWindow(cfg.RateLimit.DefaultWindow.Std()),
		ratelimit.WithLogger(deps.logger))

	dedupe := dedup.New[protocol.FullResponse](cfg.Dedup.DedupConfig(),
		dedup.WithCollapseHook[protocol.FullResponse](collector.RecordDedupCollapse))

	tp := deps.transport
	if tp == nil {
		tp = transport.New(cfg.API.BaseURL, cfg.API.APIKey,
			transport.WithRequestTimeout(cfg.Stream.RequestTimeout.Std()),
			transport.WithLogger(deps.logger))
	}

	orch := handler.New(tp,
		handler.WithBreaker(brk),
		handler.WithRetryPolicy(cfg.Retry.Policy()),
		handler.WithRateLimiter(limiter),
		handler.WithDeduplicator(dedupe),
		handler.WithCollector(collector),
		handler.WithInactivityTimeout(cfg.Stream.InactivityTimeout.Std()),
		handler.WithBufferSize(cfg.Stream.BufferSize),
		handler.WithLogger(deps.logger))

	return &Client{orchestrator: orch, collector: collector}, nil
}

// Stream performs a streaming model call
func (c *Client) Stream(ctx context.Context, req handler.Request) <-chan protocol.StreamEvent {
	return c.orchestrator.Stream(ctx, req)
}

// Complete performs a non-streaming model call
func (c *Client) Complete(ctx context.Context, req handler.Request) (protocol.FullResponse, error) {
	return c.orchestrator.Complete(ctx, req)
}

// Metrics exposes the lifecycle event collector
func (c *Client) Metrics() *metric.Collector {
	return c.collector
}
