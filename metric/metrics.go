package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Prometheus instruments for the streaming client
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RetriesTotal    prometheus.Counter
	RateLimitsTotal prometheus.Counter
	RequestDuration prometheus.Histogram
	BreakerState    prometheus.Gauge
	StreamEventsOut *prometheus.CounterVec
	DedupCollapses  prometheus.Counter
	QueuedRateLimit prometheus.Gauge
}

// NewMetrics creates the client metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uistream",
				Subsystem: "requests",
				Name:      "total",
				Help:      "Total number of stream requests by outcome",
			},
			[]string{"outcome"},
		),
		RetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "uistream",
				Subsystem: "requests",
				Name:      "retries_total",
				Help:      "Total number of retry attempts",
			},
		),
		RateLimitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "uistream",
				Subsystem: "requests",
				Name:      "rate_limits_total",
				Help:      "Total number of 429 responses observed",
			},
		),
		RequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "uistream",
				Subsystem: "requests",
				Name:      "duration_seconds",
				Help:      "Stream request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		BreakerState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "uistream",
				Subsystem: "breaker",
				Name:      "state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
		),
		StreamEventsOut: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "uistream",
				Subsystem: "stream",
				Name:      "events_total",
				Help:      "Normalized stream events emitted by kind",
			},
			[]string{"kind"},
		),
		DedupCollapses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "uistream",
				Subsystem: "dedup",
				Name:      "collapses_total",
				Help:      "Requests collapsed onto an in-flight duplicate",
			},
		),
		QueuedRateLimit: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "uistream",
				Subsystem: "ratelimit",
				Name:      "queued",
				Help:      "Calls queued behind an active rate-limit window",
			},
		),
	}
}

// Register registers all instruments with reg
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.RequestsTotal,
		m.RetriesTotal,
		m.RateLimitsTotal,
		m.RequestDuration,
		m.BreakerState,
		m.StreamEventsOut,
		m.DedupCollapses,
		m.QueuedRateLimit,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveDuration records a completed request duration
func (m *Metrics) ObserveDuration(d time.Duration) {
	m.RequestDuration.Observe(d.Seconds())
}
