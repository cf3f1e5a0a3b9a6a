// Package metric records request lifecycle events for observability.
//
// The Collector keeps a bounded in-memory event log and running aggregates,
// optionally exposes Prometheus instruments, and can fan every event out as
// JSON over NATS for remote monitoring. Recording is best-effort: a failed
// publish or registration never propagates to the caller.
package metric
