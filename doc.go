// Package uistream is a client-side resilience and protocol-translation
// layer for token-streaming model APIs that drive generative UIs.
//
// The handler package orchestrates each call: circuit breaking, retry with
// backoff, rate-limit windows, and request deduplication wrap a thin
// HTTP/SSE transport. The decode and protocol packages turn the wire event
// stream into a normalized event sequence of text deltas, structured
// UI-control messages, and thinking content. The binding package links the
// resulting widget tree to a shared reactive data model, and metric plus
// output/websocket provide the observability and fan-out side channels.
package uistream
