package handler

import (
	"context"

	"github.com/c360/uistream/protocol"
)

// EventStream iterates raw wire events from one open stream. Next returns
// io.EOF when the server closes the stream cleanly; any other error is a
// transport failure. Close releases the underlying connection and is safe
// to call more than once.
type EventStream interface {
	Next() (protocol.RawEvent, error)
	Close() error
}

// Transport opens model calls against the upstream API. Implementations
// carry no resilience logic of their own; the orchestrator owns retries,
// rate limiting, and circuit breaking.
type Transport interface {
	// CreateStream opens a streaming call and returns its event iterator.
	CreateStream(ctx context.Context, req Request) (EventStream, error)

	// Fetch performs a non-streaming call and returns the decoded response
	// body, a JSON object with a "content" array of blocks.
	Fetch(ctx context.Context, req Request) (map[string]any, error)
}
