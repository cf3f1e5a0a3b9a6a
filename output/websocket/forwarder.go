// Package websocket forwards normalized stream events to connected UI
// clients over WebSocket. Delivery is fire-and-forget: a slow or failed
// client is dropped, never allowed to stall the stream.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/c360/uistream/protocol"
)

// Envelope is the wire shape of one forwarded event
type Envelope struct {
	Kind      string          `json:"kind"`
	RequestID string          `json:"request_id,omitempty"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Complete  bool            `json:"complete,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	Raw       map[string]any  `json:"raw,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// envelope converts a stream event to its wire shape
func envelope(ev protocol.StreamEvent) (Envelope, error) {
	env := Envelope{
		Kind:      ev.Kind.String(),
		RequestID: ev.RequestID,
	}

	switch ev.Kind {
	case protocol.KindTextDelta:
		env.Text = ev.Text
	case protocol.KindThinking:
		env.Thinking = ev.Thinking
		env.Complete = ev.ThinkingComplete
	case protocol.KindMessage:
		data, err := protocol.MarshalMessage(ev.Message)
		if err != nil {
			return Envelope{}, err
		}
		env.Message = data
	case protocol.KindDelta:
		env.Raw = ev.Raw
	case protocol.KindError:
		if ev.Err != nil {
			env.Error = ev.Err.Error()
		}
	}
	return env, nil
}

// Forwarder is an http.Handler that upgrades connections and broadcasts
// stream events to every connected client.
type Forwarder struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
}

// Option configures a Forwarder
type Option func(*Forwarder)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(f *Forwarder) { f.logger = logger }
}

// WithCheckOrigin overrides the upgrade origin check
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(f *Forwarder) { f.upgrader.CheckOrigin = fn }
}

// New creates a forwarder
func New(opts ...Option) *Forwarder {
	f := &Forwarder{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger:  slog.Default(),
		clients: make(map[*websocket.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ServeHTTP upgrades the request and registers the connection
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return
	}
	f.clients[conn] = struct{}{}
	f.mu.Unlock()

	f.logger.Debug("websocket client connected", "remote", conn.RemoteAddr())

	// Drain reads so close frames and pings are processed; clients never
	// send application data.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.remove(conn)
				return
			}
		}
	}()
}

// Broadcast sends one event to every connected client. Connections allow a
// single writer, so Broadcast must not be called concurrently with itself;
// Forward satisfies this by draining one channel from one goroutine.
func (f *Forwarder) Broadcast(ev protocol.StreamEvent) {
	env, err := envelope(ev)
	if err != nil {
		f.logger.Error("failed to encode stream event", "kind", ev.Kind.String(), "error", err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		f.logger.Error("failed to marshal envelope", "error", err)
		return
	}

	f.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(f.clients))
	for conn := range f.clients {
		conns = append(conns, conn)
	}
	f.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			f.logger.Debug("dropping websocket client", "remote", conn.RemoteAddr(), "error", err)
			f.remove(conn)
		}
	}
}

// Forward broadcasts every event from ch until it closes or ctx ends
func (f *Forwarder) Forward(ctx context.Context, ch <-chan protocol.StreamEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			f.Broadcast(ev)
		}
	}
}

// Clients returns the number of connected clients
func (f *Forwarder) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects every client and rejects future connections
func (f *Forwarder) Close() {
	f.mu.Lock()
	f.closed = true
	conns := make([]*websocket.Conn, 0, len(f.clients))
	for conn := range f.clients {
		conns = append(conns, conn)
	}
	f.clients = make(map[*websocket.Conn]struct{})
	f.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

func (f *Forwarder) remove(conn *websocket.Conn) {
	f.mu.Lock()
	_, present := f.clients[conn]
	delete(f.clients, conn)
	f.mu.Unlock()

	if present {
		conn.Close()
		f.logger.Debug("websocket client disconnected", "remote", conn.RemoteAddr())
	}
}
