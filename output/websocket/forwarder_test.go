package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/uistream/protocol"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, f *Forwarder, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, f.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestForwarder_BroadcastTextDelta(t *testing.T) {
	f := New()
	defer f.Close()
	srv := httptest.NewServer(f)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, f, 1)

	ev := protocol.TextDeltaEvent("Hello")
	ev.RequestID = "req-1"
	f.Broadcast(ev)

	env := readEnvelope(t, conn)
	assert.Equal(t, "text_delta", env.Kind)
	assert.Equal(t, "Hello", env.Text)
	assert.Equal(t, "req-1", env.RequestID)
}

func TestForwarder_BroadcastStructuredMessage(t *testing.T) {
	f := New()
	defer f.Close()
	srv := httptest.NewServer(f)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, f, 1)

	f.Broadcast(protocol.MessageEvent(protocol.BeginRendering{SurfaceID: "s1"}))

	env := readEnvelope(t, conn)
	assert.Equal(t, "message", env.Kind)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(env.Message, &msg))
	assert.Equal(t, protocol.TagBeginRendering, msg["type"])
	assert.Equal(t, "s1", msg["surfaceId"])
}

func TestForwarder_MultipleClients(t *testing.T) {
	f := New()
	defer f.Close()
	srv := httptest.NewServer(f)
	defer srv.Close()

	c1 := dial(t, srv)
	c2 := dial(t, srv)
	waitForClients(t, f, 2)

	f.Broadcast(protocol.CompleteEvent())

	assert.Equal(t, "complete", readEnvelope(t, c1).Kind)
	assert.Equal(t, "complete", readEnvelope(t, c2).Kind)
}

func TestForwarder_Forward(t *testing.T) {
	f := New()
	defer f.Close()
	srv := httptest.NewServer(f)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, f, 1)

	ch := make(chan protocol.StreamEvent, 2)
	ch <- protocol.TextDeltaEvent("a")
	ch <- protocol.CompleteEvent()
	close(ch)

	done := make(chan struct{})
	go func() {
		f.Forward(context.Background(), ch)
		close(done)
	}()

	assert.Equal(t, "a", readEnvelope(t, conn).Text)
	assert.Equal(t, "complete", readEnvelope(t, conn).Kind)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Forward did not return after channel close")
	}
}

func TestForwarder_DroppedClientRemoved(t *testing.T) {
	f := New()
	defer f.Close()
	srv := httptest.NewServer(f)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, f, 1)

	conn.Close()
	// The read pump notices the close and removes the client.
	waitForClients(t, f, 0)
}

func TestForwarder_CloseRejectsNewClients(t *testing.T) {
	f := New()
	srv := httptest.NewServer(f)
	defer srv.Close()

	dial(t, srv)
	waitForClients(t, f, 1)

	f.Close()
	assert.Zero(t, f.Clients())
}
