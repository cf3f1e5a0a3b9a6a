package uistream

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/uistream/config"
	"github.com/c360/uistream/handler"
	"github.com/c360/uistream/metric"
	"github.com/c360/uistream/protocol"
)

type fakeStream struct {
	events []protocol.RawEvent
	pos    int
}

func (s *fakeStream) Next() (protocol.RawEvent, error) {
	if s.pos < len(s.events) {
		ev := s.events[s.pos]
		s.pos++
		return ev, nil
	}
	return nil, io.EOF
}

func (s *fakeStream) Close() error { return nil }

type fakeTransport struct {
	events []protocol.RawEvent
	body   map[string]any
}

func (t *fakeTransport) CreateStream(_ context.Context, _ handler.Request) (handler.EventStream, error) {
	return &fakeStream{events: t.events}, nil
}

func (t *fakeTransport) Fetch(_ context.Context, _ handler.Request) (map[string]any, error) {
	return t.body, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.API.BaseURL = "https://api.example.com"
	cfg.API.APIKey = "test-key"
	return cfg
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	_, err := New(cfg)
	require.Error(t, err)
}

func TestClientStream_EndToEnd(t *testing.T) {
	tp := &fakeTransport{events: []protocol.RawEvent{
		{
			"type":  protocol.EventContentBlockDelta,
			"index": float64(0),
			"delta": map[string]any{"type": protocol.DeltaTypeText, "text": "hello"},
		},
		{"type": protocol.EventMessageStop},
	}}

	client, err := New(testConfig(), WithTransport(tp))
	require.NoError(t, err)

	var got []protocol.StreamEvent
	for ev := range client.Stream(context.Background(), handler.Request{Model: "m"}) {
		got = append(got, ev)
	}

	require.Len(t, got, 2)
	assert.Equal(t, protocol.KindTextDelta, got[0].Kind)
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, protocol.KindComplete, got[1].Kind)

	stats := client.Metrics().Stats()
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.Succeeded)
}

func TestClientComplete_UsesFetch(t *testing.T) {
	tp := &fakeTransport{body: map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": "done"},
		},
	}}

	client, err := New(testConfig(), WithTransport(tp))
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), handler.Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text)

	started := client.Metrics().EventsOfType(metric.RequestStarted)
	assert.Len(t, started, 1)
}
