// Package transport implements the HTTP/SSE adapter consumed by the
// orchestrator. It is deliberately thin glue: request marshalling, header
// handling, status-to-error mapping, and SSE line framing. All resilience
// behavior lives above it.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/c360/uistream/errors"
	"github.com/c360/uistream/handler"
	"github.com/c360/uistream/pkg/ratelimit"
	"github.com/c360/uistream/protocol"
)

const (
	defaultHeaderTimeout = 60 * time.Second
	messagesPath         = "/v1/messages"
)

// Client talks to the upstream messages API
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	headerTimeout time.Duration
	logger        *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestTimeout bounds the wait for response headers. A whole-request
// deadline would cut long-lived streams, so the limit applies to first byte
// only; callers bound the body through context or the inactivity watchdog.
// Ignored when WithHTTPClient injects a client.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.headerTimeout = d }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the API at baseURL
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		headerTimeout: defaultHeaderTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: c.headerTimeout},
		}
	}
	return c
}

// CreateStream opens a streaming call. The caller owns the returned stream
// and must Close it.
func (c *Client) CreateStream(ctx context.Context, req handler.Request) (handler.EventStream, error) {
	resp, err := c.post(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return &sseStream{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
		logger: c.logger,
	}, nil
}

// Fetch performs a non-streaming call and decodes the response body
func (c *Client) Fetch(ctx context.Context, req handler.Request) (map[string]any, error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.WrapInvalid(err, "Client", "Fetch", "decode response body")
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, req handler.Request, stream bool) (*http.Response, error) {
	payload := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
		"stream":   stream,
	}
	if req.System != "" {
		payload["system"] = req.System
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "post", "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Client", "post", "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.NewNetworkError("request failed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.statusError(resp)
	}
	return resp, nil
}

// statusError maps a non-2xx response to the error taxonomy, reading the
// Retry-After header when present.
func (c *Client) statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var retryAfter time.Duration
	if hint := ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After")); hint != nil {
		retryAfter = *hint
	}

	c.logger.Warn("upstream returned error status",
		"status", resp.StatusCode,
		"retry_after", retryAfter)
	return errors.StatusError(resp.StatusCode, string(data), retryAfter)
}

// sseStream frames raw events out of a text/event-stream body. Data lines
// between blank lines form one event payload; event-name and comment lines
// are skipped since the payload carries its own type field.
type sseStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	logger *slog.Logger
}

func (s *sseStream) Next() (protocol.RawEvent, error) {
	var data strings.Builder

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && data.Len() > 0 {
				return s.decode(data.String())
			}
			return nil, err
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if data.Len() > 0 {
				return s.decode(data.String())
			}
			// Blank line with no pending data, keep reading.
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "event:"), strings.HasPrefix(line, ":"):
			// Event names duplicate the payload type field; comments are keepalive.
		default:
			s.logger.Debug("skipping unrecognized SSE line", "line", line)
		}
	}
}

func (s *sseStream) decode(payload string) (protocol.RawEvent, error) {
	var ev protocol.RawEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, errors.NewMessageParseError(fmt.Sprintf("malformed SSE payload: %.120s", payload), err)
	}
	return ev, nil
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
