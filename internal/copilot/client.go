// Package copilot talks to the case-review copilot's streaming chat endpoint.
//
// Example usage:
//
//	client := copilot.NewClient("http://localhost:8000")
//
//	var t copilot.Transcript
//	err := client.StreamChat(ctx, copilot.ChatRequest{Query: "Why was PO-1042 flagged?"}, &t)
//	fmt.Println(t.Answer())
//
// Connection failures and interrupted streams do not surface as errors: they
// arrive as a single "error" event through the handler, like any other event.
package copilot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"dcc/internal/stream"
	"dcc/internal/trace"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const DefaultEndpoint = "/api/copilot/stream"

var ErrEmptyQuery = errors.New("copilot: empty query")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of earlier conversation sent along with a question.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Query   string
	History []Turn
}

// chatPayload is the wire body of the streaming endpoint.
type chatPayload struct {
	Question string `json:"question"`
	History  []Turn `json:"history,omitempty"`
}

type Client struct {
	baseURL    string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client. Streams can last long, so it should
// not carry a Timeout; bound a stream with the request context instead.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithEndpoint overrides the path of the streaming endpoint.
func WithEndpoint(path string) ClientOption {
	return func(client *Client) {
		if path != "" {
			client.endpoint = "/" + strings.TrimPrefix(path, "/")
		}
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		if l != nil {
			client.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		endpoint: DefaultEndpoint,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StreamChat posts req and feeds every event of the response to h, in order.
// It returns an error only for an unusable request or when h fails.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest, h stream.Handler) error {
	if strings.TrimSpace(req.Query) == "" {
		return ErrEmptyQuery
	}

	body, err := json.Marshal(chatPayload{Question: req.Query, History: req.History})
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	ctx, span := trace.Tracer().Start(ctx, "copilot.stream_chat",
		oteltrace.WithAttributes(
			attribute.Int("copilot.question_length", len(req.Query)),
			attribute.Int("copilot.history_turns", len(req.History)),
		),
	)
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	counted := &countingHandler{next: h}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("copilot: request failed", "url", httpReq.URL.String(), "error", err)
		resp = nil
	} else {
		c.logger.Debug("copilot: stream opened", "status", resp.StatusCode)
	}

	err = stream.Run(resp, counted, stream.WithLogger(c.logger))

	span.SetAttributes(attribute.Int("copilot.events", counted.events))
	if counted.failed {
		span.SetStatus(codes.Error, "stream failed")
	}
	if err != nil {
		span.RecordError(err)
	}
	return err
}

type countingHandler struct {
	next   stream.Handler
	events int
	failed bool
}

func (c *countingHandler) HandleEvent(ev stream.Event) error {
	c.events++
	if ev.Type == stream.KindError {
		c.failed = true
	}
	return c.next.HandleEvent(ev)
}
