package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stagehand-dev/stagehand/internal/domain"
)

// probeTimeout bounds one liveness check.
const probeTimeout = 2 * time.Second

// ServerTransport is the session channel to a long-lived backend server.
type ServerTransport interface {
	Alive(ctx context.Context) bool
	CreateSession(ctx context.Context) (string, error)
	SendMessage(ctx context.Context, sessionID, prompt string) (string, error)
	StreamMessage(ctx context.Context, sessionID, prompt string) (<-chan string, error)
	Close() error
}

// Client drives the backend HTTP contract: POST /session,
// POST /session/{id}/message, POST /session/{id}/prompt_async and the
// GET /event SSE channel.
type Client struct {
	base   string
	http   *http.Client // request/response calls, bounded by timeout
	stream *http.Client // SSE reads, bounded only by the caller's ctx
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: timeout},
		stream: &http.Client{},
	}
}

// BaseURL returns the server base URL the client was built with.
func (c *Client) BaseURL() string {
	return c.base
}

// Alive reports whether the server answers on its root endpoint. Any
// 200 counts; the backend exposes no dedicated health endpoint.
func (c *Client) Alive(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.base+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// CreateSession opens a server-side conversational context and returns
// its opaque id.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	body, err := c.post(ctx, "/session", nil)
	if err != nil {
		return "", err
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &session); err != nil || session.ID == "" {
		return "", domain.Errorf(domain.FailTransport, "create session",
			"response carries no session id: %s", snippet(body))
	}
	return session.ID, nil
}

// SendMessage posts a prompt to the session and extracts the reply text.
func (c *Client) SendMessage(ctx context.Context, sessionID, prompt string) (string, error) {
	body, err := c.post(ctx, "/session/"+sessionID+"/message", messageBody(prompt))
	if err != nil {
		return "", err
	}
	return ExtractMessageText(body), nil
}

// StreamMessage fires the prompt without waiting for completion, then
// subscribes to the session's event stream. The returned channel yields
// text fragments as the server emits them and is closed when the server
// reports message completion. Consuming it is the only way to drain the
// stream; a caller abandoning mid-stream must cancel ctx, which releases
// the underlying connection without blocking the producer.
func (c *Client) StreamMessage(ctx context.Context, sessionID, prompt string) (<-chan string, error) {
	if _, err := c.post(ctx, "/session/"+sessionID+"/prompt_async", messageBody(prompt)); err != nil {
		return nil, err
	}

	eventURL := c.base + "/event?" + url.Values{"session": {sessionID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eventURL, nil)
	if err != nil {
		return nil, domain.WrapErr(domain.FailTransport, "subscribe events", err)
	}
	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, domain.WrapErr(domain.FailTransport, "subscribe events", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, domain.Errorf(domain.FailTransport, "subscribe events",
			"HTTP %d from %s", resp.StatusCode, eventURL)
	}

	fragments := make(chan string)
	go func() {
		defer close(fragments)
		defer resp.Body.Close()
		readEventStream(ctx, resp.Body, fragments)
	}()
	return fragments, nil
}

// Close releases idle connections. Open streams are released by their
// own contexts.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	c.stream.CloseIdleConnections()
	return nil
}

func messageBody(prompt string) []byte {
	body, _ := json.Marshal(map[string]any{
		"parts": []map[string]string{{"type": "text", "text": prompt}},
	})
	return body
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, domain.WrapErr(domain.FailTransport, "POST "+path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.WrapErr(domain.FailTransport, "POST "+path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.WrapErr(domain.FailTransport, "POST "+path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.Errorf(domain.FailTransport, "POST "+path,
			"HTTP %d: %s", resp.StatusCode, snippet(data))
	}
	return data, nil
}

// ExtractMessageText pulls the reply text out of a message response
// body. The server represents a message either as typed parts or as a
// flat text field; unknown shapes degrade to a string rendering of the
// whole body rather than failing.
func ExtractMessageText(body []byte) string {
	var msg struct {
		Parts []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"parts"`
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(body, &msg); err == nil {
		if len(msg.Parts) > 0 {
			var b strings.Builder
			for _, part := range msg.Parts {
				if part.Type == "text" {
					b.WriteString(part.Text)
				}
			}
			return b.String()
		}
		if msg.Text != nil {
			return *msg.Text
		}
	}
	return string(body)
}

func snippet(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	if s == "" {
		return "<empty body>"
	}
	return s
}

var _ ServerTransport = (*Client)(nil)
