// Package gateway is the sole boundary to the spreadsheet backend. Every
// remote operation is one action name plus a payload object posted to a
// single endpoint and decoded from the JSON response.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Payload carries the action parameters for a single backend call.
type Payload map[string]any

// Error describes a non-success transport response. It keeps the action name
// and status so callers can decide recoverability per-action.
type Error struct {
	Action string
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: action %q failed with status %d: %s", e.Action, e.Status, e.Body)
}

// Option customises the client configuration.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client, typically to control timeouts
// or for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger injects a structured logger. The default is a no-op logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client posts action envelopes to the backend web-app endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.SugaredLogger
}

// New constructs a Client for the given endpoint URL.
func New(endpoint string, options ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, errors.New("gateway: endpoint is required")
	}
	c := &Client{
		endpoint: trimmed,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

// Call serialises {action, ...payload} as the request body and decodes the
// awaited JSON response. The backend answers with either an object or an
// array depending on the action, so the result is left untyped; the
// normalization layer is the single point that gives it shape. A non-2xx
// response surfaces as *Error.
func (c *Client) Call(ctx context.Context, action string, payload Payload) (any, error) {
	if ctx == nil {
		return nil, errors.New("gateway: context is required")
	}
	if strings.TrimSpace(action) == "" {
		return nil, errors.New("gateway: action is required")
	}

	body := make(map[string]any, len(payload)+1)
	for key, value := range payload {
		body[key] = value
	}
	body["action"] = action

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode %q payload: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("gateway: build %q request: %w", action, err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	c.logger.Debugw("gateway call", "action", action)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: action %q: %w", action, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: read %q response: %w", action, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Warnw("gateway call failed", "action", action, "status", res.StatusCode)
		return nil, &Error{Action: action, Status: res.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("gateway: decode %q response: %w", action, err)
	}
	return decoded, nil
}
