// Package vapi talks to the voice-agent provider. Responses are loosely
// shaped; everything is decoded into untyped documents at this boundary and
// normalized before the rest of the service sees it.
package vapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	apiKey  string
	baseURL string
	client  HTTPDoer
	logger  *slog.Logger
}

func NewClient(apiKey, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// CallRecord is the provider's call object, kept as an untyped document.
// Field names vary across provider versions; accessors absorb that.
type CallRecord map[string]any

// ID returns the provider-assigned call id.
func (c CallRecord) ID() string {
	s, _ := c["id"].(string)
	return s
}

// CreatedAtRaw returns the creation timestamp string under either field-name
// convention, or "" when absent.
func (c CallRecord) CreatedAtRaw() string {
	if s, ok := c["createdAt"].(string); ok {
		return s
	}
	if s, ok := c["created_at"].(string); ok {
		return s
	}
	return ""
}

// DurationSeconds returns the call duration. When no duration field exists it
// falls back to the endedAt field: a numeric endedAt is used directly, a
// timestamp endedAt is coerced to Unix seconds. The fallback conflates a
// point in time with a duration; callers display the value, nothing computes
// with it.
func (c CallRecord) DurationSeconds() float64 {
	if f, ok := toFloat(c["duration"]); ok {
		return f
	}
	switch v := c["endedAt"].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return float64(t.Unix())
		}
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// ListCalls fetches up to limit calls with the given status. Provider errors
// and transport failures yield an empty list, never an error: "no calls" is a
// normal outcome for callers.
func (c *Client) ListCalls(ctx context.Context, limit int, status string) []CallRecord {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("status", status)

	body, err := c.get(ctx, "/call?"+q.Encode())
	if err != nil {
		c.logger.Warn("failed to list calls", "error", err)
		return nil
	}

	// The provider returns either a bare array or {"data": [...]}.
	var calls []CallRecord
	if err := json.Unmarshal(body, &calls); err == nil {
		return calls
	}
	var wrapped struct {
		Data []CallRecord `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data
	}

	c.logger.Warn("unexpected call list response shape", "body_len", len(body))
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
