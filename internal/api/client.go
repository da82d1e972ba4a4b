// Package api – goal endpoint client.
//
// The client is deliberately small: JSON in, JSON out, bearer-token auth,
// and a typed *Error for non-2xx responses so callers can distinguish "the
// server said no" from "the network said nothing". Timeouts ride on the
// injected http.Client; the queue manager enforces no deadline of its own.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the goal API on behalf of one authenticated principal.
type Client struct {
	// BaseURL is the server root, e.g. "https://api.example.com/api/v1".
	BaseURL string
	// Token is sent as a bearer credential on every request.
	Token string
	// HTTP is the underlying transport. Its Timeout bounds hung requests.
	HTTP *http.Client
}

// NewClient constructs a Client with a default transport timeout.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateGoal issues POST /goals and returns the created record.
func (c *Client) CreateGoal(ctx context.Context, req CreateGoalRequest) (*GoalRecord, error) {
	var out GoalRecord
	if err := c.do(ctx, http.MethodPost, "/goals", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateGoal issues PATCH /goals/{id} and returns the updated record.
func (c *Client) UpdateGoal(ctx context.Context, id string, req UpdateGoalRequest) (*GoalRecord, error) {
	var out GoalRecord
	if err := c.do(ctx, http.MethodPatch, "/goals/"+id, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGoal issues DELETE /goals/{id}.
func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/goals/"+id, nil, nil)
}

// ListGoals issues GET /goals for the authenticated principal.
func (c *Client) ListGoals(ctx context.Context) ([]GoalRecord, error) {
	var out []GoalRecord
	if err := c.do(ctx, http.MethodGet, "/goals", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBytes fetches an arbitrary idempotent read and returns the raw body.
// Absolute URLs are used as-is; relative paths are joined onto BaseURL.
// Used by the cached-fetch layer, which treats payloads as opaque blobs.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = c.BaseURL + "/" + strings.TrimLeft(url, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	c.auth(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

// do performs one JSON round-trip. A nil in skips the request body; a nil
// out discards the response body after status checking.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.auth(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// auth attaches the bearer credential when configured.
func (c *Client) auth(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

// apiError builds a typed *Error from a non-2xx response, tolerating bodies
// that are not the standard {"error": …} envelope.
func apiError(status int, body []byte) error {
	e := &Error{StatusCode: status}
	if err := json.Unmarshal(body, e); err != nil || e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
	}
	return e
}
