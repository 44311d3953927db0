package nets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/crease/internal/domain/innings"
	"github.com/okian/crease/internal/domain/model"
	"github.com/okian/crease/internal/domain/types"
)

// ErrUnexpectedStatus is returned for any non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected status")

// APIError is the decoded {code, message} body of a failed request.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return ErrUnexpectedStatus }

// Client talks to the session API.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base:   baseURL,
		client: &http.Client{Timeout: timeout},
	}
}

// Health checks that the service answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Players lists the selectable batters.
func (c *Client) Players(ctx context.Context) ([]model.PlayerProfile, error) {
	var out []model.PlayerProfile
	err := c.do(ctx, http.MethodGet, "/players", nil, &out)
	return out, err
}

// StartSession opens a session for handle batting as player.
func (c *Client) StartSession(ctx context.Context, player, handle string) (types.SessionView, error) {
	var out types.SessionView
	err := c.do(ctx, http.MethodPost, "/sessions", map[string]string{"player": player, "handle": handle}, &out)
	return out, err
}

// Swipe sends one gesture under swipeID.
func (c *Client) Swipe(ctx context.Context, id, swipeID string, g model.SwipeGesture) (types.SwipeResult, error) {
	body := struct {
		SwipeID string `json:"swipe_id,omitempty"`
		model.SwipeGesture
	}{SwipeID: swipeID, SwipeGesture: g}

	var out types.SwipeResult
	err := c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/swipes", body, &out)
	return out, err
}

// Next finishes presenting the current delivery.
func (c *Client) Next(ctx context.Context, id string) (types.SessionView, error) {
	var out types.SessionView
	err := c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/next", nil, &out)
	return out, err
}

// Reset starts a fresh innings in the same session.
func (c *Client) Reset(ctx context.Context, id string) (types.SessionView, error) {
	var out types.SessionView
	err := c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/reset", nil, &out)
	return out, err
}

// EndSession removes the session.
func (c *Client) EndSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil)
}

// Scorecard fetches the summary of the current innings with its printable card.
func (c *Client) Scorecard(ctx context.Context, id string) (innings.Summary, string, error) {
	var out struct {
		innings.Summary
		Card string `json:"card"`
	}
	err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(id)+"/scorecard", nil, &out)
	return out.Summary, out.Card, err
}

// Leaderboard fetches the top limit rows.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	var out []types.Entry
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/leaderboard?limit=%d", limit), nil, &out)
	return out, err
}

// Rank fetches the leaderboard row of handle.
func (c *Client) Rank(ctx context.Context, handle string) (types.Entry, error) {
	var out types.Entry
	err := c.do(ctx, http.MethodGet, "/rank/"+url.PathEscape(handle), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return fmt.Errorf("%s %s: %w", method, path, apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}
