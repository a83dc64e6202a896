// Package inputd is the client for the OS input-injection daemon. It
// posts one action at a time and surfaces the daemon's verdict; it never
// injects input in-process.
package inputd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/orderly-agent/orderly/internals/agent"
)

type Client struct {
	baseURL    string
	width      int
	height     int
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New builds an executor against the input daemon at baseURL. Display
// dimensions bound every coordinate before it leaves the process.
func New(baseURL string, width, height int, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		width:   width,
		height:  height,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type actionVerdict struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Execute posts one action to the daemon. Coordinates outside the display
// and key combinations are normalized here so every planner backend gets
// the same treatment.
func (c *Client) Execute(ctx context.Context, action agent.Action) error {
	if err := c.checkBounds(action); err != nil {
		return err
	}
	if action.Type == agent.ActionKeyCombination {
		action.Keys = NormalizeKeys(action.Keys)
	}

	body, err := json.Marshal(action)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/action", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("input daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("input daemon returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var verdict actionVerdict
	if err := json.Unmarshal(respBody, &verdict); err != nil {
		return fmt.Errorf("decoding input daemon verdict: %w", err)
	}
	if verdict.Status != "success" {
		if verdict.Error != "" {
			return fmt.Errorf("action rejected: %s", verdict.Error)
		}
		return fmt.Errorf("action rejected with status %q", verdict.Status)
	}
	return nil
}

func (c *Client) checkBounds(action agent.Action) error {
	switch action.Type {
	case agent.ActionMovePointer, agent.ActionClick, agent.ActionScroll:
		if action.X < 0 || action.X >= c.width || action.Y < 0 || action.Y >= c.height {
			return fmt.Errorf("coordinates (%d, %d) outside display %dx%d", action.X, action.Y, c.width, c.height)
		}
	}
	return nil
}
