// Package perception talks to the screen-capture backend and turns its
// output into observations the planner can reason over. Two strategies
// exist: "ocr" renders located text into a line summary, "image" forwards
// the raw screenshot only.
package perception

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/orderly-agent/orderly/internals/agent"
)

const (
	StrategyOCR   = "ocr"
	StrategyImage = "image"
)

// minConfidence mirrors the backend's word filter. Words below it are
// noise from anti-aliased UI chrome and get dropped.
const minConfidence = 30

type Client struct {
	baseURL    string
	strategy   string
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

// New builds a perceptor for the given strategy against the backend at
// baseURL. The strategy name comes straight from config and is validated
// here so a typo fails at startup, not mid-task.
func New(strategy, baseURL string, opts ...Option) (*Client, error) {
	if strategy != StrategyOCR && strategy != StrategyImage {
		return nil, fmt.Errorf("unknown perception strategy %q", strategy)
	}
	client := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		strategy: strategy,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type captureResponse struct {
	ImagePNG string          `json:"image_png"`
	Words    []agent.Element `json:"words"`
}

// Capture asks the backend for one screenshot plus, under the ocr
// strategy, the word boxes it located. Retrying is the caller's concern.
func (c *Client) Capture(ctx context.Context) (*agent.Observation, error) {
	url := c.baseURL + "/capture"
	if c.strategy == StrategyImage {
		url += "?mode=image"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("perception backend returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload captureResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding capture response: %w", err)
	}
	if payload.ImagePNG == "" {
		return nil, fmt.Errorf("capture response carried no image")
	}
	image, err := base64.StdEncoding.DecodeString(payload.ImagePNG)
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot: %w", err)
	}

	obs := &agent.Observation{
		ImagePNG: image,
		TakenAt:  time.Now().UTC(),
	}
	if c.strategy == StrategyOCR {
		obs.Elements = filterWords(payload.Words)
		obs.Summary = Summarize(obs.Elements)
	}
	return obs, nil
}

func filterWords(words []agent.Element) []agent.Element {
	kept := make([]agent.Element, 0, len(words))
	for _, w := range words {
		w.Text = strings.TrimSpace(w.Text)
		if w.Text == "" || w.Confidence < minConfidence {
			continue
		}
		if w.CenterX == 0 && w.CenterY == 0 {
			w.CenterX = w.X + w.Width/2
			w.CenterY = w.Y + w.Height/2
		}
		kept = append(kept, w)
	}
	return kept
}
