package planner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/orderly-agent/orderly/internals/agent"
)

// computerUse drives an OpenAI-compatible computer-use responses
// endpoint. The conversation is threaded server-side through
// previous_response_id; each turn sends the latest screenshot (as a
// computer_call_output after the first turn) and maps the returned
// computer_call into the action vocabulary.
type computerUse struct {
	endpoint   string
	model      string
	apiKey     string
	width      int
	height     int
	httpClient *http.Client
	logger     *slog.Logger

	mu                 sync.Mutex
	previousResponseID string
	lastCallID         string
}

func newComputerUse(cfg Config) (*computerUse, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("computeruse planner requires an API key")
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "computer-use-preview"
	}
	return &computerUse{
		endpoint:   endpoint,
		model:      model,
		apiKey:     cfg.APIKey,
		width:      cfg.DisplayWidth,
		height:     cfg.DisplayHeight,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

type responsesRequest struct {
	Model              string `json:"model"`
	PreviousResponseID string `json:"previous_response_id,omitempty"`
	Tools              []any  `json:"tools"`
	Input              []any  `json:"input"`
	Reasoning          any    `json:"reasoning,omitempty"`
	Truncation         string `json:"truncation,omitempty"`
}

type responsesReply struct {
	ID     string `json:"id"`
	Output []struct {
		Type   string `json:"type"`
		Text   string `json:"text,omitempty"`
		CallID string `json:"call_id,omitempty"`
		Action struct {
			Type    string   `json:"type"`
			X       int      `json:"x"`
			Y       int      `json:"y"`
			Button  string   `json:"button"`
			Text    string   `json:"text"`
			Keys    []string `json:"keys"`
			ScrollX int      `json:"scroll_x"`
			ScrollY int      `json:"scroll_y"`
		} `json:"action"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content,omitempty"`
	} `json:"output"`
}

func (p *computerUse) Plan(ctx context.Context, instruction string, obs *agent.Observation, history []agent.Step) (*agent.Decision, error) {
	p.mu.Lock()
	previousID := p.previousResponseID
	lastCallID := p.lastCallID
	p.mu.Unlock()

	image := "data:image/png;base64," + base64.StdEncoding.EncodeToString(obs.ImagePNG)

	var input []any
	if previousID == "" || lastCallID == "" {
		input = []any{map[string]any{
			"role": "user",
			"content": []any{
				map[string]any{"type": "input_text", "text": initialPrompt(instruction, obs.Summary)},
				map[string]any{"type": "input_image", "image_url": image},
			},
		}}
	} else {
		input = []any{
			map[string]any{
				"call_id": lastCallID,
				"type":    "computer_call_output",
				"output":  map[string]any{"type": "input_image", "image_url": image},
			},
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "input_text", "text": continuationPrompt(obs.Summary)},
				},
			},
		}
	}

	request := responsesRequest{
		Model:              p.model,
		PreviousResponseID: previousID,
		Tools: []any{map[string]any{
			"type":           "computer_use_preview",
			"display_width":  p.width,
			"display_height": p.height,
			"environment":    "mac",
		}},
		Input:      input,
		Reasoning:  map[string]any{"summary": "concise"},
		Truncation: "auto",
	}

	reply, err := p.send(ctx, request)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.previousResponseID = reply.ID
	p.mu.Unlock()

	return p.decide(reply)
}

func (p *computerUse) send(ctx context.Context, request responsesRequest) (*responsesReply, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	var reply responsesReply
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/responses", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			p.logger.Warn("planner request failed, retrying", "error", err)
			return err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("planner endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
			if retryableStatus(resp.StatusCode) {
				p.logger.Warn("planner endpoint transient error, retrying", "status", resp.StatusCode)
				return err
			}
			return backoff.Permanent(err)
		}
		if err := json.Unmarshal(respBody, &reply); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding planner reply: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(transientBackoff(), ctx)); err != nil {
		return nil, err
	}
	return &reply, nil
}

// decide maps the reply's first computer_call into an action, or treats a
// call-free reply as completion when its text says so.
func (p *computerUse) decide(reply *responsesReply) (*agent.Decision, error) {
	for _, item := range reply.Output {
		if item.Type != "computer_call" {
			continue
		}
		action, err := mapComputerCall(item.Action.Type, item.Action.X, item.Action.Y, item.Action.Button, item.Action.Text, item.Action.Keys, item.Action.ScrollX, item.Action.ScrollY)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.lastCallID = item.CallID
		p.mu.Unlock()
		return &agent.Decision{Kind: agent.DecisionAct, Action: action}, nil
	}

	text := replyText(reply)
	if text == "" {
		return &agent.Decision{Kind: agent.DecisionComplete, Reason: "model returned no further actions"}, nil
	}
	if textSignalsCompletion(text) {
		return &agent.Decision{Kind: agent.DecisionComplete, Reason: text}, nil
	}
	return nil, fmt.Errorf("%w: text reply without action or completion signal", agent.ErrMalformedPlan)
}

func replyText(reply *responsesReply) string {
	var parts []string
	for _, item := range reply.Output {
		if item.Type == "text" && item.Text != "" {
			parts = append(parts, item.Text)
		}
		if item.Type == "message" {
			for _, c := range item.Content {
				if c.Text != "" {
					parts = append(parts, c.Text)
				}
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// mapComputerCall converts the wire action names of the computer-use tool
// into the closed vocabulary.
func mapComputerCall(kind string, x, y int, button, text string, keys []string, scrollX, scrollY int) (*agent.Action, error) {
	var action *agent.Action
	switch kind {
	case "move", "mouse_move":
		action = &agent.Action{Type: agent.ActionMovePointer, X: x, Y: y}
	case "click", "double_click":
		action = &agent.Action{Type: agent.ActionClick, X: x, Y: y, Button: button}
	case "scroll":
		action = &agent.Action{Type: agent.ActionScroll, X: x, Y: y, DeltaX: scrollX, DeltaY: scrollY}
	case "type":
		action = &agent.Action{Type: agent.ActionTypeText, Text: text}
	case "keypress":
		action = &agent.Action{Type: agent.ActionKeyCombination, Keys: keys}
	default:
		return nil, fmt.Errorf("%w: computer_call action %q is outside the vocabulary", agent.ErrMalformedPlan, kind)
	}
	if err := action.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrMalformedPlan, err)
	}
	return action, nil
}
