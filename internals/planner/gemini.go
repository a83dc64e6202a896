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

	"github.com/cenkalti/backoff/v4"

	"github.com/orderly-agent/orderly/internals/agent"
)

// gemini plans through a generateContent endpoint. There is no
// server-side conversation state, so each turn carries the instruction,
// a digest of the steps taken so far, the OCR summary and the screenshot.
type gemini struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func newGemini(cfg Config) (*gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini planner requires an API key")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		model := cfg.Model
		if model == "" {
			model = "gemini-2.0-flash"
		}
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", model)
	}
	return &gemini{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

type geminiPart struct {
	Text       string `json:"text,omitempty"`
	InlineData *struct {
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	} `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig map[string]any  `json:"generationConfig,omitempty"`
}

type geminiReply struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

func (p *gemini) Plan(ctx context.Context, instruction string, obs *agent.Observation, history []agent.Step) (*agent.Decision, error) {
	parts := []geminiPart{{Text: geminiPrompt(instruction, obs.Summary)}}
	if digest := historyDigest(history); digest != "" {
		parts = append(parts, geminiPart{Text: digest})
	}
	if len(obs.ImagePNG) > 0 {
		parts = append(parts, geminiPart{InlineData: &struct {
			MimeType string `json:"mime_type"`
			Data     string `json:"data"`
		}{MimeType: "image/png", Data: base64.StdEncoding.EncodeToString(obs.ImagePNG)}})
	}

	request := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: map[string]any{
			"temperature":        0.0,
			"response_mime_type": "application/json",
		},
	}

	text, err := p.send(ctx, request)
	if err != nil {
		return nil, err
	}
	return parseDecision(text)
}

func (p *gemini) send(ctx context.Context, request geminiRequest) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	var text string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", p.apiKey)

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
			err := fmt.Errorf("gemini endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
			if retryableStatus(resp.StatusCode) {
				p.logger.Warn("gemini endpoint transient error, retrying", "status", resp.StatusCode)
				return err
			}
			return backoff.Permanent(err)
		}

		var reply geminiReply
		if err := json.Unmarshal(respBody, &reply); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding gemini reply: %w", err))
		}
		if len(reply.Candidates) == 0 || len(reply.Candidates[0].Content.Parts) == 0 {
			reason := ""
			if len(reply.Candidates) > 0 {
				reason = reply.Candidates[0].FinishReason
			}
			return backoff.Permanent(fmt.Errorf("gemini returned no content (reason %q)", reason))
		}
		text = reply.Candidates[0].Content.Parts[0].Text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(transientBackoff(), ctx)); err != nil {
		return "", err
	}
	return text, nil
}

// historyDigest compresses the step history into a few lines so the
// model knows what already happened without replaying every screenshot.
func historyDigest(history []agent.Step) string {
	if len(history) == 0 {
		return ""
	}
	const window = 10
	start := 0
	if len(history) > window {
		start = len(history) - window
	}
	var b strings.Builder
	b.WriteString("STEPS TAKEN SO FAR:\n")
	for _, step := range history[start:] {
		outcome := string(step.Result)
		if step.Err != "" {
			outcome += " (" + step.Err + ")"
		}
		fmt.Fprintf(&b, "%d. %s -> %s\n", step.Index+1, step.Action, outcome)
	}
	return strings.TrimRight(b.String(), "\n")
}
