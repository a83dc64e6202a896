// Package planner asks a model backend for the next UI action. Two
// backends are supported: "computeruse" speaks the OpenAI-compatible
// computer-use responses API, "gemini" speaks generateContent with a
// strict JSON action contract. Both return decisions in the closed
// action vocabulary; anything else surfaces as a malformed plan so the
// loop can retry planning.
package planner

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/orderly-agent/orderly/internals/agent"
)

const (
	BackendComputerUse = "computeruse"
	BackendGemini      = "gemini"
)

type Config struct {
	Endpoint      string
	Model         string
	APIKey        string
	DisplayWidth  int
	DisplayHeight int
	Logger        *slog.Logger
	HTTPClient    *http.Client
}

// New selects the planning backend named in config. Unknown names fail
// at startup rather than on the first task.
func New(backend string, cfg Config) (agent.Planner, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	}
	switch backend {
	case BackendComputerUse:
		return newComputerUse(cfg)
	case BackendGemini:
		return newGemini(cfg)
	default:
		return nil, fmt.Errorf("unknown planner backend %q", backend)
	}
}

// transientBackoff is the retry schedule both backends use for network
// errors and 429/5xx responses.
func transientBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return b
}

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusBadGateway:
		return true
	}
	return false
}
