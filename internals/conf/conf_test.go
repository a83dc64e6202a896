package conf

import "testing"

func TestConfigDefaults(t *testing.T) {
	parsed := &Config{}
	if err := ConfigSchema.Parse(map[string]any{}, parsed); err != nil {
		t.Fatalf("parse defaults: %v", err)
	}

	if parsed.Agent.Perception != PerceptionOCR {
		t.Fatalf("expected ocr perception default, got %q", parsed.Agent.Perception)
	}
	if parsed.Agent.Planner != PlannerComputerUse {
		t.Fatalf("expected computeruse planner default, got %q", parsed.Agent.Planner)
	}
	if parsed.Agent.MaxSteps != 50 {
		t.Fatalf("expected max steps 50, got %d", parsed.Agent.MaxSteps)
	}
	if parsed.Agent.ConsecutiveFailureThreshold != 3 {
		t.Fatalf("expected failure threshold 3, got %d", parsed.Agent.ConsecutiveFailureThreshold)
	}
	if parsed.Display.Width != 1512 || parsed.Display.Height != 982 {
		t.Fatalf("unexpected display defaults: %dx%d", parsed.Display.Width, parsed.Display.Height)
	}
	if parsed.Server.DataDir == "" {
		t.Fatalf("expected data dir default")
	}
}

func TestConfigOverrides(t *testing.T) {
	payload := map[string]any{
		"agent": map[string]any{
			"perception": "image",
			"planner":    "gemini",
			"max_steps":  5,
		},
		"backends": map[string]any{
			"perception_url": "http://127.0.0.1:9000",
		},
	}

	parsed := &Config{}
	if err := ConfigSchema.Parse(payload, parsed); err != nil {
		t.Fatalf("parse overrides: %v", err)
	}

	if parsed.Agent.Perception != PerceptionImage {
		t.Fatalf("expected image perception, got %q", parsed.Agent.Perception)
	}
	if parsed.Agent.Planner != PlannerGemini {
		t.Fatalf("expected gemini planner, got %q", parsed.Agent.Planner)
	}
	if parsed.Agent.MaxSteps != 5 {
		t.Fatalf("expected max steps 5, got %d", parsed.Agent.MaxSteps)
	}
	if parsed.Backends.PerceptionURL != "http://127.0.0.1:9000" {
		t.Fatalf("unexpected perception url %q", parsed.Backends.PerceptionURL)
	}
	if parsed.Agent.SettleDelayMillis != 1000 {
		t.Fatalf("expected settle delay default to survive partial override, got %d", parsed.Agent.SettleDelayMillis)
	}

	bad := map[string]any{"agent": map[string]any{"planner": "clippy"}}
	if err := ConfigSchema.Parse(bad, &Config{}); err == nil {
		t.Fatalf("expected unknown planner to be rejected")
	}
}
