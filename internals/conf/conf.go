package conf

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	z "github.com/Oudwins/zog"
)

type PerceptionStrategy string

const (
	PerceptionOCR   PerceptionStrategy = "ocr"
	PerceptionImage PerceptionStrategy = "image"
)

type PlannerStrategy string

const (
	PlannerComputerUse PlannerStrategy = "computeruse"
	PlannerGemini      PlannerStrategy = "gemini"
)

type Config struct {
	Version  string         `json:"-"`
	Server   ServerConfig   `json:"server"`
	Display  DisplayConfig  `json:"display"`
	Backends BackendsConfig `json:"backends"`
	Agent    AgentConfig    `json:"agent"`
}

type ServerConfig struct {
	DataDir string `json:"data_dir" zog:"data_dir"`
}

type DisplayConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type BackendsConfig struct {
	PerceptionURL   string `json:"perception_url" zog:"perception_url"`
	InputURL        string `json:"input_url" zog:"input_url"`
	PlannerEndpoint string `json:"planner_endpoint" zog:"planner_endpoint"`
	PlannerModel    string `json:"planner_model" zog:"planner_model"`
}

type AgentConfig struct {
	Perception                  PerceptionStrategy `json:"perception"`
	Planner                     PlannerStrategy    `json:"planner"`
	MaxSteps                    int                `json:"max_steps" zog:"max_steps"`
	MaxWallTimeSeconds          int                `json:"max_wall_time_seconds" zog:"max_wall_time_seconds"`
	SettleDelayMillis           int                `json:"settle_delay_ms" zog:"settle_delay_ms"`
	PerceptionAttempts          int                `json:"perception_attempts" zog:"perception_attempts"`
	BackoffBaseMillis           int                `json:"backoff_base_ms" zog:"backoff_base_ms"`
	BackoffMaxMillis            int                `json:"backoff_max_ms" zog:"backoff_max_ms"`
	ConsecutiveFailureThreshold int                `json:"consecutive_failure_threshold" zog:"consecutive_failure_threshold"`
}

var serverSchema = z.Struct(z.Shape{
	"DataDir": z.String().Default("~/.orderly").Transform(expandPathTransform),
})

var displaySchema = z.Struct(z.Shape{
	"Width":  z.Int().Default(1512),
	"Height": z.Int().Default(982),
})

var backendsSchema = z.Struct(z.Shape{
	"PerceptionURL":   z.String().Default("http://localhost:58101"),
	"InputURL":        z.String().Default("http://localhost:58102"),
	"PlannerEndpoint": z.String().Optional().Trim(),
	"PlannerModel":    z.String().Default("computer-use-preview"),
})

var agentSchema = z.Struct(z.Shape{
	"Perception":                  z.StringLike[PerceptionStrategy]().Default(PerceptionOCR).OneOf([]PerceptionStrategy{PerceptionOCR, PerceptionImage}),
	"Planner":                     z.StringLike[PlannerStrategy]().Default(PlannerComputerUse).OneOf([]PlannerStrategy{PlannerComputerUse, PlannerGemini}),
	"MaxSteps":                    z.Int().Default(50),
	"MaxWallTimeSeconds":          z.Int().Default(1200),
	"SettleDelayMillis":           z.Int().Default(1000),
	"PerceptionAttempts":          z.Int().Default(3),
	"BackoffBaseMillis":           z.Int().Default(500),
	"BackoffMaxMillis":            z.Int().Default(8000),
	"ConsecutiveFailureThreshold": z.Int().Default(3),
})

var ConfigSchema = z.Struct(z.Shape{
	"server":   serverSchema,
	"display":  displaySchema,
	"backends": backendsSchema,
	"agent":    agentSchema,
})

var config *Config

func GetConfig() *Config {
	if config == nil {
		defaults := &Config{}
		if err := ConfigSchema.Parse(map[string]any{}, defaults); err != nil {
			log.Fatal("[Orderly] Failed to parse config", err)
		}
		defaults.Version = "0.0.1"

		dataDir, err := expandPath(defaults.Server.DataDir)
		if err != nil {
			log.Fatal("[Orderly] Failed to expand config data dir", err)
		}

		configPath := filepath.Join(filepath.Clean(dataDir), "orderly.json")
		data, err := os.ReadFile(configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				config = defaults
				return config
			}
			log.Fatal("[Orderly] Failed to read config file", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			config = defaults
			return config
		}

		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Fatal("[Orderly] Failed to parse config file", err)
		}
		parsed := &Config{}
		if err := ConfigSchema.Parse(payload, parsed); err != nil {
			log.Fatal("[Orderly] Failed to parse config", err)
		}
		parsed.Version = defaults.Version
		config = parsed
	}

	return config
}

func expandPathTransform(ptr *string, c z.Ctx) error {
	expanded, err := expandPath(*ptr)
	*ptr = expanded
	return err
}

func expandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}
