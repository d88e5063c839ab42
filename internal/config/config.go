// Package config loads persona configuration from the workspace.
// Config lives in <workspace>/.persona/config.yaml (or config.json); a small
// set of environment variables override file values for deployment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all persona configuration.
type Config struct {
	Name string `yaml:"name" json:"name"`

	// Generation service
	Generation GenerationConfig `yaml:"generation" json:"generation"`

	// Capability synthesis
	Synthesis SynthesisConfig `yaml:"synthesis" json:"synthesis"`

	// Conversation handling
	Chat ChatConfig `yaml:"chat" json:"chat"`

	// HTTP API
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// GenerationConfig configures the Generation Service client.
type GenerationConfig struct {
	APIKey      string  `yaml:"api_key" json:"api_key"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	TopP        float64 `yaml:"top_p" json:"top_p"`
	Timeout     string  `yaml:"timeout" json:"timeout"`
}

// SynthesisConfig configures dynamic capability synthesis.
type SynthesisConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	CapabilitiesDir  string `yaml:"capabilities_dir" json:"capabilities_dir"`
	LedgerPath       string `yaml:"ledger_path" json:"ledger_path"`
	WatchSource      bool   `yaml:"watch_source" json:"watch_source"`
	GenerationRetry  int    `yaml:"generation_retry" json:"generation_retry"`
	ExecutionTimeout string `yaml:"execution_timeout" json:"execution_timeout"`
}

// ChatConfig configures conversation handling.
type ChatConfig struct {
	MaxHistoryMessages int    `yaml:"max_history_messages" json:"max_history_messages"`
	StorePath          string `yaml:"store_path" json:"store_path"`
	CharactersDir      string `yaml:"characters_dir" json:"characters_dir"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	DebugMode bool `yaml:"debug_mode" json:"debug_mode"`
}

// Default returns the configuration used when no file exists.
func Default(workspace string) *Config {
	return &Config{
		Name: "persona",
		Generation: GenerationConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
			MaxTokens:   1024,
			TopP:        0.95,
			Timeout:     "2m",
		},
		Synthesis: SynthesisConfig{
			Enabled:          true,
			CapabilitiesDir:  filepath.Join(workspace, ".persona", "capabilities"),
			LedgerPath:       filepath.Join(workspace, ".persona", "deleted_capabilities.json"),
			WatchSource:      false,
			GenerationRetry:  1,
			ExecutionTimeout: "30s",
		},
		Chat: ChatConfig{
			MaxHistoryMessages: 10,
			StorePath:          filepath.Join(workspace, ".persona", "persona.db"),
			CharactersDir:      filepath.Join(workspace, ".persona", "characters"),
		},
		Server: ServerConfig{
			Addr: ":8590",
		},
	}
}

// Load reads config from the workspace, falling back to defaults for a
// missing file. Environment variables override file values.
func Load(workspace string) (*Config, error) {
	cfg := Default(workspace)

	yamlPath := filepath.Join(workspace, ".persona", "config.yaml")
	jsonPath := filepath.Join(workspace, ".persona", "config.json")

	switch {
	case fileExists(yamlPath):
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config.yaml: %w", err)
		}
	case fileExists(jsonPath):
		data, err := os.ReadFile(jsonPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config.json: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment env vars take precedence over the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PERSONA_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("PERSONA_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("PERSONA_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PERSONA_DEBUG"); v == "1" || v == "true" {
		cfg.Logging.DebugMode = true
	}
}

// Validate checks invariants that would otherwise fail deep in a subsystem.
func (c *Config) Validate() error {
	if c.Chat.MaxHistoryMessages < 0 {
		return fmt.Errorf("chat.max_history_messages must be >= 0")
	}
	if c.Synthesis.GenerationRetry < 0 {
		return fmt.Errorf("synthesis.generation_retry must be >= 0")
	}
	if _, err := c.GenerationTimeout(); err != nil {
		return fmt.Errorf("generation.timeout: %w", err)
	}
	if _, err := c.ExecutionTimeout(); err != nil {
		return fmt.Errorf("synthesis.execution_timeout: %w", err)
	}
	return nil
}

// GenerationTimeout parses the generation service timeout.
func (c *Config) GenerationTimeout() (time.Duration, error) {
	if c.Generation.Timeout == "" {
		return 2 * time.Minute, nil
	}
	return time.ParseDuration(c.Generation.Timeout)
}

// ExecutionTimeout parses the synthesized-capability execution timeout.
func (c *Config) ExecutionTimeout() (time.Duration, error) {
	if c.Synthesis.ExecutionTimeout == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(c.Synthesis.ExecutionTimeout)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
