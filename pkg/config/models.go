package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loqui-ai/loqui/pkg/provider"
)

// ModelConfig identifies one routable backend. The set of models is fixed
// at router construction.
type ModelConfig struct {
	Name        string  `yaml:"name"`
	Provider    string  `yaml:"provider"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// BreakerConfig tunes per-model circuit breakers.
type BreakerConfig struct {
	FailureThreshold  int `yaml:"failure_threshold,omitempty"`
	RecoveryTimeoutMs int `yaml:"recovery_timeout_ms,omitempty"`
	HalfOpenProbes    int `yaml:"half_open_probes,omitempty"`
}

// RateLimitConfig tunes per-model request windows.
type RateLimitConfig struct {
	WindowMs    int `yaml:"window_ms,omitempty"`
	MaxRequests int `yaml:"max_requests,omitempty"`
}

// RetryConfig defines retry and backoff behavior.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts,omitempty"`
	BaseBackoffMs    int `yaml:"base_backoff_ms,omitempty"`
	MaxBackoffMs     int `yaml:"max_backoff_ms,omitempty"`
	JitterMs         int `yaml:"jitter_ms,omitempty"`
	AttemptTimeoutMs int `yaml:"attempt_timeout_ms,omitempty"`
}

// EngineConfig tunes the reasoning engine.
type EngineConfig struct {
	DefaultMode       string  `yaml:"default_mode,omitempty"`
	MaxSteps          int     `yaml:"max_steps,omitempty"`
	Temperature       float64 `yaml:"temperature,omitempty"`
	MaxTokens         int     `yaml:"max_tokens,omitempty"`
	PipelineTimeoutMs int     `yaml:"pipeline_timeout_ms,omitempty"`
}

// ModelsConfig is the structure of ~/.loqui/models.yaml.
type ModelsConfig struct {
	Models    []ModelConfig       `yaml:"models"`
	Breaker   BreakerConfig       `yaml:"breaker,omitempty"`
	RateLimit RateLimitConfig     `yaml:"rate_limit,omitempty"`
	Retry     RetryConfig         `yaml:"retry,omitempty"`
	Engine    EngineConfig        `yaml:"engine,omitempty"`
	Pricing   provider.PriceTable `yaml:"pricing,omitempty"`
}

// LoadModelsConfig reads model configuration from a YAML file.
func LoadModelsConfig(path string) (*ModelsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ModelsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks model entries for completeness and duplicate names.
func (c *ModelsConfig) Validate() error {
	seen := map[string]bool{}
	for i, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model %d: name is required", i)
		}
		if m.Provider == "" {
			return fmt.Errorf("model %q: provider is required", m.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("model %q: duplicate name", m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// PriceTable returns the configured pricing merged over the built-in
// static table.
func (c *ModelsConfig) PriceTable() provider.PriceTable {
	table := provider.DefaultPriceTable()
	for model, entry := range c.Pricing {
		table[model] = entry
	}
	return table
}

// DefaultModelsConfig returns the default model set: one hosted model per
// configured family, plus a local fallback.
func DefaultModelsConfig() *ModelsConfig {
	return &ModelsConfig{
		Models: []ModelConfig{
			{Name: "claude-sonnet-4-20250514", Provider: provider.FamilyAnthropic, Temperature: 0.7, MaxTokens: 4096},
			{Name: "gpt-5.2-instant", Provider: provider.FamilyOpenAI, Temperature: 0.7, MaxTokens: 4096},
			{Name: "gemini-2.0-flash", Provider: provider.FamilyGoogle, Temperature: 0.7, MaxTokens: 4096},
			{Name: "llama3.1:8b", Provider: provider.FamilyOllama, Temperature: 0.7, MaxTokens: 2048},
		},
	}
}
