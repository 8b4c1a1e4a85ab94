package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqui-ai/loqui/pkg/provider"
)

func writeModelsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadModelsConfig(t *testing.T) {
	path := writeModelsFile(t, `
models:
  - name: claude-sonnet-4-20250514
    provider: anthropic
    temperature: 0.5
    max_tokens: 2048
  - name: llama3.1:8b
    provider: ollama
breaker:
  failure_threshold: 5
  recovery_timeout_ms: 60000
rate_limit:
  window_ms: 30000
  max_requests: 10
retry:
  max_attempts: 4
engine:
  default_mode: chain_of_thought
pricing:
  claude-sonnet-4-20250514:
    prompt_per_1k: 0.004
    completion_per_1k: 0.02
`)

	cfg, err := LoadModelsConfig(path)
	require.NoError(t, err)

	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Models[0].Name)
	assert.Equal(t, "anthropic", cfg.Models[0].Provider)
	assert.InDelta(t, 0.5, cfg.Models[0].Temperature, 1e-9)
	assert.Equal(t, 2048, cfg.Models[0].MaxTokens)
	assert.Equal(t, "ollama", cfg.Models[1].Provider)

	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 60000, cfg.Breaker.RecoveryTimeoutMs)
	assert.Equal(t, 30000, cfg.RateLimit.WindowMs)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, "chain_of_thought", cfg.Engine.DefaultMode)
}

func TestLoadModelsConfig_MissingFile(t *testing.T) {
	_, err := LoadModelsConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestModelsConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		models  []ModelConfig
		wantErr string
	}{
		{
			name:   "valid",
			models: []ModelConfig{{Name: "a", Provider: "openai"}, {Name: "b", Provider: "ollama"}},
		},
		{
			name:    "missing name",
			models:  []ModelConfig{{Provider: "openai"}},
			wantErr: "name is required",
		},
		{
			name:    "missing provider",
			models:  []ModelConfig{{Name: "a"}},
			wantErr: "provider is required",
		},
		{
			name:    "duplicate name",
			models:  []ModelConfig{{Name: "a", Provider: "openai"}, {Name: "a", Provider: "ollama"}},
			wantErr: "duplicate name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ModelsConfig{Models: tt.models}
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestModelsConfig_PriceTableMergesOverDefaults(t *testing.T) {
	cfg := &ModelsConfig{
		Pricing: provider.PriceTable{
			"claude-sonnet-4-20250514": {PromptPer1K: 0.004, CompletionPer1K: 0.02},
			"custom-model":             {PromptPer1K: 0.001, CompletionPer1K: 0.001},
		},
	}

	table := cfg.PriceTable()
	assert.InDelta(t, 0.004, table["claude-sonnet-4-20250514"].PromptPer1K, 1e-9, "file pricing overrides the built-in entry")
	assert.InDelta(t, 0.001, table["custom-model"].PromptPer1K, 1e-9)
	assert.NotEmpty(t, table["gemini-2.0-flash"].PromptPer1K, "untouched built-in entries survive the merge")
}

func TestDefaultModelsConfig(t *testing.T) {
	cfg := DefaultModelsConfig()
	require.NoError(t, cfg.Validate())

	families := map[string]bool{}
	for _, m := range cfg.Models {
		families[m.Provider] = true
	}
	assert.True(t, families[provider.FamilyAnthropic])
	assert.True(t, families[provider.FamilyOpenAI])
	assert.True(t, families[provider.FamilyGoogle])
	assert.True(t, families[provider.FamilyOllama], "a local fallback is always configured")
}

func TestConfig_CredentialsEnvOverFile(t *testing.T) {
	cfg := &Config{fileKeys: APIKeysConfig{Anthropic: "file-key", OllamaBaseURL: "http://file:11434"}}

	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	key := cfg.AnthropicKey()
	assert.Equal(t, "env-key", key())

	// Rotation: the same KeyFunc picks up the new value on the next call.
	t.Setenv("ANTHROPIC_API_KEY", "rotated-key")
	assert.Equal(t, "rotated-key", key())

	// Cleared env falls back to the file value.
	t.Setenv("ANTHROPIC_API_KEY", "")
	assert.Equal(t, "file-key", key())

	t.Setenv("OLLAMA_BASE_URL", "")
	assert.Equal(t, "http://file:11434", cfg.OllamaBaseURL()())
}

func TestConfig_HasProvider(t *testing.T) {
	cfg := &Config{}
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("GOOGLE_API_KEY", "")

	assert.False(t, cfg.HasProvider(provider.FamilyOpenAI))
	assert.True(t, cfg.HasProvider(provider.FamilyAnthropic))
	assert.False(t, cfg.HasProvider(provider.FamilyGoogle))
	assert.True(t, cfg.HasProvider(provider.FamilyOllama), "local inference needs no credential")
	assert.False(t, cfg.HasProvider("unknown"))
}
