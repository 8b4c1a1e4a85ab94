package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/loqui-ai/loqui/pkg/provider"
)

// Config holds the application configuration.
type Config struct {
	fileKeys  APIKeysConfig
	Models    *ModelsConfig
	ConfigDir string
}

// FileConfig represents the structure of ~/.loqui/config.yaml
type FileConfig struct {
	APIKeys APIKeysConfig `yaml:"api_keys"`
}

// APIKeysConfig holds credential configuration from file.
type APIKeysConfig struct {
	OpenAI        string `yaml:"openai"`
	Anthropic     string `yaml:"anthropic"`
	Google        string `yaml:"google"`
	OllamaBaseURL string `yaml:"ollama_base_url"`
}

// Load reads configuration from config files and environment variables.
// A .env file is honored if present; environment variables take precedence
// over file configuration.
func Load() (*Config, error) {
	_ = godotenv.Load() // best effort; env may be set by the process manager

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		fileKeys:  fileConfig.APIKeys,
		ConfigDir: configDir,
	}

	modelsPath := filepath.Join(configDir, "models.yaml")
	if _, err := os.Stat(modelsPath); err == nil {
		models, err := LoadModelsConfig(modelsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load models config: %w", err)
		}
		cfg.Models = models
	} else {
		cfg.Models = DefaultModelsConfig()
	}

	return cfg, nil
}

// LoadWithModelsFile loads config with a specific models file.
func LoadWithModelsFile(modelsPath string) (*Config, error) {
	_ = godotenv.Load()

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		fileKeys:  fileConfig.APIKeys,
		ConfigDir: configDir,
	}

	models, err := LoadModelsConfig(modelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load models config from %s: %w", modelsPath, err)
	}
	cfg.Models = models

	return cfg, nil
}

// Credential accessors return KeyFuncs that re-read the environment on
// every call, so rotated keys take effect on the next request without a
// restart. The config file value is the fallback.

// OpenAIKey returns the OpenAI credential source.
func (c *Config) OpenAIKey() provider.KeyFunc {
	return c.keyFunc("OPENAI_API_KEY", func() string { return c.fileKeys.OpenAI })
}

// AnthropicKey returns the Anthropic credential source.
func (c *Config) AnthropicKey() provider.KeyFunc {
	return c.keyFunc("ANTHROPIC_API_KEY", func() string { return c.fileKeys.Anthropic })
}

// GoogleKey returns the Google credential source.
func (c *Config) GoogleKey() provider.KeyFunc {
	return c.keyFunc("GOOGLE_API_KEY", func() string { return c.fileKeys.Google })
}

// OllamaBaseURL returns the local inference server base URL source.
func (c *Config) OllamaBaseURL() func() string {
	return c.keyFunc("OLLAMA_BASE_URL", func() string { return c.fileKeys.OllamaBaseURL })
}

func (c *Config) keyFunc(envVar string, fallback func() string) provider.KeyFunc {
	return func() string {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
		return fallback()
	}
}

// HasProvider returns true if credentials for the given provider family
// are configured. Local inference needs no credential.
func (c *Config) HasProvider(family string) bool {
	switch family {
	case provider.FamilyOpenAI:
		return c.OpenAIKey()() != ""
	case provider.FamilyAnthropic:
		return c.AnthropicKey()() != ""
	case provider.FamilyGoogle:
		return c.GoogleKey()() != ""
	case provider.FamilyOllama, provider.FamilyMock:
		return true
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // file is optional
	}

	_ = yaml.Unmarshal(data, cfg)
	return cfg
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".loqui")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
