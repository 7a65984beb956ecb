// Package config loads the per-workspace settings file and resolves provider credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Project config constants.
const (
	ProjectConfigDir      = ".devpilot"
	ProjectConfigFilename = "config.json"
	SchemaVersion         = "1.0"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Environment variables consulted for credentials and overrides.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvGoogleAPIKey    = "GOOGLE_GENAI_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
	EnvProvider        = "DEVPILOT_PROVIDER"
	EnvModel           = "DEVPILOT_MODEL"
	// EnvPassword unlocks the secrets file without prompting.
	EnvPassword = "DEVPILOT_PASSWORD"
)

// Default model per provider.
const (
	ModelClaudeSonnetLatest = "claude-sonnet-4-5"
	ModelGPT5               = "gpt-5"
	ModelGeminiPro          = "gemini-2.5-pro"
	ModelOllamaDefault      = "qwen2.5-coder"
)

// DefaultSystemPrompt frames every agent request.
const DefaultSystemPrompt = "You are a senior software engineer pairing with the user inside their workspace. " +
	"Answer concisely. When asked for code, reply with a single fenced code block."

// AgentConfig selects and tunes the language model.
type AgentConfig struct {
	Provider          string  `json:"provider" validate:"required,oneof=anthropic openai google ollama"`
	Model             string  `json:"model" validate:"required"`
	MaxTokens         int     `json:"max_tokens" validate:"min=1,max=200000"`
	Temperature       float64 `json:"temperature" validate:"min=0,max=2"`
	RequestsPerMinute int     `json:"requests_per_minute" validate:"min=0,max=10000"`
	SystemPrompt      string  `json:"system_prompt"`
}

// SessionConfig seeds the session flags at startup.
type SessionConfig struct {
	AgentMode          bool `json:"agent_mode"`
	TddMode            bool `json:"tdd_mode"`
	UiTddMode          bool `json:"ui_tdd_mode"`
	HistoryLimit       int  `json:"history_limit" validate:"min=1,max=10000"`
	HistoryTokenBudget int  `json:"history_token_budget" validate:"min=0"`
}

// PathsConfig holds workspace-relative output locations.
type PathsConfig struct {
	TestsDir   string `json:"tests_dir" validate:"required"`
	UITestsDir string `json:"ui_tests_dir" validate:"required"`
	SrcDir     string `json:"src_dir" validate:"required"`
	DBPath     string `json:"db_path" validate:"required"`
}

// Config is the contents of .devpilot/config.json.
type Config struct {
	SchemaVersion string              `json:"schema_version"`
	Agent         AgentConfig         `json:"agent"`
	Session       SessionConfig       `json:"session"`
	Paths         PathsConfig         `json:"paths"`
	TestCommands  map[string][]string `json:"test_commands,omitempty" validate:"dive,min=1"`
	LintCommands  map[string][]string `json:"lint_commands,omitempty" validate:"dive,min=1"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return ModelGPT5
	case ProviderGoogle:
		return ModelGeminiPro
	case ProviderOllama:
		return ModelOllamaDefault
	default:
		return ModelClaudeSonnetLatest
	}
}

// Dir returns <root>/.devpilot.
func Dir(root string) string {
	return filepath.Join(root, ProjectConfigDir)
}

// Path returns the config file location for root.
func Path(root string) string {
	return filepath.Join(Dir(root), ProjectConfigFilename)
}

// ResolvePath makes a configured path absolute relative to root.
func ResolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// APIKeyEnv returns the secret name holding the key for provider.
func APIKeyEnv(provider string) (string, error) {
	switch provider {
	case ProviderAnthropic:
		return EnvAnthropicAPIKey, nil
	case ProviderOpenAI:
		return EnvOpenAIAPIKey, nil
	case ProviderGoogle:
		return EnvGoogleAPIKey, nil
	case ProviderOllama:
		return EnvOllamaHost, nil
	default:
		return "", fmt.Errorf("unknown provider: %s", provider)
	}
}

// GetAPIKey returns the credential for provider, checking the vault and then the environment.
// For Ollama it returns the host URL instead of a key.
func GetAPIKey(provider string, vault *Vault) (string, error) {
	name, err := APIKeyEnv(provider)
	if err != nil {
		return "", err
	}
	if provider == ProviderOllama {
		if host := os.Getenv(EnvOllamaHost); host != "" {
			return host, nil
		}
		return "http://localhost:11434", nil
	}

	key, err := vault.Get(name)
	if err != nil {
		return "", fmt.Errorf("API key not found: %w", err)
	}
	return key, nil
}
