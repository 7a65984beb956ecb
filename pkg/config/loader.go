package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Load reads <root>/.devpilot/config.json. A missing file yields defaults.
// Order: file, defaults, environment overrides, validation.
func Load(root string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(Path(root))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON %s: %w", Path(root), err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", Path(root), err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to <root>/.devpilot/config.json.
func Save(cfg *Config, root string) error {
	if err := os.MkdirAll(Dir(root), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(Path(root), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SchemaVersion
	}
	if cfg.Agent.Provider == "" {
		cfg.Agent.Provider = ProviderAnthropic
	}
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = DefaultModel(cfg.Agent.Provider)
	}
	if cfg.Agent.MaxTokens == 0 {
		cfg.Agent.MaxTokens = 4096
	}
	if cfg.Agent.Temperature == 0 {
		cfg.Agent.Temperature = 0.2
	}
	if cfg.Agent.SystemPrompt == "" {
		cfg.Agent.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Session.HistoryLimit == 0 {
		cfg.Session.HistoryLimit = 50
	}
	if cfg.Session.HistoryTokenBudget == 0 {
		cfg.Session.HistoryTokenBudget = 32000
	}
	if cfg.Paths.TestsDir == "" {
		cfg.Paths.TestsDir = "tests"
	}
	if cfg.Paths.UITestsDir == "" {
		cfg.Paths.UITestsDir = "tests/ui"
	}
	if cfg.Paths.SrcDir == "" {
		cfg.Paths.SrcDir = "src"
	}
	if cfg.Paths.DBPath == "" {
		cfg.Paths.DBPath = ProjectConfigDir + "/devpilot.db"
	}
}

// applyEnvOverrides lets the environment pick the provider and model without editing the file.
// Switching provider without naming a model resets the model to that provider's default.
func applyEnvOverrides(cfg *Config) {
	if provider := strings.TrimSpace(os.Getenv(EnvProvider)); provider != "" && provider != cfg.Agent.Provider {
		cfg.Agent.Provider = strings.ToLower(provider)
		cfg.Agent.Model = DefaultModel(cfg.Agent.Provider)
	}
	if model := strings.TrimSpace(os.Getenv(EnvModel)); model != "" {
		cfg.Agent.Model = model
	}
}

// Validate checks struct constraints and reports every failing field.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation failed: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
