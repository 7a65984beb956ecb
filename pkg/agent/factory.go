package agent

import (
	"fmt"

	"devpilot/pkg/agent/internal/llmimpl/anthropic"
	"devpilot/pkg/agent/internal/llmimpl/google"
	"devpilot/pkg/agent/internal/llmimpl/ollama"
	"devpilot/pkg/agent/internal/llmimpl/openaiofficial"
	"devpilot/pkg/agent/llm"
	llmmetrics "devpilot/pkg/agent/middleware/metrics"
	"devpilot/pkg/agent/middleware/ratelimit"
	"devpilot/pkg/config"
	"devpilot/pkg/metrics"
)

// NewLLMClient builds the raw provider client named by cfg.
func NewLLMClient(cfg config.AgentConfig, vault *config.Vault) (llm.LLMClient, error) {
	credential, err := config.GetAPIKey(cfg.Provider, vault)
	if err != nil {
		return nil, fmt.Errorf("cannot create %s client: %w", cfg.Provider, err)
	}

	switch cfg.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithModel(credential, cfg.Model), nil
	case config.ProviderOpenAI:
		return openaiofficial.NewOfficialClientWithModel(credential, cfg.Model), nil
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(credential, cfg.Model), nil
	case config.ProviderOllama:
		return ollama.NewOllamaClientWithModel(credential, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// Decorate wraps base with rate limiting (outermost) and metrics.
func Decorate(base llm.LLMClient, cfg config.AgentConfig, recorder metrics.Recorder) llm.LLMClient {
	return llm.Chain(base,
		ratelimit.Middleware(ratelimit.NewLimiter(cfg.RequestsPerMinute, 1), recorder),
		llmmetrics.Middleware(recorder, nil),
	)
}

// New returns a ready Client for cfg.
func New(cfg config.AgentConfig, vault *config.Vault, recorder metrics.Recorder) (*Client, error) {
	base, err := NewLLMClient(cfg, vault)
	if err != nil {
		return nil, err
	}
	return NewClient(Decorate(base, cfg, recorder),
		WithSystemPrompt(cfg.SystemPrompt),
		WithMaxTokens(cfg.MaxTokens),
		WithTemperature(float32(cfg.Temperature)),
	), nil
}
