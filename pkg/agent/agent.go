// Package agent adapts a middleware-wrapped LLM client to the assistant's collaborator contract.
package agent

import (
	"context"
	"fmt"
	"strings"

	"devpilot/pkg/agent/llm"
	"devpilot/pkg/agent/llmerrors"
	"devpilot/pkg/logx"
)

// Client sends single-turn prompts framed by a fixed system prompt.
type Client struct {
	llm          llm.LLMClient
	systemPrompt string
	maxTokens    int
	temperature  float32
	logger       *logx.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithSystemPrompt(prompt string) Option {
	return func(c *Client) { c.systemPrompt = prompt }
}

func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

func WithTemperature(t float32) Option {
	return func(c *Client) { c.temperature = t }
}

func NewClient(client llm.LLMClient, opts ...Option) *Client {
	c := &Client{
		llm:         client,
		maxTokens:   llm.DefaultMaxTokens,
		temperature: llm.TemperatureDeterministic,
		logger:      logx.NewLogger("agent"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage returns the model's reply to prompt. An empty reply is an error.
func (c *Client) SendMessage(ctx context.Context, prompt string) (string, error) {
	messages := make([]llm.CompletionMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, llm.NewSystemMessage(c.systemPrompt))
	}
	messages = append(messages, llm.NewUserMessage(prompt))

	req := llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if err := req.Validate(); err != nil {
		return "", llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "invalid request")
	}

	resp, err := c.llm.Complete(ctx, req)
	if err != nil {
		c.logger.Error("completion via %s failed: %v", c.llm.GetModelName(), err)
		return "", fmt.Errorf("agent request failed: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse,
			fmt.Sprintf("%s returned an empty reply (stop reason %q)", c.llm.GetModelName(), resp.StopReason))
	}
	return resp.Content, nil
}

func (c *Client) ModelName() string {
	return c.llm.GetModelName()
}
