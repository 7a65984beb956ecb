// Package llm defines the provider-neutral completion API every model client implements.
package llm

import (
	"context"
	"fmt"
)

// CompletionRole is the author of a message.
type CompletionRole string

const (
	RoleSystem    CompletionRole = "system"
	RoleUser      CompletionRole = "user"
	RoleAssistant CompletionRole = "assistant"
)

const (
	// DefaultMaxTokens bounds replies when the caller does not set MaxTokens.
	DefaultMaxTokens = 4096

	// TemperatureDeterministic is used for code generation.
	TemperatureDeterministic = 0.2
)

// CompletionMessage is one message of a request.
type CompletionMessage struct {
	Role    CompletionRole
	Content string
}

// CompletionRequest asks a model for one reply.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse is a model's reply.
type CompletionResponse struct {
	Content    string
	StopReason string
}

// LLMClient is implemented by every provider and middleware.
type LLMClient interface {
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)
	GetModelName() string
}

// NewCompletionRequest returns a request with default token and temperature settings.
func NewCompletionRequest(messages ...CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   DefaultMaxTokens,
		Temperature: TemperatureDeterministic,
	}
}

func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleAssistant, Content: content}
}

// SplitSystem separates the system messages, joined, from the conversation.
func SplitSystem(messages []CompletionMessage) (string, []CompletionMessage) {
	var system string
	rest := make([]CompletionMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// Validate checks a request before it is sent.
func (r *CompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("completion request has no messages")
	}
	if r.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", r.MaxTokens)
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %.2f", r.Temperature)
	}
	return nil
}
