// Package ollama provides the local Ollama implementation of llm.LLMClient.
package ollama

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"devpilot/pkg/agent/llm"
	"devpilot/pkg/agent/llmerrors"
)

// DefaultHost is used when no host is configured.
const DefaultHost = "http://localhost:11434"

type Client struct {
	client  *api.Client
	model   string
	hostURL string
}

// NewOllamaClientWithModel falls back to DefaultHost when hostURL does not parse.
func NewOllamaClientWithModel(hostURL, model string) llm.LLMClient {
	parsedURL, err := url.Parse(hostURL)
	if err != nil || hostURL == "" {
		parsedURL, _ = url.Parse(DefaultHost)
		hostURL = DefaultHost
	}
	return &Client{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		hostURL: hostURL,
	}
}

func toMessages(messages []llm.CompletionMessage) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, api.Message{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

// Complete implements llm.LLMClient.
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: toMessages(in.Messages),
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	var response api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "connection refused") {
			return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeServiceUnavailable, err,
				"ollama is not running at "+o.hostURL)
		}
		return llm.CompletionResponse{}, llmerrors.Classify("ollama", err)
	}

	stop := response.DoneReason
	if stop == "" {
		stop = "stop"
	}
	return llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: stop,
	}, nil
}

func (o *Client) GetModelName() string {
	return o.model
}
