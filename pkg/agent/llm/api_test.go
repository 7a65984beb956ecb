package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct{ calls *[]string }

func (s stubClient) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	*s.calls = append(*s.calls, "client")
	return CompletionResponse{Content: "ok"}, nil
}

func (s stubClient) GetModelName() string { return "stub" }

func tracing(name string, calls *[]string) Middleware {
	return func(next LLMClient) LLMClient {
		return WrapClient(func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
			*calls = append(*calls, name)
			return next.Complete(ctx, req)
		}, next.GetModelName)
	}
}

func TestChainOrder(t *testing.T) {
	var calls []string
	client := Chain(stubClient{calls: &calls}, tracing("outer", &calls), tracing("inner", &calls))

	resp, err := client.Complete(context.Background(), NewCompletionRequest(NewUserMessage("hi")))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, []string{"outer", "inner", "client"}, calls)
	assert.Equal(t, "stub", client.GetModelName())
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]CompletionMessage{
		NewSystemMessage("be terse"),
		NewUserMessage("hello"),
		NewSystemMessage("use Go"),
		NewAssistantMessage("hi"),
	})
	assert.Equal(t, "be terse\n\nuse Go", system)
	require.Len(t, rest, 2)
	assert.Equal(t, RoleUser, rest[0].Role)
	assert.Equal(t, RoleAssistant, rest[1].Role)
}

func TestValidate(t *testing.T) {
	req := NewCompletionRequest(NewUserMessage("x"))
	assert.NoError(t, req.Validate())

	req.MaxTokens = 0
	assert.Error(t, req.Validate())

	empty := NewCompletionRequest()
	assert.Error(t, empty.Validate())

	hot := NewCompletionRequest(NewUserMessage("x"))
	hot.Temperature = 3
	assert.Error(t, hot.Validate())
}
