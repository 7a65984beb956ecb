package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"devpilot/pkg/agent/llm"
)

func TestToContentsMapsAssistantToModel(t *testing.T) {
	contents := toContents([]llm.CompletionMessage{
		llm.NewUserMessage("hi"),
		llm.NewAssistantMessage("hello"),
	})
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)
}

func TestStopReason(t *testing.T) {
	assert.Equal(t, "unknown", stopReason(&genai.GenerateContentResponse{}))
	assert.Equal(t, "end_turn", stopReason(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{}},
	}))
	assert.Equal(t, "STOP", stopReason(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}},
	}))
}
