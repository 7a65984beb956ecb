// Package metrics provides LLM middleware that reports request counts, tokens and latency.
package metrics

import (
	"context"
	"time"

	"devpilot/pkg/agent/llm"
	"devpilot/pkg/agent/llmerrors"
	"devpilot/pkg/utils"
)

// Recorder is the subset of metrics.Recorder this middleware needs.
type Recorder interface {
	ObserveRequest(model string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration)
}

// UsageExtractor estimates prompt and completion tokens for one exchange.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor counts tokens locally since not every provider reports usage.
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (int, int) {
	prompt := 0
	for i := range req.Messages {
		prompt += utils.CountTokensSimple(req.Messages[i].Content)
	}
	return prompt, utils.CountTokensSimple(resp.Content)
}

// Middleware records every Complete call.
func Middleware(recorder Recorder, extractor UsageExtractor) llm.Middleware {
	if extractor == nil {
		extractor = DefaultUsageExtractor
	}
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				if err != nil {
					prompt, _ := extractor(req, llm.CompletionResponse{})
					recorder.ObserveRequest(next.GetModelName(), prompt, 0, false, llmerrors.TypeOf(err).String(), duration)
					return resp, err
				}
				prompt, completion := extractor(req, resp)
				recorder.ObserveRequest(next.GetModelName(), prompt, completion, true, "", duration)
				return resp, nil
			},
			next.GetModelName,
		)
	}
}
