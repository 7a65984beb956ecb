// Package ratelimit provides LLM middleware that spaces requests to a per-minute budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"devpilot/pkg/agent/llm"
	"devpilot/pkg/agent/llmerrors"
	"devpilot/pkg/logx"
)

// WaitObserver receives the time each request spent queued.
type WaitObserver interface {
	ObserveThrottle(model string, wait time.Duration)
}

// NewLimiter returns a limiter for requestsPerMinute, or nil when the budget is unlimited.
func NewLimiter(requestsPerMinute, burst int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst)
}

// Middleware blocks each call until the limiter admits it. A nil limiter passes through.
func Middleware(limiter *rate.Limiter, observer WaitObserver) llm.Middleware {
	logger := logx.NewLogger("ratelimit")
	return func(next llm.LLMClient) llm.LLMClient {
		if limiter == nil {
			return next
		}
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				if err := limiter.Wait(ctx); err != nil {
					return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeRateLimit, err,
						fmt.Sprintf("request to %s not admitted", next.GetModelName()))
				}
				wait := time.Since(start)
				if wait > time.Second {
					logger.Debug("throttled %s for %s", next.GetModelName(), wait.Round(time.Millisecond))
				}
				if observer != nil {
					observer.ObserveThrottle(next.GetModelName(), wait)
				}
				return next.Complete(ctx, req)
			},
			next.GetModelName,
		)
	}
}
