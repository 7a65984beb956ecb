// Package utils holds small helpers shared across packages: token counting and identifier slugs.
package utils

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts tokens with the cl100k encoding. Every supported provider is
// approximated with it; exact counts are not required for budgeting.
type TokenCounter struct {
	codec tokenizer.Codec
}

//nolint:gochecknoglobals // shared codec, loading it is expensive
var (
	sharedCounter     *TokenCounter
	sharedCounterErr  error
	sharedCounterOnce sync.Once
)

// NewTokenCounter returns a counter backed by the GPT-4 codec.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the token count of text, falling back to len/4 when the codec fails.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.codec == nil {
		return len(text) / 4
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// CountTokensSimple counts with a lazily created shared counter.
func CountTokensSimple(text string) int {
	sharedCounterOnce.Do(func() {
		sharedCounter, sharedCounterErr = NewTokenCounter()
	})
	if sharedCounterErr != nil {
		return len(text) / 4
	}
	return sharedCounter.CountTokens(text)
}
