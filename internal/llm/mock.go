package llm

import (
	"context"
	"sync"

	"github.com/scoutlens/scoutlens/internal/domain"
	"github.com/scoutlens/scoutlens/internal/governor"
)

// MockClient is a configurable inference client for testing. Set the
// response fields to control what Infer returns; InferFunc, when set,
// takes precedence. Safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	InferResponse string
	InferError    error
	InferFunc     func(prompt string, opts domain.InferOptions) (string, error)

	// Call tracking for assertions
	InferCalls []string
}

func NewMockClient() *MockClient {
	return &MockClient{InferResponse: "mock response"}
}

func (c *MockClient) Infer(ctx context.Context, prompt string, opts domain.InferOptions) (string, error) {
	// Mirrors the real client: refused calls are never recorded.
	if !governor.BudgetFrom(ctx).Acquire() {
		return "", governor.ErrBudgetExhausted
	}

	c.mu.Lock()
	c.InferCalls = append(c.InferCalls, prompt)
	fn := c.InferFunc
	resp, err := c.InferResponse, c.InferError
	c.mu.Unlock()

	if fn != nil {
		return fn(prompt, opts)
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

// Calls returns a copy of the recorded prompts.
func (c *MockClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.InferCalls))
	copy(out, c.InferCalls)
	return out
}

// Reset clears recorded calls and restores defaults.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InferResponse = "mock response"
	c.InferError = nil
	c.InferFunc = nil
	c.InferCalls = nil
}
