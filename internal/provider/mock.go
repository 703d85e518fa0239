package provider

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// MockAdapter returns deterministic responses for offline runs and tests.
type MockAdapter struct {
	name            string
	responses       map[string]string
	defaultResponse string
	// Err, when set, is returned from every Invoke call.
	Err error
	// Delay simulates a slow backend by blocking until the context expires
	// when set larger than the call timeout.
	Block bool

	calls atomic.Int64
	mu    sync.RWMutex
}

// NewMockAdapter creates a mock adapter answering with a default response.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{
		name:            name,
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// SetResponse fixes the response returned for an exact payload.
func (a *MockAdapter) SetResponse(payload, response string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[payload] = response
}

// SetDefaultResponse fixes the response returned for unknown payloads.
func (a *MockAdapter) SetDefaultResponse(response string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.defaultResponse = response
}

// Calls returns how many times Invoke has been called.
func (a *MockAdapter) Calls() int64 {
	return a.calls.Load()
}

// Name returns the adapter's provider name.
func (a *MockAdapter) Name() string {
	return a.name
}

// Invoke returns the configured deterministic response.
func (a *MockAdapter) Invoke(ctx context.Context, model, payload string) (*Result, error) {
	a.calls.Add(1)

	if a.Block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if a.Err != nil {
		return nil, a.Err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	content, ok := a.responses[payload]
	if !ok {
		content = fmt.Sprintf("%s %s", a.defaultResponse, payload)
	}

	return &Result{
		Content: content,
		Usage:   &Usage{PromptTokens: len(payload) / 4, CompletionTokens: len(content) / 4, TotalTokens: (len(payload) + len(content)) / 4},
	}, nil
}
