// Package model defines the vendor-neutral LLM contract used by model-backed
// evaluator agents, plus a MockModel for tests. Provider adapters live in
// sub-packages (anthropic, openai) so downstream code depends only on the
// Model interface.
package model

import (
	"context"
	"fmt"
	"sync"
)

// Request is a single-shot completion request. Evaluator agents produce one
// structured opinion per invocation, so there is no streaming or tool-call
// surface here.
type Request struct {
	// Instructions is the system prompt framing the evaluator's mandate.
	Instructions string
	// Prompt is the user-turn content, typically a transaction snapshot.
	Prompt string
}

// TokenUsage captures token statistics for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed model turn.
type Response struct {
	Text  string      `json:"text"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Model is the minimal interface a model-backed agent needs. Complete must
// respect ctx cancellation; the invocation coordinator bounds it with the
// per-agent timeout.
type Model interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Info() Info
}

// MockModel is a lightweight in-memory Model for tests and examples. It
// replays canned responses in order, then repeats the last one.
type MockModel struct {
	Responses []string
	Err       error

	mu    sync.Mutex
	calls int
}

var _ Model = (*MockModel)(nil)

// Complete returns the next canned response.
func (m *MockModel) Complete(ctx context.Context, _ Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if m.Err != nil {
		return Response{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Responses) == 0 {
		return Response{}, fmt.Errorf("mock model has no responses configured")
	}
	i := m.calls
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	m.calls++
	return Response{Text: m.Responses[i]}, nil
}

// Info identifies the mock.
func (m *MockModel) Info() Info { return Info{Name: "mock", Provider: "mock"} }

// Calls reports how many completions were requested.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
