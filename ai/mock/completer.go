package mock

import (
	"context"
	"sync"
)

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type MockCompleter struct {
	// Model is the candidate model this completer answers for.
	Model string

	// CompleteFunc is called by Complete if set.
	// If nil, answers "answer from <model>".
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

// NewMockCompleter creates a mock completer for model with default behavior.
func NewMockCompleter(model string) *MockCompleter {
	return &MockCompleter{Model: model}
}

// Complete records the prompt and returns the configured answer.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	return "answer from " + m.Model, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of every prompt received, in call order.
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Fail makes every call return err.
func (m *MockCompleter) Fail(err error) *MockCompleter {
	m.mu.Lock()
	m.CompleteFunc = func(context.Context, string) (string, error) { return "", err }
	m.mu.Unlock()
	return m
}

// Reply makes every call return answer.
func (m *MockCompleter) Reply(answer string) *MockCompleter {
	m.mu.Lock()
	m.CompleteFunc = func(context.Context, string) (string, error) { return answer, nil }
	m.mu.Unlock()
	return m
}
