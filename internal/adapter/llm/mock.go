package llm

import (
	"context"
	"sync"

	"docqa/internal/port"
)

// MockCompleter is a scriptable completer for tests. It records every prompt
// and returns either a canned response, the output of Fn, or an error.
type MockCompleter struct {
	mu       sync.Mutex
	prompts  []string
	Response string
	Err      error
	// Fn, when set, computes the response from the prompt.
	Fn func(prompt string) (string, error)
}

func (m *MockCompleter) Complete(_ context.Context, prompt string, _ port.CompleteOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	fn := m.Fn
	m.mu.Unlock()

	if fn != nil {
		return fn(prompt)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockCompleter) ModelName() string {
	return "mock"
}

// Calls returns how many completions were requested.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of all recorded prompts.
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
