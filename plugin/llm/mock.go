package llm

import (
	"context"
	"sync"
	"time"
)

// MockGenerator is a mock implementation of Generator for testing.
type MockGenerator struct {
	mu sync.Mutex

	Response string
	Err      error

	// CallCount records how many times Generate was invoked.
	CallCount int
	// LastPrompt records the most recent prompt.
	LastPrompt string
	// LastHistory records the most recent history.
	LastHistory []Message
}

// NewMockGenerator creates a new MockGenerator returning response.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response}
}

// Generate returns the configured response or error.
func (m *MockGenerator) Generate(_ context.Context, prompt string, history []Message) (*Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastPrompt = prompt
	m.LastHistory = history

	if m.Err != nil {
		return nil, m.Err
	}
	return &Reply{Text: m.Response, Duration: time.Millisecond}, nil
}

// Calls returns the number of Generate invocations.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Ensure MockGenerator implements Generator
var _ Generator = (*MockGenerator)(nil)
