package timeparse

import (
	"context"
	"time"
)

// MockTimeService is a mock implementation of TimeService for testing.
type MockTimeService struct {
	Result time.Time
	Err    error

	// Calls records every input passed to Resolve.
	Calls []string
}

// NewMockTimeService creates a new MockTimeService.
func NewMockTimeService() *MockTimeService {
	return &MockTimeService{}
}

// Resolve returns the configured result or error.
func (m *MockTimeService) Resolve(_ context.Context, input string, _ time.Time) (time.Time, error) {
	m.Calls = append(m.Calls, input)
	if m.Err != nil {
		return time.Time{}, m.Err
	}
	return m.Result, nil
}

// Ensure MockTimeService implements TimeService
var _ TimeService = (*MockTimeService)(nil)
