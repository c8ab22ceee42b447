package timeparse

import (
	"context"
	"time"
)

// Service implements TimeService with rule-based parsing.
type Service struct {
	parser *Parser
}

// NewService creates a time service resolving in the given timezone name.
// Falls back to the process-local timezone when the name is invalid.
func NewService(timezone string) *Service {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.Local
	}
	return &Service{parser: NewParser(loc)}
}

// Resolve parses input relative to the reference instant.
func (s *Service) Resolve(_ context.Context, input string, reference time.Time) (time.Time, error) {
	return s.parser.Parse(input, reference)
}

// Ensure Service implements TimeService
var _ TimeService = (*Service)(nil)
