// Package timeparse provides natural-language date/time resolution for the
// booking dialogue.
package timeparse

import (
	"context"
	"time"
)

// TimeService resolves free-text date/time expressions.
type TimeService interface {
	// Resolve parses input relative to the reference instant.
	// Returns ErrUnparsable when the expression is not understood.
	Resolve(ctx context.Context, input string, reference time.Time) (time.Time, error)
}
