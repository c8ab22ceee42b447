// Package llm provides the upstream text-generation contract used for the
// open Q&A path. Booking is deliberately handled without it.
package llm

import (
	"context"
	"time"
)

// Message represents a chat turn passed as generation context.
type Message struct {
	Role    string // "user" | "bot"
	Content string
}

// Reply is the result of a generation call.
type Reply struct {
	Text     string
	Duration time.Duration
}

// Generator produces a reply for a prompt with prior conversation history.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []Message) (*Reply, error)
}
