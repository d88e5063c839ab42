// Package genservice wraps the text generation backend behind a small
// interface so the rest of the agent never touches an SDK directly.
package genservice

import "context"

// Client is the generation service contract. All prompting in the
// agent goes through these two calls.
type Client interface {
	// Complete generates a response to a single prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithSystem generates a response with a system instruction
	// steering the persona or the task framing.
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// Params carries the sampling settings for a backend client.
type Params struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int32
	TopP        float32
}
