// Package ai implements the secondary classifier on top of an
// OpenAI-compatible chat completions API.
package ai

import "context"

// LLMProvider sends a prompt to an LLM and returns the raw text response.
// Only BatchTransport uses it.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
