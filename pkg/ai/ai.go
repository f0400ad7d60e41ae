// Package ai defines the text-generation provider contract and the
// cached enrichment tasks built on top of it.
package ai

import "context"

// Provider is the abstract text-generation backend. Implementations
// reject or respond; nothing at this layer queues or retries.
type Provider interface {
	// GenerateText sends a prompt and returns the text response. The
	// task name identifies the call site in logs and usage stats.
	GenerateText(ctx context.Context, task, prompt string) (string, error)

	// GenerateJSON sends a prompt and unmarshals the response into target.
	GenerateJSON(ctx context.Context, task, prompt string, target any) error

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error
}
