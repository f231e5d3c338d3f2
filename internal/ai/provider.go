package ai

import (
	"context"
)

// Embedder maps text to a fixed-dimension vector representation.
// All vectors produced by one Embedder instance share the same dimension;
// callers rely on this when comparing query vectors against stored vectors.
type Embedder interface {
	// Name returns the provider name (e.g., "bedrock", "ollama")
	Name() string

	// Embed converts a single text into an embedding vector
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts into embedding vectors,
	// preserving input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector length this embedder produces,
	// or 0 if not yet known (some providers report it lazily after
	// the first call)
	Dimension() int

	// Close cleans up provider resources
	Close() error
}

// Generator completes a prompt into generated text, bounded by token
// and stop-sequence limits.
type Generator interface {
	// Name returns the provider name
	Name() string

	// Complete performs text completion. Generation halts at the
	// first stop sequence or at MaxTokens, whichever comes first.
	// The returned content is trimmed of surrounding whitespace.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// MaxTokens returns the maximum context window size
	MaxTokens() int

	// Close cleans up provider resources
	Close() error
}

// HealthChecker provides health checking capabilities
type HealthChecker interface {
	// HealthCheck verifies provider connectivity and status
	HealthCheck(ctx context.Context) error

	// IsHealthy returns current health status
	IsHealthy() bool
}
