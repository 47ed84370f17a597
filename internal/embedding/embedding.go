// Package embedding provides text-to-vector embedding for behavior
// summaries. The remote client wraps an HTTP embedding service with
// circuit breaker protection; the hash embedder is a deterministic
// offline fallback used in development and tests.
package embedding

import "context"

// Embedder maps text to a fixed-dimension embedding vector. On failure
// it returns an explicit error, never a silent zero vector.
type Embedder interface {
	// Embed generates the embedding for the given text. The returned
	// slice always has length Dimension().
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimension returns the length of vectors produced by this embedder.
	Dimension() int
}
