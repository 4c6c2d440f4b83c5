package embeddings

import (
	"context"
	"errors"
)

// ErrProviderUnavailable signals that the embedding backend could not serve a request.
var ErrProviderUnavailable = errors.New("embedding provider unavailable")

// Provider scores how close two texts are in meaning. Higher is more similar.
// Implementations must be deterministic for fixed model state and safe for concurrent use.
type Provider interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}
