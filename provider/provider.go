// Package provider defines the seams to the external embedding, vector-index
// and generation services. Implementations must be safe for concurrent use by
// multiple in-flight requests; handles are constructed once at startup and
// injected where needed.
package provider

import (
	"context"

	"github.com/campusrag/campusrag/model"
)

// SearchFilter restricts a similarity search to chunks whose metadata value
// for each key is one of the allowed values.
type SearchFilter map[string][]string

// Embedder converts text into a fixed-dimension vector. Documents and queries
// must be embedded with the same model and dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorIndex wraps one logical similarity-search collection.
type VectorIndex interface {
	Name() string
	Search(ctx context.Context, vector []float32, topK int, filter SearchFilter) ([]model.DocumentChunk, error)
}

// Generator produces text from a prompt. Treated as rate-limited,
// non-deterministic and capable of transient failure.
type Generator interface {
	Complete(ctx context.Context, system string, prompt string) (string, error)
}
