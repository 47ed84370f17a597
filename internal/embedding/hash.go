package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// HashEmbedder generates deterministic embeddings from a text hash.
// Identical text always produces identical vectors, which is enough for
// the pattern-deviation signal to work offline: consistent behavior
// summaries map to nearby (identical) points, novel ones land elsewhere.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hash embedder producing unit vectors of the
// given dimension.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashEmbedder{dimension: dimension}
}

// Dimension returns the embedding dimension.
func (h *HashEmbedder) Dimension() int {
	return h.dimension
}

// Embed creates a deterministic unit vector seeded by the FNV-1a hash of
// the text. It never fails.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	hasher := fnv.New64a()
	hasher.Write([]byte(text))
	seed := hasher.Sum64()

	embedding := make([]float64, h.dimension)
	var norm float64
	for i := range embedding {
		// Linear congruential step per component.
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed)) / float64(math.MaxInt64)
		embedding[i] = v
		norm += v * v
	}

	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range embedding {
			embedding[i] /= norm
		}
	}
	return embedding, nil
}
