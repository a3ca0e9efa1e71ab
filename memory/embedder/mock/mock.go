// Package mock provides a deterministic, offline embedder.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder derives embeddings from token hashes so that texts sharing words
// land close to each other. Good enough for tests and for running the server
// without an embedding API key.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder producing vectors of the given size (default 256).
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &Embedder{dimensions: dimensions}
}

// Embed hashes every lowercased word into a bucket and returns the unit vector.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding := make([]float32, m.dimensions)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(word))
		sum := h.Sum64()

		bucket := int(sum % uint64(m.dimensions))
		sign := float32(1)
		if (sum>>32)&1 == 1 {
			sign = -1
		}
		embedding[bucket] += sign
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int {
	return m.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		// chromem rejects zero vectors; empty text maps to a fixed axis.
		vec[0] = 1
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
