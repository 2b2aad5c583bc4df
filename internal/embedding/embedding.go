package embedding

import (
	"context"
	"math"
)

// Embedder maps text to a fixed-length vector. The zero value of an
// implementation is not usable; construct via the package constructors.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
	Model() string
}

// Cosine returns the cosine similarity of two vectors, 0 when either vector
// is empty, zero-length, or the dimensions disagree.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
