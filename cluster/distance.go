package cluster

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Euclidean returns the L2 distance between two embedding vectors. The
// vectors must be non-empty and of equal length; the upstream model fixes the
// dimensionality (128 for the default face encoder).
func Euclidean(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("empty embedding vector")
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensionality mismatch: %d vs %d", len(a), len(b))
	}

	fa := make([]float64, len(a))
	fb := make([]float64, len(b))
	for i := range a {
		fa[i] = float64(a[i])
		fb[i] = float64(b[i])
	}
	return floats.Distance(fa, fb, 2), nil
}

// Centroid computes the component-wise mean of a set of equal-length
// embeddings. Used as a secondary comparison signal next to the
// quality-selected representative.
func Centroid(embeddings [][]float32) []float64 {
	if len(embeddings) == 0 {
		return nil
	}
	dim := len(embeddings[0])
	sum := make([]float64, dim)
	count := 0
	for _, emb := range embeddings {
		if len(emb) != dim {
			continue
		}
		v := make([]float64, dim)
		for i := range emb {
			v[i] = float64(emb[i])
		}
		floats.Add(sum, v)
		count++
	}
	if count == 0 {
		return nil
	}
	floats.Scale(1/float64(count), sum)
	return sum
}
