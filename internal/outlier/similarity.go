package outlier

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyBatch        = errors.New("no vectors to average")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Centroid is the element-wise mean of vectors. Every vector must share one dimension.
func Centroid(vectors [][]float32) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyBatch
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: vector 0 is empty", ErrDimensionMismatch)
	}

	sum := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}

	n := float64(len(vectors))
	for j := range sum {
		sum[j] /= n
	}
	return sum, nil
}

// CosineSimilarity returns the cosine of the angle between v and c, in [-1, 1].
// A zero vector on either side scores 0.
func CosineSimilarity(v []float32, c []float64) float64 {
	if len(v) == 0 || len(v) != len(c) {
		return 0
	}
	var dot, nv, nc float64
	for i := range v {
		x := float64(v[i])
		dot += x * c[i]
		nv += x * x
		nc += c[i] * c[i]
	}
	if nv == 0 || nc == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(nv) * math.Sqrt(nc))
	return math.Max(-1, math.Min(1, sim))
}
