package outlier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentroid(t *testing.T) {
	t.Run("Mean", func(t *testing.T) {
		c, err := Centroid([][]float32{{1, 0}, {0, 1}, {2, 2}})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 1}, c, 1e-9)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := Centroid(nil)
		assert.ErrorIs(t, err, ErrEmptyBatch)
	})

	t.Run("Dimension Mismatch", func(t *testing.T) {
		_, err := Centroid([][]float32{{1, 0}, {1, 0, 0}})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("Zero Dimension", func(t *testing.T) {
		_, err := Centroid([][]float32{{}})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		v    []float32
		c    []float64
		want float64
	}{
		{"Identical", []float32{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"Scaled", []float32{2, 4}, []float64{1, 2}, 1},
		{"Orthogonal", []float32{1, 0}, []float64{0, 1}, 0},
		{"Opposite", []float32{1, 0}, []float64{-1, 0}, -1},
		{"Zero Vector", []float32{0, 0}, []float64{1, 1}, 0},
		{"Zero Centroid", []float32{1, 1}, []float64{0, 0}, 0},
		{"Length Mismatch", []float32{1}, []float64{1, 1}, 0},
		{"Diagonal", []float32{1, 0}, []float64{1, 1}, 1 / math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.v, tt.c)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, -1.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}
