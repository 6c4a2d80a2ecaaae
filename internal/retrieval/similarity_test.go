package retrieval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/capstone-search/pkg/types"
)

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr bool
	}{
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, false},
		{"identical unit", []float32{0.6, 0.8}, []float32{0.6, 0.8}, 1, false},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1, false},
		{"empty vectors", []float32{}, []float32{}, 0, false},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DotProduct(tt.a, tt.b)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDimensionMismatch)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestDotProduct_NonFinite(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	for name, v := range map[string][]float32{
		"nan":      {nan, 0},
		"infinity": {inf, 0},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DotProduct(v, []float32{1, 0})
			assert.ErrorIs(t, err, ErrNonFiniteScore)
		})
	}
}

func TestDotProduct_Symmetric(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2}
	b := []float32{0.9, 0.1, -0.4}

	ab, err := DotProduct(a, b)
	require.NoError(t, err)
	ba, err := DotProduct(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestTopK(t *testing.T) {
	corpus := []types.ChunkVector{
		{ChunkID: 1, Vector: []float32{0.1, 0.99}},
		{ChunkID: 2, Vector: []float32{0.9, 0.44}},
		{ChunkID: 3, Vector: []float32{0.5, 0.87}},
	}
	query := []float32{1, 0}

	t.Run("keeps the k best in descending order", func(t *testing.T) {
		top, err := TopK(corpus, query, 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, int64(2), top[0].ChunkID)
		assert.Equal(t, int64(3), top[1].ChunkID)
		assert.InDelta(t, 0.9, top[0].Score, 1e-6)
	})

	t.Run("k larger than corpus", func(t *testing.T) {
		top, err := TopK(corpus, query, 10)
		require.NoError(t, err)
		assert.Len(t, top, 3)
	})

	t.Run("non-positive k", func(t *testing.T) {
		top, err := TopK(corpus, query, 0)
		require.NoError(t, err)
		assert.Empty(t, top)
	})

	t.Run("ties keep corpus order", func(t *testing.T) {
		tied := []types.ChunkVector{
			{ChunkID: 7, Vector: []float32{1, 0}},
			{ChunkID: 4, Vector: []float32{1, 0}},
		}
		top, err := TopK(tied, query, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(7), top[0].ChunkID)
		assert.Equal(t, int64(4), top[1].ChunkID)
	})

	t.Run("non-finite component is fatal", func(t *testing.T) {
		bad := append([]types.ChunkVector{}, corpus...)
		bad = append(bad, types.ChunkVector{ChunkID: 11, Vector: []float32{float32(math.NaN()), 0}})
		top, err := TopK(bad, query, 2)
		assert.Nil(t, top)
		assert.ErrorIs(t, err, ErrNonFiniteScore)
		assert.Contains(t, err.Error(), "chunk 11")
	})

	t.Run("dimension mismatch is fatal", func(t *testing.T) {
		bad := append([]types.ChunkVector{}, corpus...)
		bad = append(bad, types.ChunkVector{ChunkID: 9, Vector: []float32{1, 0, 0}})
		_, err := TopK(bad, query, 2)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		assert.Contains(t, err.Error(), "chunk 9")
	})
}
