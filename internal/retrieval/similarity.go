package retrieval

import (
	"fmt"
	"math"
	"sort"

	"github.com/dshills/capstone-search/pkg/types"
)

// NearestNeighbors returns the k corpus entries most similar to query, best first
type NearestNeighbors func(corpus []types.ChunkVector, query []float32, k int) ([]types.ScoredChunk, error)

// DotProduct computes the dot product of two vectors, which equals cosine
// similarity for unit-normalized inputs. A NaN or infinite result is an error.
func DotProduct(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNonFiniteScore, sum)
	}
	return sum, nil
}

// TopK scores every corpus vector against query and keeps the k best.
// Equal scores keep their corpus order.
func TopK(corpus []types.ChunkVector, query []float32, k int) ([]types.ScoredChunk, error) {
	if k <= 0 || len(corpus) == 0 {
		return []types.ScoredChunk{}, nil
	}

	scored := make([]types.ScoredChunk, len(corpus))
	for i, cv := range corpus {
		score, err := DotProduct(cv.Vector, query)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", cv.ChunkID, err)
		}
		scored[i] = types.ScoredChunk{ChunkID: cv.ChunkID, Score: score}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
