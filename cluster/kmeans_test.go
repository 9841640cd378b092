package cluster

import (
	"testing"

	"github.com/poiesic/docvec/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectRepresentatives_Empty(t *testing.T) {
	_, err := SelectRepresentatives(nil, 5)
	assert.ErrorIs(t, err, core.ErrClusterInputEmpty)
}

func TestSelectRepresentatives_Single(t *testing.T) {
	indices, err := SelectRepresentatives([][]float32{{0.3, 0.4}}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, indices)
}

func TestSelectRepresentatives_IdenticalVectors(t *testing.T) {
	vectors := make([][]float32, 5)
	for i := range vectors {
		vectors[i] = []float32{1, 2, 3}
	}

	indices, err := SelectRepresentatives(vectors, 5)
	require.NoError(t, err)
	assert.Len(t, indices, 1)
	assert.Equal(t, []int{0}, indices)
}

func TestSelectRepresentatives_SeparatedGroups(t *testing.T) {
	// Three tight groups; with maxClusters 3 one index from each group is chosen.
	vectors := [][]float32{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
		{-10, 10}, {-10.1, 10}, {-10, 10.1},
	}

	indices, err := SelectRepresentatives(vectors, 3)
	require.NoError(t, err)
	require.Len(t, indices, 3)

	groups := map[int]bool{}
	for _, idx := range indices {
		groups[idx/3] = true
	}
	assert.Len(t, groups, 3, "each group should be represented once")
	assert.IsIncreasing(t, indices)
}

func TestSelectRepresentatives_BoundedAndSorted(t *testing.T) {
	vectors := make([][]float32, 20)
	for i := range vectors {
		vectors[i] = []float32{float32(i % 7), float32(i * i % 11), float32(i % 3)}
	}

	indices, err := SelectRepresentatives(vectors, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, indices)
	assert.LessOrEqual(t, len(indices), 5)
	assert.IsIncreasing(t, indices)
	for _, idx := range indices {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, len(vectors))
	}
}

func TestSelectRepresentatives_FewerVectorsThanClusters(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}, {-1, 0}}
	indices, err := SelectRepresentatives(vectors, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indices)
}

func TestSelectRepresentatives_Deterministic(t *testing.T) {
	vectors := make([][]float32, 30)
	for i := range vectors {
		vectors[i] = []float32{float32(i % 5), float32((i * 7) % 13), float32(i % 2)}
	}

	first, err := SelectRepresentatives(vectors, 5)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := SelectRepresentatives(vectors, 5)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSelectRepresentatives_DefaultMaxClusters(t *testing.T) {
	vectors := make([][]float32, 12)
	for i := range vectors {
		vectors[i] = []float32{float32(i * 10), 0}
	}
	indices, err := SelectRepresentatives(vectors, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(indices), DefaultMaxClusters)
}

func TestSelectRepresentatives_DimensionMismatch(t *testing.T) {
	_, err := SelectRepresentatives([][]float32{{1, 2}, {1, 2, 3}}, 2)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestKMeans_Labels(t *testing.T) {
	vectors := [][]float32{{0, 0}, {0, 1}, {100, 100}, {100, 101}}
	result, err := KMeans(vectors, 2, DefaultSeed)
	require.NoError(t, err)

	require.Len(t, result.Centroids, 2)
	require.Len(t, result.Labels, 4)
	assert.Equal(t, result.Labels[0], result.Labels[1])
	assert.Equal(t, result.Labels[2], result.Labels[3])
	assert.NotEqual(t, result.Labels[0], result.Labels[2])
	assert.GreaterOrEqual(t, result.Iterations, 1)
}

func TestKMeans_InvalidK(t *testing.T) {
	_, err := KMeans([][]float32{{1}}, 0, DefaultSeed)
	assert.Error(t, err)
}
