package vectordist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDistanceFunction(t *testing.T) {
	assert.True(t, IsDistanceFunction(CosineSimilarity))
	assert.True(t, IsDistanceFunction(EuclideanDistance))
	assert.True(t, IsDistanceFunction(DotProduct))
	assert.False(t, IsDistanceFunction("COUNT"))
}

func TestAscending(t *testing.T) {
	assert.True(t, Ascending(EuclideanDistance))
	assert.False(t, Ascending(CosineSimilarity))
	assert.False(t, Ascending(DotProduct))
}

func TestComputeEuclideanDistance(t *testing.T) {
	d, err := Compute(EuclideanDistance, []float64{0, 0}, []float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, d, 1e-9)
}

func TestComputeDotProduct(t *testing.T) {
	d, err := Compute(DotProduct, []float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.InDelta(t, 32.0, d, 1e-9)
}

func TestComputeCosineSimilarity(t *testing.T) {
	d, err := Compute(CosineSimilarity, []float64{1, 0}, []float64{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d, 1e-9)

	d, err = Compute(CosineSimilarity, []float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, d, 1e-9)
}

func TestComputeCosineSimilarityZeroVector(t *testing.T) {
	d, err := Compute(CosineSimilarity, []float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
}

func TestComputeDimensionMismatch(t *testing.T) {
	_, err := Compute(EuclideanDistance, []float64{1, 2}, []float64{1})
	assert.Error(t, err)
}

func TestComputeUnknownFunction(t *testing.T) {
	_, err := Compute("MANHATTAN_DISTANCE", []float64{1}, []float64{1})
	assert.Error(t, err)
}
