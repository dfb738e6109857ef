package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVectorIndex(t *testing.T) *VectorIndex {
	t.Helper()
	v, err := OpenVectorIndex(filepath.Join(t.TempDir(), "vectors.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func TestVectorIndex_StoreAndSearch(t *testing.T) {
	v := newTestVectorIndex(t)

	require.NoError(t, v.Store("a", []float32{1, 0, 0}, "m1"))
	require.NoError(t, v.Store("b", []float32{0, 1, 0}, "m1"))

	matches, err := v.Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "a", matches[0].ID)
	assert.InDelta(t, 0, matches[0].Distance, 1e-4)
}

func TestVectorIndex_StoreRejectsEmptyVector(t *testing.T) {
	v := newTestVectorIndex(t)
	assert.Error(t, v.Store("a", nil, "m1"))
}

func TestVectorIndex_StoreRejectsNonFinite(t *testing.T) {
	v := newTestVectorIndex(t)
	assert.Error(t, v.Store("a", []float32{1, float32(nanValue())}, "m1"))
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestVectorIndex_StoreRejectsDimensionMismatch(t *testing.T) {
	v := newTestVectorIndex(t)
	require.NoError(t, v.Store("a", []float32{1, 0, 0}, "m1"))
	assert.Error(t, v.Store("b", []float32{1, 0}, "m1"))
}

func TestVectorIndex_SearchRejectsNonPositiveLimit(t *testing.T) {
	v := newTestVectorIndex(t)
	require.NoError(t, v.Store("a", []float32{1, 0}, "m1"))
	_, err := v.Search([]float32{1, 0}, 0)
	assert.Error(t, err)
}

func TestVectorIndex_SearchOnEmptyIndex(t *testing.T) {
	v := newTestVectorIndex(t)
	matches, err := v.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVectorIndex_Delete(t *testing.T) {
	v := newTestVectorIndex(t)
	require.NoError(t, v.Store("a", []float32{1, 0}, "m1"))
	require.NoError(t, v.Delete("a"))

	has, err := v.HasEmbedding("a")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestVectorIndex_GetModel(t *testing.T) {
	v := newTestVectorIndex(t)
	require.NoError(t, v.Store("a", []float32{1, 0}, "m1"))

	model, ok, err := v.GetModel("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "m1", model)
}

func TestVectorIndex_Count(t *testing.T) {
	v := newTestVectorIndex(t)
	require.NoError(t, v.Store("a", []float32{1, 0}, "m1"))
	require.NoError(t, v.Store("b", []float32{0, 1}, "m1"))

	n, err := v.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestVectorIndex_UpsertReplacesVector(t *testing.T) {
	v := newTestVectorIndex(t)
	require.NoError(t, v.Store("a", []float32{1, 0}, "m1"))
	require.NoError(t, v.Store("a", []float32{0, 1}, "m1"))

	matches, err := v.Search([]float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
}

func TestVectorIndex_RebuildsFromRowsOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	v, err := OpenVectorIndex(path, nil)
	require.NoError(t, err)
	require.NoError(t, v.Store("a", []float32{1, 0}, "m1"))
	require.NoError(t, v.Close())

	reopened, err := OpenVectorIndex(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	has, err := reopened.HasEmbedding("a")
	require.NoError(t, err)
	assert.True(t, has)

	matches, err := reopened.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
}

func TestVectorIndex_MultiModelDoesNotFailSearch(t *testing.T) {
	v := newTestVectorIndex(t)
	require.NoError(t, v.Store("a", []float32{1, 0}, "m1"))
	require.NoError(t, v.Store("b", []float32{0, 1}, "m2"))

	matches, err := v.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}
