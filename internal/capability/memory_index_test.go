package capability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVectorIndex_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryVectorIndex(3)

	emb := VectorEmbeddings{TitleVector: []float32{1, 0, 0}, ContextVector: []float32{1, 0, 0}, Dimensions: 3}
	require.NoError(t, idx.Upsert(ctx, "c1", emb, FolderPlacement{Primary: "go"}))

	results, err := idx.SearchByContext(ctx, SearchOptions{Vector: []float32{1, 0, 0}, Threshold: 0.1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ConceptID)
}

func TestMemoryVectorIndex_Upsert_NormalizesEmptyPrimary(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryVectorIndex(2)

	emb := VectorEmbeddings{TitleVector: []float32{1, 0}, ContextVector: []float32{1, 0}, Dimensions: 2}
	require.NoError(t, idx.Upsert(ctx, "c1", emb, FolderPlacement{}))

	ids, err := idx.SearchByFolder(ctx, UnsortedFolderID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)
}

func TestMemoryVectorIndex_GetAllFolderIDs_IncludesReferences(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryVectorIndex(2)

	emb := VectorEmbeddings{TitleVector: []float32{1, 0}, ContextVector: []float32{1, 0}, Dimensions: 2}
	require.NoError(t, idx.Upsert(ctx, "c1", emb, FolderPlacement{Primary: "go", References: []FolderID{"testing"}}))

	ids, err := idx.GetAllFolderIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []FolderID{"go", "testing"}, ids)
}

func TestMemoryVectorIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryVectorIndex(3)

	_, err := idx.SearchByContext(ctx, SearchOptions{Vector: []float32{1, 0}, Threshold: 0})
	require.Error(t, err)
}

func TestMemoryVectorIndex_Delete(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryVectorIndex(2)

	emb := VectorEmbeddings{TitleVector: []float32{1, 0}, ContextVector: []float32{1, 0}, Dimensions: 2}
	require.NoError(t, idx.Upsert(ctx, "c1", emb, FolderPlacement{Primary: "go"}))
	require.NoError(t, idx.Delete(ctx, "c1"))

	ids, err := idx.SearchByFolder(ctx, "go", false)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
