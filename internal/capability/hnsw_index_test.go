package capability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWVectorIndex_UpsertAndSearchByContext(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWVectorIndex(4)

	emb := VectorEmbeddings{
		TitleVector:   []float32{1, 0, 0, 0},
		ContextVector: []float32{1, 0, 0, 0},
		Dimensions:    4,
	}
	placement := FolderPlacement{Primary: "go", Confidences: map[FolderID]float64{"go": 0.9}}
	require.NoError(t, idx.Upsert(ctx, "c1", emb, placement))

	results, err := idx.SearchByContext(ctx, SearchOptions{Vector: []float32{1, 0, 0, 0}, Threshold: 0.5, Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ConceptID)
	assert.Equal(t, FolderID("go"), results[0].FolderID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
}

func TestHNSWVectorIndex_Upsert_EmptyPrimaryNormalizesToUnsorted(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWVectorIndex(2)

	emb := VectorEmbeddings{TitleVector: []float32{1, 0}, ContextVector: []float32{1, 0}, Dimensions: 2}
	require.NoError(t, idx.Upsert(ctx, "c1", emb, FolderPlacement{}))

	members, err := idx.SearchByFolder(ctx, UnsortedFolderID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, members)
}

func TestHNSWVectorIndex_Upsert_DimensionMismatchErrors(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWVectorIndex(4)

	emb := VectorEmbeddings{TitleVector: []float32{1, 0}, ContextVector: []float32{1, 0}, Dimensions: 2}
	err := idx.Upsert(ctx, "c1", emb, FolderPlacement{Primary: "go"})
	require.Error(t, err)
}

func TestHNSWVectorIndex_SearchByFolder_IncludesReferencesWhenRequested(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWVectorIndex(2)

	emb := VectorEmbeddings{TitleVector: []float32{1, 0}, ContextVector: []float32{1, 0}, Dimensions: 2}
	placement := FolderPlacement{Primary: "go", References: []FolderID{"testing"}}
	require.NoError(t, idx.Upsert(ctx, "c1", emb, placement))

	primaryOnly, err := idx.SearchByFolder(ctx, "testing", false)
	require.NoError(t, err)
	assert.Empty(t, primaryOnly)

	withRefs, err := idx.SearchByFolder(ctx, "testing", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, withRefs)
}

func TestHNSWVectorIndex_UpsertOverwritesByConceptID(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWVectorIndex(2)

	emb1 := VectorEmbeddings{TitleVector: []float32{1, 0}, ContextVector: []float32{1, 0}, Dimensions: 2}
	require.NoError(t, idx.Upsert(ctx, "c1", emb1, FolderPlacement{Primary: "go"}))

	emb2 := VectorEmbeddings{TitleVector: []float32{0, 1}, ContextVector: []float32{0, 1}, Dimensions: 2}
	require.NoError(t, idx.Upsert(ctx, "c1", emb2, FolderPlacement{Primary: "rust"}))

	goMembers, err := idx.SearchByFolder(ctx, "go", false)
	require.NoError(t, err)
	assert.Empty(t, goMembers)

	rustMembers, err := idx.SearchByFolder(ctx, "rust", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, rustMembers)
}

func TestHNSWVectorIndex_SetAndGetFolderCentroid(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWVectorIndex(2)

	require.NoError(t, idx.SetFolderCentroid(ctx, "go", []float32{0.5, 0.5}))
	require.NoError(t, idx.SetFolderExemplars(ctx, "go", [][]float32{{1, 0}}))

	fc, err := idx.GetFolderVectorData(ctx, "go")
	require.NoError(t, err)
	require.NotNil(t, fc)
	assert.Equal(t, []float32{0.5, 0.5}, fc.Centroid)
	assert.Equal(t, [][]float32{{1, 0}}, fc.Exemplars)
}

func TestHNSWVectorIndex_GetFolderVectorData_UnknownFolderReturnsNilNoError(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWVectorIndex(2)

	fc, err := idx.GetFolderVectorData(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, fc)
}

func TestHNSWVectorIndex_Delete_RemovesFromFolderMembership(t *testing.T) {
	ctx := context.Background()
	idx := NewHNSWVectorIndex(2)

	emb := VectorEmbeddings{TitleVector: []float32{1, 0}, ContextVector: []float32{1, 0}, Dimensions: 2}
	require.NoError(t, idx.Upsert(ctx, "c1", emb, FolderPlacement{Primary: "go"}))
	require.NoError(t, idx.Delete(ctx, "c1"))

	members, err := idx.SearchByFolder(ctx, "go", false)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestHNSWVectorIndex_IsReady(t *testing.T) {
	idx := NewHNSWVectorIndex(4)
	assert.True(t, idx.IsReady())
	require.NoError(t, idx.Close())
	assert.False(t, idx.IsReady())
}
