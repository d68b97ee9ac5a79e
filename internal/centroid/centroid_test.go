package centroid

import (
	"context"
	"testing"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.CentroidConfig {
	return config.CentroidConfig{
		ExemplarCount:        3,
		ExemplarStrategy:     "medoid",
		IncrementalThreshold: 32,
		StabilityFloor:       0.0,
		RedundancyThreshold:  0.9,
		ContextTokenBudget:   4000,
		TokensPerFolder:      40,
	}
}

func TestManager_AddMember_IncrementalMatchesBatchCentroid(t *testing.T) {
	ctx := context.Background()
	idx := capability.NewMemoryVectorIndex(3)
	m := NewManager(idx, testConfig())

	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}}
	for i, v := range vecs {
		require.NoError(t, m.AddMember(ctx, "go", v))
		_ = i
	}

	s := m.state("go")
	var sum [3]float64
	for _, v := range vecs {
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	n := float64(len(vecs))
	for i := range sum {
		assert.InDelta(t, sum[i]/n, float64(s.centroid[i]), 1e-9)
	}
}

func TestManager_RemoveMember_InverseOfAdd(t *testing.T) {
	ctx := context.Background()
	idx := capability.NewMemoryVectorIndex(2)
	m := NewManager(idx, testConfig())

	require.NoError(t, m.AddMember(ctx, "go", []float32{1, 0}))
	require.NoError(t, m.AddMember(ctx, "go", []float32{0, 1}))
	require.NoError(t, m.RemoveMember(ctx, "go", []float32{0, 1}))

	s := m.state("go")
	assert.Equal(t, 1, s.memberCount)
	assert.InDelta(t, 1.0, float64(s.centroid[0]), 1e-6)
	assert.InDelta(t, 0.0, float64(s.centroid[1]), 1e-6)
}

func TestManager_RemoveMember_LastMemberClearsCentroid(t *testing.T) {
	ctx := context.Background()
	idx := capability.NewMemoryVectorIndex(2)
	m := NewManager(idx, testConfig())

	require.NoError(t, m.AddMember(ctx, "go", []float32{1, 0}))
	require.NoError(t, m.RemoveMember(ctx, "go", []float32{1, 0}))

	s := m.state("go")
	assert.Equal(t, 0, s.memberCount)
	assert.Nil(t, s.centroid)
}

func TestManager_SelectExemplars_MedoidPicksNearestFirst(t *testing.T) {
	m := NewManager(capability.NewMemoryVectorIndex(2), testConfig())
	members := [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}}
	centroid := []float32{1, 0}

	exemplars := m.SelectExemplars(members, centroid, 1, "medoid")
	require.Len(t, exemplars, 1)
	assert.Equal(t, []float32{1, 0}, exemplars[0])
}

func TestManager_SelectExemplars_BoundaryPicksFarthest(t *testing.T) {
	m := NewManager(capability.NewMemoryVectorIndex(2), testConfig())
	members := [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}}
	centroid := []float32{1, 0}

	exemplars := m.SelectExemplars(members, centroid, 1, "boundary")
	require.Len(t, exemplars, 1)
	assert.Equal(t, []float32{0, 1}, exemplars[0])
}

func TestManager_SelectExemplars_DiverseSpreadsOut(t *testing.T) {
	m := NewManager(capability.NewMemoryVectorIndex(2), testConfig())
	members := [][]float32{{1, 0}, {0.95, 0.05}, {0, 1}}
	centroid := []float32{1, 0}

	exemplars := m.SelectExemplars(members, centroid, 2, "diverse")
	require.Len(t, exemplars, 2)
	assert.Contains(t, exemplars, []float32{1, 0})
	assert.Contains(t, exemplars, []float32{0, 1})
}

func TestManager_SelectExemplars_UnknownStrategyFallsBackToMedoid(t *testing.T) {
	m := NewManager(capability.NewMemoryVectorIndex(2), testConfig())
	members := [][]float32{{1, 0}, {0, 1}}
	centroid := []float32{1, 0}

	exemplars := m.SelectExemplars(members, centroid, 1, "unknown")
	assert.Equal(t, []float32{1, 0}, exemplars[0])
}

func TestManager_FindRedundantFolders_DetectsNearIdenticalCentroids(t *testing.T) {
	ctx := context.Background()
	idx := capability.NewMemoryVectorIndex(2)
	require.NoError(t, idx.SetFolderCentroid(ctx, "go", []float32{1, 0}))
	require.NoError(t, idx.SetFolderCentroid(ctx, "golang", []float32{0.99, 0.01}))
	require.NoError(t, idx.SetFolderCentroid(ctx, "cooking", []float32{0, 1}))
	// seed the index's folder id set via upserts so GetAllFolderIDs finds them
	require.NoError(t, idx.Upsert(ctx, "c1", capability.VectorEmbeddings{TitleVector: []float32{1, 0}, ContextVector: []float32{1, 0}, Dimensions: 2}, capability.FolderPlacement{Primary: "go"}))
	require.NoError(t, idx.Upsert(ctx, "c2", capability.VectorEmbeddings{TitleVector: []float32{1, 0}, ContextVector: []float32{1, 0}, Dimensions: 2}, capability.FolderPlacement{Primary: "golang"}))
	require.NoError(t, idx.Upsert(ctx, "c3", capability.VectorEmbeddings{TitleVector: []float32{1, 0}, ContextVector: []float32{1, 0}, Dimensions: 2}, capability.FolderPlacement{Primary: "cooking"}))

	m := NewManager(idx, testConfig())
	pairs, err := m.FindRedundantFolders(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.ElementsMatch(t, []capability.FolderID{"go", "golang"}, []capability.FolderID{pairs[0].A, pairs[0].B})
}

func TestManager_ContextFor_BootstrapCapsSlots(t *testing.T) {
	ctx := context.Background()
	idx := capability.NewMemoryVectorIndex(2)
	for i := 0; i < 10; i++ {
		fid := capability.FolderID(string(rune('a' + i)))
		require.NoError(t, idx.SetFolderCentroid(ctx, fid, []float32{0.2, 0.8}))
		require.NoError(t, idx.Upsert(ctx, "c"+string(rune('0'+i)),
			capability.VectorEmbeddings{TitleVector: []float32{0.2, 0.8}, ContextVector: []float32{0.2, 0.8}, Dimensions: 2},
			capability.FolderPlacement{Primary: fid}))
	}

	cfg := testConfig()
	cfg.TokensPerFolder = 1
	cfg.ContextTokenBudget = 1000
	m := NewManager(idx, cfg)

	candidates, err := m.ContextFor(ctx, []float32{0.2, 0.8}, 1000, capability.PhaseBootstrap)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(candidates), 5)
}
