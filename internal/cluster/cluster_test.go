package cluster

import (
	"context"
	"testing"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/config"
	"github.com/foldermind/router/internal/decision"
	"github.com/foldermind/router/internal/dedup"
	"github.com/foldermind/router/internal/matcher"
	"github.com/foldermind/router/internal/pipeline"
	"github.com/foldermind/router/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildClusterer(t *testing.T) (*Clusterer, capability.VectorIndex) {
	t.Helper()
	cfg := config.Default()
	idx := capability.NewMemoryVectorIndex(8)
	distiller := capability.NewStaticDistiller()
	embedder := capability.NewStaticEmbedder(8)
	dupe := dedup.NewDuplicateDetector(idx, cfg.Thresholds.Duplicate, nil)
	m := matcher.NewFolderMatcher(idx, scoring.NewFolderScorer(scoring.DefaultWeights()), cfg.Thresholds.LowConfidence, cfg.Search.ContextSearchLimit)
	d := decision.NewDecisionMaker(cfg.Thresholds)
	p := pipeline.New(distiller, embedder, dupe, m, d, *cfg)
	return New(p, idx, cfg.Batch, cfg.Clustering), idx
}

func TestClusterer_AgglomerateGroupsSimilarMembers(t *testing.T) {
	c, _ := buildClusterer(t)
	members := []Member{
		{ConceptID: "a", ContextVector: []float32{1, 0, 0, 0, 0, 0, 0, 0}, Candidate: capability.ConceptCandidate{ID: "a", RawText: "graph theory basics"}},
		{ConceptID: "b", ContextVector: []float32{0.95, 0.05, 0, 0, 0, 0, 0, 0}, Candidate: capability.ConceptCandidate{ID: "b", RawText: "graph theory advanced"}},
		{ConceptID: "c", ContextVector: []float32{0.9, 0.1, 0, 0, 0, 0, 0, 0}, Candidate: capability.ConceptCandidate{ID: "c", RawText: "graph theory intro"}},
		{ConceptID: "d", ContextVector: []float32{0, 0, 0, 0, 0, 0, 0, 1}, Candidate: capability.ConceptCandidate{ID: "d", RawText: "cooking recipes"}},
	}

	result, err := c.Cluster(context.Background(), members)
	require.NoError(t, err)
	require.Len(t, result.Decisions, 4)

	var createFolder int
	for _, cl := range result.Clusters {
		if cl.Action == capability.ClusterActionCreateFolder {
			createFolder++
			assert.GreaterOrEqual(t, len(cl.Members), 3)
		}
	}
	assert.Equal(t, 1, createFolder)
	require.Len(t, result.Suggestions, 1)
	assert.NotEmpty(t, result.Suggestions[0].Name)
}

func TestClusterer_DetectExpansion_ProposesNewFolderAboveThreshold(t *testing.T) {
	c, idx := buildClusterer(t)
	ctx := context.Background()

	hitVec := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	for i := 0; i < 3; i++ {
		emb := capability.VectorEmbeddings{TitleVector: hitVec, ContextVector: hitVec, Dimensions: 8}
		require.NoError(t, idx.Upsert(ctx, "hit"+string(rune('0'+i)), emb, capability.FolderPlacement{}))
	}

	opp, err := c.DetectExpansion(ctx, "new-candidate", hitVec, "graph theory basics")
	require.NoError(t, err)
	assert.True(t, opp.Found)
	assert.Contains(t, opp.Suggestion.Members, "new-candidate")
}

func TestClusterer_DetectExpansion_BelowMinHitsReturnsNotFound(t *testing.T) {
	c, idx := buildClusterer(t)
	ctx := context.Background()

	hitVec := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	emb := capability.VectorEmbeddings{TitleVector: hitVec, ContextVector: hitVec, Dimensions: 8}
	require.NoError(t, idx.Upsert(ctx, "hit0", emb, capability.FolderPlacement{}))

	opp, err := c.DetectExpansion(ctx, "new-candidate", hitVec, "graph theory basics")
	require.NoError(t, err)
	assert.False(t, opp.Found)
}

func TestClusterer_DetectExpansion_ExcludesCandidatesOwnIndexEntry(t *testing.T) {
	c, idx := buildClusterer(t)
	ctx := context.Background()

	hitVec := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	emb := capability.VectorEmbeddings{TitleVector: hitVec, ContextVector: hitVec, Dimensions: 8}
	require.NoError(t, idx.Upsert(ctx, "hit0", emb, capability.FolderPlacement{}))
	// Route already upserted the candidate itself before calling
	// DetectExpansion; it must not count as one of its own hits.
	require.NoError(t, idx.Upsert(ctx, "new-candidate", emb, capability.FolderPlacement{}))

	opp, err := c.DetectExpansion(ctx, "new-candidate", hitVec, "graph theory basics")
	require.NoError(t, err)
	assert.False(t, opp.Found)
	occurrences := 0
	for _, m := range opp.Suggestion.Members {
		if m == "new-candidate" {
			occurrences++
		}
	}
	assert.LessOrEqual(t, occurrences, 1)
}

func TestNameFromTitles_UsesTopThreeNonStopwordTokens(t *testing.T) {
	name := nameFromTitles([]string{"The Graph Theory of Networks"})
	assert.Equal(t, "graph-theory-networks", name)
}

func TestNameFromTitles_FallsBackWhenNoTokens(t *testing.T) {
	name := nameFromTitles([]string{"the of and"})
	assert.Equal(t, "new-topic", name)
}
