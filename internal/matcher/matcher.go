// Package matcher implements the FolderMatcher stage: a context-vector
// search grouped and scored into ranked folder matches.
package matcher

import (
	"context"

	"github.com/foldermind/router/internal/capability"
	routererrors "github.com/foldermind/router/internal/errors"
	"github.com/foldermind/router/internal/scoring"
)

const defaultLimit = 50

// FolderMatcher runs a context search against a vector index and turns
// the hits into folder matches ranked by FolderScorer.
type FolderMatcher struct {
	index     capability.VectorIndex
	scorer    *scoring.FolderScorer
	limit     int
	lowThresh float64
}

// NewFolderMatcher builds a FolderMatcher. limit <= 0 falls back to the
// spec default of 50 context-search results.
func NewFolderMatcher(index capability.VectorIndex, scorer *scoring.FolderScorer, lowThreshold float64, limit int) *FolderMatcher {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &FolderMatcher{index: index, scorer: scorer, limit: limit, lowThresh: lowThreshold}
}

// Match searches contextVector, groups the hits by folder, scores each
// group, and returns matches sorted descending by score. An index
// failure is fatal and propagates as a route-stage error.
func (m *FolderMatcher) Match(ctx context.Context, contextVector []float32) ([]capability.FolderMatch, error) {
	hits, err := m.index.SearchByContext(ctx, capability.SearchOptions{
		Vector:    contextVector,
		Threshold: m.lowThresh,
		Limit:     m.limit,
	})
	if err != nil {
		return nil, routererrors.StageErr(routererrors.StageRoute, err)
	}

	return m.scorer.ScoreConcepts(hits), nil
}
