// Package scoring combines the per-concept similarities a context
// search returns into a single per-folder score, and orders folders by
// that score with a deterministic tie-break.
package scoring

import (
	"sort"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/vectormath"
)

// Weights holds the FolderScorer combination weights.
type Weights struct {
	WAvg      float64
	WMax      float64
	BonusMult float64
	MaxBonus  float64
}

// DefaultWeights matches the routing config's default scoring section.
func DefaultWeights() Weights {
	return Weights{WAvg: 0.6, WMax: 0.2, BonusMult: 0.1, MaxBonus: 0.3}
}

// FolderScorer combines per-concept similarities within a folder group
// into a single score and ranks folders by it.
type FolderScorer struct {
	weights Weights
}

// NewFolderScorer builds a FolderScorer from w. A zero Weights uses
// DefaultWeights instead, so callers can pass a partially-zero config
// value without silently scoring everything to 0.
func NewFolderScorer(w Weights) *FolderScorer {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &FolderScorer{weights: w}
}

// Score combines the similarities of concepts into a single folder
// score. It is commutative: the result does not depend on the order of
// concepts. Empty input scores 0.
func (s *FolderScorer) Score(concepts []capability.SimilarConcept) float64 {
	if len(concepts) == 0 {
		return 0
	}

	sims := make([]float64, len(concepts))
	for i, c := range concepts {
		sims[i] = c.Similarity
	}

	avg := vectormath.AverageSimilarity(sims)
	max := vectormath.Max(sims)
	bonus := float64(len(concepts)) * s.weights.BonusMult
	if bonus > s.weights.MaxBonus {
		bonus = s.weights.MaxBonus
	}

	return s.weights.WAvg*avg + s.weights.WMax*max + bonus
}

// GroupByFolder partitions concepts by FolderID, defaulting a missing
// or empty FolderID to capability.UnsortedFolderID.
func GroupByFolder(concepts []capability.SimilarConcept) map[capability.FolderID][]capability.SimilarConcept {
	groups := make(map[capability.FolderID][]capability.SimilarConcept)
	for _, c := range concepts {
		fid := c.FolderID
		if fid == "" {
			fid = capability.UnsortedFolderID
		}
		groups[fid] = append(groups[fid], c)
	}
	return groups
}

// ScoreGroups scores every folder group and returns the resulting
// matches sorted descending by score, with ties broken by higher
// conceptCount, then by lexicographically smaller folderId.
func (s *FolderScorer) ScoreGroups(groups map[capability.FolderID][]capability.SimilarConcept) []capability.FolderMatch {
	matches := make([]capability.FolderMatch, 0, len(groups))
	for fid, concepts := range groups {
		matches = append(matches, capability.FolderMatch{
			FolderID:        fid,
			Score:           s.Score(concepts),
			ConceptCount:    len(concepts),
			SimilarConcepts: concepts,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ConceptCount != b.ConceptCount {
			return a.ConceptCount > b.ConceptCount
		}
		return a.FolderID < b.FolderID
	})

	return matches
}

// ScoreConcepts groups concepts by folder and scores each group in one
// step; it is the shape FolderMatcher calls after a context search.
func (s *FolderScorer) ScoreConcepts(concepts []capability.SimilarConcept) []capability.FolderMatch {
	return s.ScoreGroups(GroupByFolder(concepts))
}
