// Package cluster implements BatchClusterer: greedy single-link
// agglomeration over a processed batch, per-candidate routing via the
// same pipeline used for single concepts, and single-candidate
// expansion-opportunity detection against the unsorted folder.
package cluster

import (
	"context"
	"sort"
	"strings"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/config"
	"github.com/foldermind/router/internal/pipeline"
	"github.com/foldermind/router/internal/vectormath"
)

// Member is one processed concept entering the batch clusterer: its id
// and the context vector used for clustering similarity.
type Member struct {
	ConceptID     string
	ContextVector []float32
	Candidate     capability.ConceptCandidate
}

// BatchResult is what Cluster() returns: the per-member individual
// routing decisions plus the folder-creation suggestions derived from
// surviving clusters.
type BatchResult struct {
	Decisions   map[string]pipeline.Result
	Clusters    []capability.ClusterProposal
	Suggestions []capability.FolderSuggestion
}

// Clusterer runs greedy single-link agglomeration over a batch and
// expansion-opportunity detection for a single candidate.
type Clusterer struct {
	pipeline *pipeline.Pipeline
	index    capability.VectorIndex
	batchCfg config.BatchConfig
	clustCfg config.ClusteringConfig
}

// New builds a Clusterer.
func New(p *pipeline.Pipeline, index capability.VectorIndex, batchCfg config.BatchConfig, clustCfg config.ClusteringConfig) *Clusterer {
	return &Clusterer{pipeline: p, index: index, batchCfg: batchCfg, clustCfg: clustCfg}
}

// Cluster routes every member through the pipeline, then partitions the
// batch by greedy single-link agglomeration on context-vector cosine
// similarity.
func (c *Clusterer) Cluster(ctx context.Context, members []Member) (BatchResult, error) {
	decisions := make(map[string]pipeline.Result, len(members))
	for _, m := range members {
		result, err := c.pipeline.Execute(ctx, m.Candidate)
		if err != nil {
			return BatchResult{}, err
		}
		decisions[m.ConceptID] = result
	}

	if !c.batchCfg.EnableBatchClustering {
		return BatchResult{Decisions: decisions}, nil
	}

	clusters := c.agglomerate(members)

	suggestions := make([]capability.FolderSuggestion, 0, len(clusters))
	if c.batchCfg.EnableFolderCreation {
		for _, cl := range clusters {
			if cl.Action != capability.ClusterActionCreateFolder {
				continue
			}
			titles := make([]string, 0, len(cl.Members))
			for _, id := range cl.Members {
				if r, ok := decisions[id]; ok {
					titles = append(titles, r.Distilled.Title)
				}
			}
			suggestions = append(suggestions, capability.FolderSuggestion{
				Name:       nameFromTitles(titles),
				Members:    cl.Members,
				Confidence: cl.Coherence,
			})
		}
	}

	return BatchResult{Decisions: decisions, Clusters: clusters, Suggestions: suggestions}, nil
}

// agglomerate performs the greedy single-link pass described in the
// core's clustering design: walk members in input order, seed a
// cluster from the first unvisited member, absorb every later member
// whose cosine to the seed clears ClusterSimilarityThreshold, mark
// absorbed members visited, and repeat.
func (c *Clusterer) agglomerate(members []Member) []capability.ClusterProposal {
	visited := make([]bool, len(members))
	var proposals []capability.ClusterProposal

	threshold := c.clustCfg.ClusterSimilarityThreshold
	maxSize := c.clustCfg.MaxClusterSize

	for i, seed := range members {
		if visited[i] {
			continue
		}
		visited[i] = true
		memberIdx := []int{i}

		for j := i + 1; j < len(members); j++ {
			if visited[j] {
				continue
			}
			if maxSize > 0 && len(memberIdx) >= maxSize {
				break
			}
			sim, err := vectormath.Cosine(seed.ContextVector, members[j].ContextVector)
			if err != nil {
				continue
			}
			if sim >= threshold {
				visited[j] = true
				memberIdx = append(memberIdx, j)
			}
		}

		if len(memberIdx) < c.batchCfg.MinClusterSize {
			action := capability.ClusterActionRouteTogether
			if len(memberIdx) == 1 {
				continue // lone, below-threshold singleton: nothing to propose
			}
			proposals = append(proposals, c.buildProposal(members, memberIdx, action))
			continue
		}
		proposals = append(proposals, c.buildProposal(members, memberIdx, capability.ClusterActionCreateFolder))
	}

	return proposals
}

func (c *Clusterer) buildProposal(members []Member, idx []int, action capability.ClusterAction) capability.ClusterProposal {
	vecs := make([][]float32, len(idx))
	ids := make([]string, len(idx))
	for i, mi := range idx {
		vecs[i] = members[mi].ContextVector
		ids[i] = members[mi].ConceptID
	}

	centroid, _ := vectormath.Centroid(vecs)
	coherence, _ := vectormath.Coherence(vecs)

	return capability.ClusterProposal{
		Members:   ids,
		Centroid:  centroid,
		Coherence: coherence,
		Action:    action,
	}
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "and": true, "to": true,
	"in": true, "on": true, "for": true, "is": true, "are": true, "with": true,
}

// nameFromTitles derives a folder name from the top 3 non-stopword
// tokens across titles, joined with hyphens. Falls back to "new-topic"
// when no usable token is found.
func nameFromTitles(titles []string) string {
	seen := make(map[string]bool)
	var tokens []string
	for _, title := range titles {
		for _, tok := range strings.Fields(strings.ToLower(title)) {
			tok = strings.Trim(tok, ".,;:!?\"'()")
			if tok == "" || stopwords[tok] || seen[tok] {
				continue
			}
			seen[tok] = true
			tokens = append(tokens, tok)
			if len(tokens) == 3 {
				break
			}
		}
		if len(tokens) == 3 {
			break
		}
	}
	if len(tokens) == 0 {
		return "new-topic"
	}
	return strings.Join(tokens, "-")
}

// ExpansionOpportunity reports a single-candidate proposal for a new
// folder, derived from hits against the unsorted folder.
type ExpansionOpportunity struct {
	Found      bool
	Suggestion capability.FolderSuggestion
}

// DetectExpansion queries context search against the unsorted folder
// for candidateID/contextVector/title. If at least minClusterSize-1
// hits clear UnsortedSimilarityThreshold, it proposes a new folder.
func (c *Clusterer) DetectExpansion(ctx context.Context, candidateID string, contextVector []float32, title string) (ExpansionOpportunity, error) {
	hits, err := c.index.SearchByContext(ctx, capability.SearchOptions{
		Vector:    contextVector,
		Threshold: c.clustCfg.UnsortedSimilarityThreshold,
		Limit:     c.clustCfg.UnsortedSearchLimit,
	})
	if err != nil {
		return ExpansionOpportunity{}, err
	}

	var unsortedHits []capability.SimilarConcept
	for _, h := range hits {
		if h.ConceptID == candidateID {
			continue
		}
		if h.FolderID == capability.UnsortedFolderID || h.FolderID == "" {
			unsortedHits = append(unsortedHits, h)
		}
	}

	required := c.batchCfg.MinClusterSize - 1
	if required < 1 {
		required = 1
	}
	if len(unsortedHits) < required {
		return ExpansionOpportunity{Found: false}, nil
	}

	members := make([]string, 0, len(unsortedHits)+1)
	members = append(members, candidateID)
	var simSum float64
	for _, h := range unsortedHits {
		members = append(members, h.ConceptID)
		simSum += h.Similarity
	}

	sort.Strings(members[1:])

	return ExpansionOpportunity{
		Found: true,
		Suggestion: capability.FolderSuggestion{
			Name:       nameFromTitles([]string{title}),
			Members:    members,
			Confidence: simSum / float64(len(unsortedHits)),
		},
	}, nil
}
