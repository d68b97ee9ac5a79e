// Package router exposes the routing engine's public entry points: a
// thin facade dispatching to Pipeline and BatchClusterer, recording
// metrics and detecting expansion opportunities along the way.
package router

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/centroid"
	"github.com/foldermind/router/internal/cluster"
	"github.com/foldermind/router/internal/config"
	"github.com/foldermind/router/internal/decision"
	"github.com/foldermind/router/internal/dedup"
	routererrors "github.com/foldermind/router/internal/errors"
	"github.com/foldermind/router/internal/logging"
	"github.com/foldermind/router/internal/matcher"
	"github.com/foldermind/router/internal/metrics"
	"github.com/foldermind/router/internal/pipeline"
	"github.com/foldermind/router/internal/scoring"
)

// Router is the public facade over the routing core. It owns no
// mutable routing state beyond its metrics collector; index and
// centroid state live behind the VectorIndex it was built with.
type Router struct {
	pipeline  *pipeline.Pipeline
	clusterer *cluster.Clusterer
	centroids *centroid.Manager
	metrics   *metrics.Collector
	index     capability.VectorIndex
	distiller capability.Distiller
	embedder  capability.Embedder
	cfg       config.Config
}

// New wires a Router from its components. Use Build for the common
// case of constructing every stage from cfg/index/distiller/embedder
// in one call.
func New(p *pipeline.Pipeline, clusterer *cluster.Clusterer, centroids *centroid.Manager, index capability.VectorIndex, distiller capability.Distiller, embedder capability.Embedder, cfg config.Config) *Router {
	return &Router{pipeline: p, clusterer: clusterer, centroids: centroids, metrics: metrics.New(), index: index, distiller: distiller, embedder: embedder, cfg: cfg}
}

// Build assembles a Router and every stage it depends on from a config,
// vector index, distiller and embedder, following the same wiring a
// production deployment uses.
func Build(cfg config.Config, index capability.VectorIndex, distiller capability.Distiller, embedder capability.Embedder) *Router {
	dupe := dedup.NewDuplicateDetector(index, cfg.Thresholds.Duplicate, nil)
	scorer := scoring.NewFolderScorer(scoring.Weights{
		WAvg:      cfg.Scoring.WAvg,
		WMax:      cfg.Scoring.WMax,
		BonusMult: cfg.Scoring.BonusMult,
		MaxBonus:  cfg.Scoring.MaxBonus,
	})
	m := matcher.NewFolderMatcher(index, scorer, cfg.Thresholds.LowConfidence, cfg.Search.ContextSearchLimit)
	d := decision.NewDecisionMaker(cfg.Thresholds)
	p := pipeline.New(distiller, embedder, dupe, m, d, cfg)
	c := cluster.New(p, index, cfg.Batch, cfg.Clustering)
	cm := centroid.NewManager(index, cfg.Centroid)

	return New(p, c, cm, index, distiller, embedder, cfg)
}

// RouteResult is what Route returns: the pipeline outcome, plus any
// folder-expansion opportunity detected for an unsorted placement.
type RouteResult struct {
	pipeline.Result
	Expansion *cluster.ExpansionOpportunity
}

// Route runs a single candidate through the pipeline, applying the
// resulting placement and centroid updates, recording metrics, and
// checking an unsorted placement for an expansion opportunity before
// returning the decision.
func (r *Router) Route(ctx context.Context, candidate capability.ConceptCandidate) (RouteResult, error) {
	candidate = ensureID(candidate)
	result, err := r.pipeline.Execute(ctx, candidate)
	if err != nil {
		return RouteResult{Result: result}, err
	}

	r.metrics.RecordDecision(result.Decision)

	if err := r.applySideEffects(ctx, candidate, result); err != nil {
		return RouteResult{Result: result}, err
	}

	routeResult := RouteResult{Result: result}
	if result.Decision.Action == capability.ActionUnsorted {
		routeResult.Expansion = r.detectExpansion(ctx, candidate, result)
	}

	return routeResult, nil
}

// detectExpansion checks whether candidate's placement into Unsorted
// clears the cluster size needed to propose a new folder. Detection
// failures are logged and otherwise swallowed: a missed expansion
// opportunity this round is not fatal, since RouteBatch's own
// clustering pass covers the same ground for batched input.
func (r *Router) detectExpansion(ctx context.Context, candidate capability.ConceptCandidate, result pipeline.Result) *cluster.ExpansionOpportunity {
	opportunity, err := r.clusterer.DetectExpansion(ctx, candidate.ID, result.Embeddings.ContextVector, result.Distilled.Title)
	if err != nil {
		logging.LogRouterError(slog.Default(), routererrors.Wrap(routererrors.ErrCodeInternal, err))
		return nil
	}
	if !opportunity.Found {
		return nil
	}
	return &opportunity
}

// applySideEffects persists the routing outcome: index upsert on a
// non-duplicate decision, and a centroid update for the folder the
// concept landed in.
func (r *Router) applySideEffects(ctx context.Context, candidate capability.ConceptCandidate, result pipeline.Result) error {
	switch result.Decision.Action {
	case capability.ActionDuplicate:
		return nil
	case capability.ActionRoute:
		placement := result.Decision.Placement
		if err := r.index.Upsert(ctx, candidate.ID, result.Embeddings, placement); err != nil {
			return err
		}
		if r.centroids != nil {
			return r.centroids.AddMember(ctx, placement.Primary, result.Embeddings.ContextVector)
		}
		return nil
	default:
		placement := capability.FolderPlacement{Primary: capability.UnsortedFolderID}
		if err := r.index.Upsert(ctx, candidate.ID, result.Embeddings, placement); err != nil {
			return err
		}
		if r.centroids != nil {
			return r.centroids.AddMember(ctx, capability.UnsortedFolderID, result.Embeddings.ContextVector)
		}
		return nil
	}
}

// RouteBatch clusters a batch of candidates, routing each individually
// and proposing new folders from clusters that clear minClusterSize.
func (r *Router) RouteBatch(ctx context.Context, candidates []capability.ConceptCandidate) (cluster.BatchResult, error) {
	members := make([]cluster.Member, 0, len(candidates))
	for _, cand := range candidates {
		cand = ensureID(cand)
		// Cluster() re-derives each candidate's own decision via the
		// full pipeline; this pre-pass only needs the context vector to
		// seed agglomeration, so each candidate is distilled and embedded
		// twice unless the supplied distiller/embedder cache their results.
		distilled, err := r.distiller.Distill(ctx, cand.Normalize())
		if err != nil {
			return cluster.BatchResult{}, err
		}
		embeddings, err := r.embedder.Embed(ctx, distilled)
		if err != nil {
			return cluster.BatchResult{}, err
		}
		members = append(members, cluster.Member{
			ConceptID:     cand.ID,
			ContextVector: embeddings.ContextVector,
			Candidate:     cand,
		})
	}

	result, err := r.clusterer.Cluster(ctx, members)
	if err != nil {
		return cluster.BatchResult{}, err
	}

	for range result.Suggestions {
		r.metrics.RecordFolderCreated()
	}
	for _, d := range result.Decisions {
		r.metrics.RecordDecision(d.Decision)
	}

	return result, nil
}

// ensureID assigns a random id to a candidate that arrived without one,
// so callers that only have raw text don't need their own id scheme.
func ensureID(candidate capability.ConceptCandidate) capability.ConceptCandidate {
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	return candidate
}

// Stats returns the router's accumulated metrics.
func (r *Router) Stats() metrics.Snapshot {
	return r.metrics.Stats()
}
