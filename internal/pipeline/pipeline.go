// Package pipeline sequences a single concept candidate through
// Distill, Embed, Dedup, Match and Decide, wrapping stage failures the
// way the routing core's error taxonomy expects.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/config"
	"github.com/foldermind/router/internal/decision"
	"github.com/foldermind/router/internal/dedup"
	routererrors "github.com/foldermind/router/internal/errors"
	"github.com/foldermind/router/internal/logging"
	"github.com/foldermind/router/internal/matcher"
)

// Result is what a single pipeline run produces: the routing decision
// plus bookkeeping the caller needs to apply side effects afterward.
type Result struct {
	Decision   capability.RoutingDecision
	Distilled  capability.DistilledContent
	Embeddings capability.VectorEmbeddings
	ElapsedMs  int64
}

// Pipeline wires together the per-candidate stages. It holds no
// mutable state of its own; side effects (index upsert, centroid
// update) are the caller's responsibility once a decision comes back.
type Pipeline struct {
	distiller capability.Distiller
	embedder  capability.Embedder
	dupe      *dedup.DuplicateDetector
	match     *matcher.FolderMatcher
	decide    *decision.DecisionMaker
	cfg       config.Config
}

// New builds a Pipeline from its stage components and the active config.
func New(
	distiller capability.Distiller,
	embedder capability.Embedder,
	dupe *dedup.DuplicateDetector,
	match *matcher.FolderMatcher,
	decide *decision.DecisionMaker,
	cfg config.Config,
) *Pipeline {
	return &Pipeline{distiller: distiller, embedder: embedder, dupe: dupe, match: match, decide: decide, cfg: cfg}
}

// Execute runs candidate through Distill -> Embed -> Dedup -> Match ->
// Decide, returning as soon as a terminal decision is reached or a
// stage fails fatally.
func (p *Pipeline) Execute(ctx context.Context, candidate capability.ConceptCandidate) (Result, error) {
	start := time.Now()

	distilled, err := p.distiller.Distill(ctx, candidate.Normalize())
	if err != nil {
		stageErr := routererrors.StageErr(routererrors.StageDistill, err)
		logging.LogRouterError(slog.Default(), stageErr)
		return Result{ElapsedMs: time.Since(start).Milliseconds()}, stageErr
	}

	embeddings, err := p.embedder.Embed(ctx, distilled)
	if err != nil {
		stageErr := routererrors.StageErr(routererrors.StageEmbed, err)
		logging.LogRouterError(slog.Default(), stageErr)
		return Result{Distilled: distilled, ElapsedMs: time.Since(start).Milliseconds()}, stageErr
	}

	if dup := p.dupe.Check(ctx, embeddings.TitleVector); dup.Found {
		return Result{
			Decision: capability.RoutingDecision{
				Action:      capability.ActionDuplicate,
				DuplicateID: dup.ConceptID,
				Confidence:  dup.Similarity,
				Explanation: fmt.Sprintf("Duplicate of existing concept (%.0f%% similar)", dup.Similarity*100),
				Timestamp:   time.Now(),
			},
			Distilled:  distilled,
			Embeddings: embeddings,
			ElapsedMs:  time.Since(start).Milliseconds(),
		}, nil
	}

	matches, err := p.match.Match(ctx, embeddings.ContextVector)
	if err != nil {
		logging.LogRouterError(slog.Default(), err) // already a StageErr(StageRoute, ...)
		return Result{Distilled: distilled, Embeddings: embeddings, ElapsedMs: time.Since(start).Milliseconds()}, err
	}

	routingDecision := p.decide.Decide(matches, time.Now())

	return Result{
		Decision:   routingDecision,
		Distilled:  distilled,
		Embeddings: embeddings,
		ElapsedMs:  time.Since(start).Milliseconds(),
	}, nil
}
