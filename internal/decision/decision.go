// Package decision implements the DecisionMaker stage: a pure
// transition-table function turning ranked folder matches into a
// routing decision, plus the multi-folder placement and deterministic
// explanation it produces on a Route outcome.
package decision

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/config"
)

const maxPlacements = 5
const maxExplanationConcepts = 5
const maxExplanationMatches = 3

// DecisionMaker evaluates the spec's transition table against ranked
// folder matches and a thresholds config. It holds no mutable state.
type DecisionMaker struct {
	thresholds config.ThresholdsConfig
}

// NewDecisionMaker builds a DecisionMaker against t.
func NewDecisionMaker(t config.ThresholdsConfig) *DecisionMaker {
	return &DecisionMaker{thresholds: t}
}

// Decide evaluates matches (already sorted descending by score) and
// returns the routing decision. now is injected so callers can pin the
// decision timestamp for reproducible tests.
func (d *DecisionMaker) Decide(matches []capability.FolderMatch, now time.Time) capability.RoutingDecision {
	t := d.thresholds

	var best *capability.FolderMatch
	if len(matches) > 0 {
		best = &matches[0]
	}

	var score float64
	if best != nil {
		score = best.Score
	}

	switch {
	case best == nil || score < t.NewTopic:
		return capability.RoutingDecision{
			Action:      capability.ActionUnsorted,
			Confidence:  score,
			Explanation: explainSimple("below new-topic threshold", matches),
			Timestamp:   now,
		}
	case score >= t.Duplicate:
		return capability.RoutingDecision{
			Action:      capability.ActionDuplicate,
			DuplicateID: string(best.FolderID),
			Confidence:  score,
			Explanation: explainSimple("very-high similarity to an existing folder", matches),
			Timestamp:   now,
		}
	case score >= t.HighConfidence:
		placement := buildPlacement(*best, matches, t)
		return capability.RoutingDecision{
			Action:      capability.ActionRoute,
			FolderID:    best.FolderID,
			Placement:   placement,
			Confidence:  score,
			Explanation: explainRoute(*best, matches, t),
			Timestamp:   now,
		}
	case score >= t.LowConfidence:
		return capability.RoutingDecision{
			Action:      capability.ActionReview,
			Confidence:  score,
			Explanation: explainSimple("Ambiguous match requires manual review", matches),
			Timestamp:   now,
		}
	default:
		return capability.RoutingDecision{
			Action:      capability.ActionUnsorted,
			Confidence:  score,
			Explanation: explainSimple("no threshold crossed", matches),
			Timestamp:   now,
		}
	}
}

// buildPlacement computes the primary+references+alternatives placement
// for a Route decision. References are matches within crossLinkDelta of
// the primary that clear folderPlacement; alternatives are the
// remaining matches clearing crossLinkMin, recorded in Confidences but
// not in References. At most maxPlacements total.
func buildPlacement(primary capability.FolderMatch, matches []capability.FolderMatch, t config.ThresholdsConfig) capability.FolderPlacement {
	placement := capability.FolderPlacement{
		Primary:     primary.FolderID,
		Confidences: map[capability.FolderID]float64{primary.FolderID: primary.Score},
	}

	count := 1
	for _, m := range matches[1:] {
		if count >= maxPlacements {
			break
		}
		if m.Score >= t.FolderPlacement && primary.Score-m.Score <= t.CrossLinkDelta {
			placement.References = append(placement.References, m.FolderID)
			placement.Confidences[m.FolderID] = m.Score
			count++
		}
	}
	for _, m := range matches[1:] {
		if count >= maxPlacements {
			break
		}
		if m.Score >= t.FolderPlacement && primary.Score-m.Score <= t.CrossLinkDelta {
			continue // already added as a reference above
		}
		if m.Score >= t.CrossLinkMin {
			placement.Confidences[m.FolderID] = m.Score
			count++
		}
	}

	return placement
}

func explainSimple(primarySignal string, matches []capability.FolderMatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "primarySignal=%s", primarySignal)
	appendTopMatches(&b, matches)
	appendTopConcepts(&b, matches)
	return b.String()
}

func explainRoute(best capability.FolderMatch, matches []capability.FolderMatch, t config.ThresholdsConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "primarySignal=high-confidence route to %s (score=%.4f, count=%d, high=%.2f)",
		best.FolderID, best.Score, best.ConceptCount, t.HighConfidence)
	appendTopMatches(&b, matches)
	appendTopConcepts(&b, matches)
	return b.String()
}

func appendTopMatches(b *strings.Builder, matches []capability.FolderMatch) {
	n := len(matches)
	if n > maxExplanationMatches {
		n = maxExplanationMatches
	}
	b.WriteString("; topMatches=[")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s:%.4f", matches[i].FolderID, matches[i].Score)
	}
	b.WriteString("]")
}

func appendTopConcepts(b *strings.Builder, matches []capability.FolderMatch) {
	if len(matches) == 0 {
		return
	}
	concepts := append([]capability.SimilarConcept(nil), matches[0].SimilarConcepts...)
	sort.Slice(concepts, func(i, j int) bool { return concepts[i].Similarity > concepts[j].Similarity })

	n := len(concepts)
	if n > maxExplanationConcepts {
		n = maxExplanationConcepts
	}
	b.WriteString("; similarConcepts=[")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s:%.4f", concepts[i].ConceptID, concepts[i].Similarity)
	}
	b.WriteString("]")
}
