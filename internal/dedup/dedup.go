// Package dedup implements the duplicate-detection stage: a title-vector
// top-1 threshold search that short-circuits the pipeline when a
// near-identical concept already exists.
package dedup

import (
	"context"
	"log/slog"

	"github.com/foldermind/router/internal/capability"
)

// Result is what DuplicateDetector reports back to the pipeline.
type Result struct {
	Found      bool
	ConceptID  string
	Similarity float64
}

// DuplicateDetector queries a VectorIndex's title search for a top-1
// match above threshold. An index failure is swallowed: the caller
// proceeds as if no duplicate was found.
type DuplicateDetector struct {
	index     capability.VectorIndex
	threshold float64
	logger    *slog.Logger
}

// NewDuplicateDetector builds a DuplicateDetector against index, firing
// above threshold. A nil logger falls back to slog.Default().
func NewDuplicateDetector(index capability.VectorIndex, threshold float64, logger *slog.Logger) *DuplicateDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DuplicateDetector{index: index, threshold: threshold, logger: logger}
}

// Check searches titleVector for a near-duplicate. Errors from the
// underlying index are logged and treated as "no duplicate found";
// this stage never fails the pipeline.
func (d *DuplicateDetector) Check(ctx context.Context, titleVector []float32) Result {
	matches, err := d.index.SearchByTitle(ctx, capability.SearchOptions{
		Vector:    titleVector,
		Threshold: d.threshold,
		Limit:     1,
	})
	if err != nil {
		d.logger.Warn("duplicate_search_failed", slog.String("error", err.Error()))
		return Result{Found: false}
	}
	if len(matches) == 0 {
		return Result{Found: false}
	}

	top := matches[0]
	return Result{Found: true, ConceptID: top.ConceptID, Similarity: top.Similarity}
}
