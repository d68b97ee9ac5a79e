// Package metrics implements MetricsCollector: monotonic, lock-free
// counters and a running confidence sum, safe for concurrent use by
// every in-flight pipeline task.
package metrics

import (
	"math"
	"sync/atomic"

	"github.com/foldermind/router/internal/capability"
)

func float64FromBits(b uint64) float64 { return math.Float64frombits(b) }
func float64ToBits(v float64) uint64   { return math.Float64bits(v) }

// Snapshot is the point-in-time view MetricsCollector.Stats returns.
type Snapshot struct {
	TotalRouted       int64
	DuplicatesFound   int64
	FoldersCreated    int64
	UnsortedCount     int64
	AverageConfidence float64
}

// Collector accumulates routing outcomes using atomic counters, so
// RecordDecision can be called concurrently from many pipeline workers
// without contention.
type Collector struct {
	totalRouted     int64
	duplicatesFound int64
	foldersCreated  int64
	unsortedCount   int64

	// confidenceSumBits stores the running confidence sum's IEEE-754
	// bit pattern, updated via a CAS retry loop since Go has no
	// atomic.Float64 in the stdlib version this module targets.
	confidenceSumBits uint64
	confidenceCount   int64
}

// New builds an empty Collector.
func New() *Collector {
	return &Collector{}
}

// RecordDecision folds one routing decision into the running counters.
func (c *Collector) RecordDecision(decision capability.RoutingDecision) {
	atomic.AddInt64(&c.totalRouted, 1)

	switch decision.Action {
	case capability.ActionDuplicate:
		atomic.AddInt64(&c.duplicatesFound, 1)
	case capability.ActionUnsorted:
		atomic.AddInt64(&c.unsortedCount, 1)
	case capability.ActionCreateFolder:
		atomic.AddInt64(&c.foldersCreated, 1)
	}

	c.addConfidence(decision.Confidence)
}

// RecordFolderCreated increments the folders-created counter directly,
// for batch-clusterer proposals that never flow through RecordDecision.
func (c *Collector) RecordFolderCreated() {
	atomic.AddInt64(&c.foldersCreated, 1)
}

func (c *Collector) addConfidence(v float64) {
	atomic.AddInt64(&c.confidenceCount, 1)
	for {
		old := atomic.LoadUint64(&c.confidenceSumBits)
		sum := float64FromBits(old) + v
		if atomic.CompareAndSwapUint64(&c.confidenceSumBits, old, float64ToBits(sum)) {
			return
		}
	}
}

// Stats returns the current snapshot.
func (c *Collector) Stats() Snapshot {
	count := atomic.LoadInt64(&c.confidenceCount)
	var avg float64
	if count > 0 {
		avg = float64FromBits(atomic.LoadUint64(&c.confidenceSumBits)) / float64(count)
	}
	return Snapshot{
		TotalRouted:       atomic.LoadInt64(&c.totalRouted),
		DuplicatesFound:   atomic.LoadInt64(&c.duplicatesFound),
		FoldersCreated:    atomic.LoadInt64(&c.foldersCreated),
		UnsortedCount:     atomic.LoadInt64(&c.unsortedCount),
		AverageConfidence: avg,
	}
}
