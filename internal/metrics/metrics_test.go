package metrics

import (
	"sync"
	"testing"

	"github.com/foldermind/router/internal/capability"
	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordDecision_TracksActionCounts(t *testing.T) {
	c := New()
	c.RecordDecision(capability.RoutingDecision{Action: capability.ActionRoute, Confidence: 0.9})
	c.RecordDecision(capability.RoutingDecision{Action: capability.ActionDuplicate, Confidence: 0.95})
	c.RecordDecision(capability.RoutingDecision{Action: capability.ActionUnsorted, Confidence: 0.1})

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.TotalRouted)
	assert.Equal(t, int64(1), stats.DuplicatesFound)
	assert.Equal(t, int64(1), stats.UnsortedCount)
	assert.InDelta(t, (0.9+0.95+0.1)/3, stats.AverageConfidence, 1e-9)
}

func TestCollector_ConcurrentRecordDecisionIsRaceFree(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordDecision(capability.RoutingDecision{Action: capability.ActionRoute, Confidence: 0.5})
		}()
	}
	wg.Wait()

	stats := c.Stats()
	assert.Equal(t, int64(100), stats.TotalRouted)
	assert.InDelta(t, 0.5, stats.AverageConfidence, 1e-9)
}

func TestCollector_StatsOnEmptyCollectorHasZeroAverage(t *testing.T) {
	c := New()
	stats := c.Stats()
	assert.Equal(t, 0.0, stats.AverageConfidence)
}
