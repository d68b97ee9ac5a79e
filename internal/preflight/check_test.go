package preflight

import (
	"bytes"
	"context"
	"testing"

	"github.com/foldermind/router/internal/capability"
	"github.com/foldermind/router/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_CheckConfigValid_PassesOnDefault(t *testing.T) {
	c := New()
	result := c.CheckConfigValid(config.Default())
	assert.Equal(t, StatusPass, result.Status)
}

func TestChecker_CheckConfigValid_FailsOnBadThresholds(t *testing.T) {
	cfg := config.Default()
	cfg.Thresholds.LowConfidence = 0.99
	cfg.Thresholds.HighConfidence = 0.1

	c := New()
	result := c.CheckConfigValid(cfg)
	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, result.IsCritical())
}

func TestChecker_CheckIndexReady_FailsOnNilIndex(t *testing.T) {
	c := New()
	result := c.CheckIndexReady(nil)
	assert.Equal(t, StatusFail, result.Status)
}

func TestChecker_CheckIndexReady_PassesOnReadyIndex(t *testing.T) {
	c := New()
	idx := capability.NewMemoryVectorIndex(8)
	result := c.CheckIndexReady(idx)
	assert.Equal(t, StatusPass, result.Status)
}

func TestChecker_CheckDimensionAgreement_FailsOnMismatch(t *testing.T) {
	c := New()
	idx := capability.NewMemoryVectorIndex(8)
	result := c.CheckDimensionAgreement(idx, 16)
	assert.Equal(t, StatusFail, result.Status)
}

func TestChecker_CheckDimensionAgreement_PassesOnMatch(t *testing.T) {
	c := New()
	idx := capability.NewMemoryVectorIndex(8)
	result := c.CheckDimensionAgreement(idx, 8)
	assert.Equal(t, StatusPass, result.Status)
}

func TestChecker_RunAll_SummaryStatusReady(t *testing.T) {
	c := New()
	idx := capability.NewMemoryVectorIndex(8)
	results := c.RunAll(context.Background(), config.Default(), idx, 8)
	require.False(t, c.HasCriticalFailures(results))
	assert.Equal(t, "ready", c.SummaryStatus(results))
}

func TestChecker_PrintResults_WritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithOutput(&buf))
	idx := capability.NewMemoryVectorIndex(8)
	results := c.RunAll(context.Background(), config.Default(), idx, 8)

	c.PrintResults(results)
	assert.Contains(t, buf.String(), "Status: READY")
}
