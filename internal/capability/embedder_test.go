package capability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	routererrors "github.com/foldermind/router/internal/errors"
)

func TestStaticEmbedder_DeterministicForSameInput(t *testing.T) {
	e := NewStaticEmbedder(64)
	content := DistilledContent{Title: "graph theory", Summary: "notes on graphs", ContentHash: "h1"}

	emb1, err := e.Embed(context.Background(), content)
	require.NoError(t, err)
	emb2, err := e.Embed(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, emb1.ContextVector, emb2.ContextVector)
	assert.Equal(t, 64, emb1.Dimensions)
}

func TestStaticEmbedder_DifferentInputsDiffer(t *testing.T) {
	e := NewStaticEmbedder(64)

	a, err := e.Embed(context.Background(), DistilledContent{Title: "graph theory"})
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), DistilledContent{Title: "cooking recipes"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ContextVector, b.ContextVector)
}

func TestStaticEmbedder_EmptyInputReturnsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(8)
	emb, err := e.Embed(context.Background(), DistilledContent{})
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), emb.ContextVector)
}

type fakeEmbedder struct {
	calls        int
	fail         int
	dims         int
	nonRetryable bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, content DistilledContent) (VectorEmbeddings, error) {
	f.calls++
	if f.calls <= f.fail {
		if f.nonRetryable {
			return VectorEmbeddings{}, routererrors.ProviderErr(routererrors.ProviderKindAuth, "bad credentials", nil)
		}
		return VectorEmbeddings{}, routererrors.ProviderErr(routererrors.ProviderKindTimeout, "transient failure", nil)
	}
	return VectorEmbeddings{ContentHash: content.ContentHash, Dimensions: f.dims}, nil
}
func (f *fakeEmbedder) Dimensions() int   { return f.dims }
func (f *fakeEmbedder) ModelName() string { return "fake" }

func TestCachedEmbedder_CachesByContentHash(t *testing.T) {
	inner := &fakeEmbedder{dims: 4}
	cached := NewCachedEmbedder(inner, 10)

	content := DistilledContent{ContentHash: "h1"}
	_, err := cached.Embed(context.Background(), content)
	require.NoError(t, err)
	_, err = cached.Embed(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_SecondHitReportsCached(t *testing.T) {
	inner := &fakeEmbedder{dims: 4}
	cached := NewCachedEmbedder(inner, 10)

	content := DistilledContent{ContentHash: "h1"}
	first, err := cached.Embed(context.Background(), content)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := cached.Embed(context.Background(), content)
	require.NoError(t, err)
	assert.True(t, second.Cached)
}

func TestRetryingEmbedder_RetriesOnTransientFailure(t *testing.T) {
	inner := &fakeEmbedder{dims: 4, fail: 2}
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: 1, MaxDelay: 1, Multiplier: 1}
	r := NewRetryingEmbedder(inner, cfg)

	_, err := r.Embed(context.Background(), DistilledContent{ContentHash: "h1"})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingEmbedder_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &fakeEmbedder{dims: 4, fail: 100}
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: 1, MaxDelay: 1, Multiplier: 1}
	r := NewRetryingEmbedder(inner, cfg)

	_, err := r.Embed(context.Background(), DistilledContent{ContentHash: "h1"})
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls) // initial + 2 retries
}

func TestRetryingEmbedder_NonRetryableErrorShortCircuits(t *testing.T) {
	inner := &fakeEmbedder{dims: 4, fail: 100, nonRetryable: true}
	cfg := RetryConfig{MaxRetries: 5, InitialDelay: 1, MaxDelay: 1, Multiplier: 1}
	r := NewRetryingEmbedder(inner, cfg)

	_, err := r.Embed(context.Background(), DistilledContent{ContentHash: "h1"})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls) // auth failures never get retried
	assert.Equal(t, routererrors.ErrCodeProviderAuth, routererrors.GetCode(err))
}
