package capability

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	routererrors "github.com/foldermind/router/internal/errors"
)

// CachedEmbedder wraps an Embedder with an LRU cache keyed by content
// hash: a distillation that already ran once against a given
// ContentHash skips the inner embedder entirely.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, VectorEmbeddings]
}

// NewCachedEmbedder wraps inner with an embeddings cache of the given
// size.
func NewCachedEmbedder(inner Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultContentCacheSize
	}
	cache, _ := lru.New[string, VectorEmbeddings](cacheSize)
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Embed returns the cached embeddings for content.ContentHash if
// present, otherwise computes and caches them.
func (c *CachedEmbedder) Embed(ctx context.Context, content DistilledContent) (VectorEmbeddings, error) {
	if emb, ok := c.cache.Get(content.ContentHash); ok {
		emb.Cached = true
		return emb, nil
	}

	emb, err := c.inner.Embed(ctx, content)
	if err != nil {
		return VectorEmbeddings{}, err
	}
	emb.Cached = false
	c.cache.Add(content.ContentHash, emb)

	return emb, nil
}

func (c *CachedEmbedder) Dimensions() int   { return c.inner.Dimensions() }
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

var _ Embedder = (*CachedEmbedder)(nil)

// RetryConfig configures exponential-backoff retry for provider errors
// that classify as retryable under the router's own error taxonomy
// (rate limit, timeout, server) — see routererrors.IsRetryable.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig is the default backoff policy applied to a
// RetryingEmbedder.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     16 * time.Second,
		Multiplier:   2.0,
	}
}

// withRetry calls fn, backing off exponentially between attempts. It
// consults routererrors.IsRetryable on each failure: an error the
// provider classified as non-retryable (auth failure, malformed
// payload, ...) is returned immediately without burning the retry
// budget, since no amount of waiting will fix it. Only errors
// classified as rate-limit/timeout/server (§7 ProviderError) are
// retried. An unclassified error (not a *routererrors.RouterError) is
// treated as non-retryable, since the embedder has no basis to assume
// it is transient.
func withRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	delay := cfg.InitialDelay
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		attempts++
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !routererrors.IsRetryable(err) {
			return err
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return routererrors.ProviderErr(routererrors.ProviderKindTimeout,
		fmt.Sprintf("embed provider did not recover after %d attempts", attempts), lastErr)
}

// RetryingEmbedder wraps an Embedder with exponential-backoff retry,
// short-circuiting on provider errors the router's error taxonomy
// classifies as non-retryable.
type RetryingEmbedder struct {
	inner  Embedder
	config RetryConfig
}

// NewRetryingEmbedder wraps inner with cfg's retry policy.
func NewRetryingEmbedder(inner Embedder, cfg RetryConfig) *RetryingEmbedder {
	return &RetryingEmbedder{inner: inner, config: cfg}
}

// Embed calls the inner embedder, retrying on error per the configured
// backoff.
func (r *RetryingEmbedder) Embed(ctx context.Context, content DistilledContent) (VectorEmbeddings, error) {
	var result VectorEmbeddings
	err := withRetry(ctx, r.config, func() error {
		emb, err := r.inner.Embed(ctx, content)
		if err != nil {
			return err
		}
		result = emb
		return nil
	})
	return result, err
}

func (r *RetryingEmbedder) Dimensions() int   { return r.inner.Dimensions() }
func (r *RetryingEmbedder) ModelName() string { return r.inner.ModelName() }

var _ Embedder = (*RetryingEmbedder)(nil)

// StaticEmbedder generates deterministic hash-based embeddings, for
// tests and for environments with no model backend available. Tokens
// and bigrams are hashed into buckets and weighted, giving stable,
// content-sensitive vectors without a real model.
type StaticEmbedder struct {
	dims int
}

// NewStaticEmbedder creates a static embedder producing vectors of the
// given dimensionality.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = 768
	}
	return &StaticEmbedder{dims: dims}
}

func (e *StaticEmbedder) Embed(ctx context.Context, content DistilledContent) (VectorEmbeddings, error) {
	return VectorEmbeddings{
		TitleVector:   e.vectorFor(content.Title),
		ContextVector: e.vectorFor(content.Title + " " + content.Summary),
		ContentHash:   content.ContentHash,
		Model:         e.ModelName(),
		Dimensions:    e.dims,
		EmbeddedAt:    time.Now(),
	}, nil
}

func (e *StaticEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, e.dims)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return v
	}
	for _, token := range strings.Fields(strings.ToLower(trimmed)) {
		v[hashToIndex(token, e.dims)] += 0.7
	}
	for _, gram := range bigrams(trimmed) {
		v[hashToIndex(gram, e.dims)] += 0.3
	}
	return v
}

func hashToIndex(s string, dims int) int {
	h := sha256.Sum256([]byte(s))
	n := 0
	for i := 0; i < 4; i++ {
		n = n<<8 | int(h[i])
	}
	if n < 0 {
		n = -n
	}
	return n % dims
}

func bigrams(s string) []string {
	runes := []rune(strings.ToLower(s))
	if len(runes) < 2 {
		return nil
	}
	out := make([]string, 0, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		out = append(out, string(runes[i:i+2]))
	}
	return out
}

func (e *StaticEmbedder) Dimensions() int   { return e.dims }
func (e *StaticEmbedder) ModelName() string { return "static-hash" }

var _ Embedder = (*StaticEmbedder)(nil)

// contentHash computes the stable SHA-256 hex digest used as the
// cache key for distillation and embedding.
func contentHash(normalizedText string) string {
	sum := sha256.Sum256([]byte(normalizedText))
	return hex.EncodeToString(sum[:])
}
