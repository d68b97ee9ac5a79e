package capability

import (
	"context"
	"strings"
	"time"
)

// StaticDistiller produces a DistilledContent without calling an
// external model: the title is the first line (or first N runes of
// the text if there is no line break), the summary is the text
// truncated to a bound, and contentHash is the SHA-256 of the
// normalized input. Used for tests and as a fallback when no LLM
// distillation provider is configured.
type StaticDistiller struct {
	MaxSummaryRunes int
}

// NewStaticDistiller creates a StaticDistiller with a default summary
// bound.
func NewStaticDistiller() *StaticDistiller {
	return &StaticDistiller{MaxSummaryRunes: 500}
}

func (d *StaticDistiller) Distill(ctx context.Context, normalizedText string) (DistilledContent, error) {
	title := normalizedText
	if idx := strings.IndexByte(normalizedText, '\n'); idx >= 0 {
		title = normalizedText[:idx]
	}
	title = truncateRunes(title, 120)

	bound := d.MaxSummaryRunes
	if bound <= 0 {
		bound = 500
	}

	return DistilledContent{
		Title:       title,
		Summary:     truncateRunes(normalizedText, bound),
		ContentHash: contentHash(normalizedText),
		Cached:      false,
		DistilledAt: time.Now(),
	}, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ Distiller = (*StaticDistiller)(nil)

// RetryingDistiller wraps a Distiller with exponential-backoff retry
// on transient provider errors, the same shape as RetryingEmbedder.
type RetryingDistiller struct {
	inner  Distiller
	config RetryConfig
}

// NewRetryingDistiller wraps inner with cfg's retry policy.
func NewRetryingDistiller(inner Distiller, cfg RetryConfig) *RetryingDistiller {
	return &RetryingDistiller{inner: inner, config: cfg}
}

func (r *RetryingDistiller) Distill(ctx context.Context, normalizedText string) (DistilledContent, error) {
	var result DistilledContent
	err := withRetry(ctx, r.config, func() error {
		content, err := r.inner.Distill(ctx, normalizedText)
		if err != nil {
			return err
		}
		result = content
		return nil
	})
	return result, err
}

var _ Distiller = (*RetryingDistiller)(nil)
