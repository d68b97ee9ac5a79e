// Package vectormath implements the pure numeric kernels the routing
// core builds on: cosine similarity, centroid/mean, coherence, and
// average similarity. Every other component composes these instead of
// touching raw float32 slices directly.
package vectormath

import (
	"math"

	routererrors "github.com/foldermind/router/internal/errors"
)

// Cosine returns the cosine similarity between a and b. Both vectors
// must have equal length; a zero-magnitude vector yields 0 rather than
// NaN.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, routererrors.DimensionMismatchErr(len(a), len(b))
	}
	if len(a) == 0 {
		return 0, routererrors.EmptyInputErr("cosine")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Centroid computes the arithmetic mean vector across vs. All members
// must share the same dimension.
func Centroid(vs [][]float32) ([]float32, error) {
	if len(vs) == 0 {
		return nil, routererrors.EmptyInputErr("centroid")
	}

	dim := len(vs[0])
	sum := make([]float64, dim)
	for _, v := range vs {
		if len(v) != dim {
			return nil, routererrors.DimensionMismatchErr(dim, len(v))
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}

	out := make([]float32, dim)
	n := float64(len(vs))
	for i, s := range sum {
		out[i] = float32(s / n)
	}
	return out, nil
}

// Coherence is the mean cosine similarity between each member and the
// centroid of vs. A set with fewer than two members is trivially
// coherent (1).
func Coherence(vs [][]float32) (float64, error) {
	if len(vs) < 2 {
		return 1, nil
	}

	c, err := Centroid(vs)
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, v := range vs {
		sim, err := Cosine(v, c)
		if err != nil {
			return 0, err
		}
		sum += sim
	}
	return sum / float64(len(vs)), nil
}

// AverageSimilarity returns the arithmetic mean of xs, or 0 for an
// empty input (callers treat "no candidates scored yet" as neutral,
// not an error).
func AverageSimilarity(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Max returns the largest value in xs, or 0 for an empty input.
func Max(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// Normalize scales v to unit length in place. A zero vector is left
// unchanged, matching the index's lazy-normalize-on-insert behavior.
func Normalize(v []float32) {
	var normSq float64
	for _, x := range v {
		normSq += float64(x) * float64(x)
	}
	if normSq == 0 {
		return
	}
	norm := float32(math.Sqrt(normSq))
	for i := range v {
		v[i] /= norm
	}
}
