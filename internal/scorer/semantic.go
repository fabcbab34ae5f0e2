package scorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/giantswarm/prompt-trainer/internal/metrics"
)

// FallbackSemanticScore is used when the embedding provider fails.
const FallbackSemanticScore = 75.0

var (
	// ErrDimensionMismatch is returned for vectors of different lengths.
	ErrDimensionMismatch = errors.New("embedding dimensions do not match")
	// ErrZeroVector is returned when either vector is empty or all zeros.
	ErrZeroVector = errors.New("embedding vector has zero magnitude")
	// ErrNonFinite is returned when a vector holds NaN or infinite values.
	ErrNonFinite = errors.New("embedding similarity is not finite")
)

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, ErrNonFinite
	}
	// Rounding can push identical vectors slightly past 1.
	return math.Max(-1, math.Min(1, sim)), nil
}

// semanticScore never fails: any embedding problem yields the fallback.
func (e *Evaluator) semanticScore(ctx context.Context, response, target string) float64 {
	sim, err := e.similarity(ctx, response, target)
	if err != nil && ctx.Err() != nil {
		// The evaluation is being abandoned; the score is discarded.
		return FallbackSemanticScore
	}
	if err != nil {
		slog.Warn("semantic scoring unavailable, using fallback",
			"fallback", FallbackSemanticScore,
			"error", err,
		)
		metrics.EmbeddingFallbacks.Inc()
		return FallbackSemanticScore
	}
	return clamp(sim * 100)
}

func (e *Evaluator) similarity(ctx context.Context, response, target string) (float64, error) {
	if e.embedder == nil {
		return 0, errors.New("no embedding provider configured")
	}
	a, err := e.embedder.Embed(ctx, response)
	if err != nil {
		return 0, fmt.Errorf("failed to embed response: %w", err)
	}
	b, err := e.embedder.Embed(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("failed to embed target: %w", err)
	}
	return CosineSimilarity(a, b)
}
