// Package scorer implements the prompt evaluation engine: it scores a model
// response against a challenge's target response and constraint set along
// four weighted dimensions and produces feedback.
package scorer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/prompt-trainer/internal/metrics"
	"github.com/giantswarm/prompt-trainer/internal/readability"
)

// Evaluator scores responses. It holds no per-call state and is safe for
// concurrent use.
type Evaluator struct {
	embedder    Embedder
	readability ReadabilityScorer
}

// NewEvaluator creates an Evaluator. A nil embedder makes every semantic
// score fall back to FallbackSemanticScore. A nil readability scorer
// defaults to Flesch-Kincaid.
func NewEvaluator(embedder Embedder, rs ReadabilityScorer) *Evaluator {
	if rs == nil {
		rs = readability.FleschKincaid{}
	}
	return &Evaluator{embedder: embedder, readability: rs}
}

// Evaluate scores in.Response against in.Target, in.Prompt and in.Constraints.
// The sub-scores are computed concurrently. Only embedding failures are
// recovered; anything else is returned as an *EvaluationError.
func (e *Evaluator) Evaluate(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()

	var semantic, compliance, style, efficiency, grade float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		semantic = e.semanticScore(gctx, in.Response, in.Target)
		efficiency = EfficiencyScore(in.Prompt, semantic)
		return nil
	})
	g.Go(func() error {
		compliance = ComplianceScore(in.Response, in.Constraints)
		return nil
	})
	g.Go(func() error {
		style = StyleScore(in.Response, in.Constraints.TargetStyle)
		return nil
	})
	g.Go(func() error {
		var err error
		grade, err = e.readability.Grade(in.Response)
		if err != nil {
			return &EvaluationError{Stage: "readability", Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, e.fail(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, e.fail(&EvaluationError{Stage: "context", Err: err})
	}

	total := TotalScore(semantic, compliance, style, efficiency)

	result := &Result{
		SemanticAccuracy: semantic,
		TaskCompliance:   compliance,
		StyleMatch:       style,
		EfficiencyScore:  efficiency,
		TotalScore:       total,
		Feedback:         GenerateFeedback(semantic, compliance, style, efficiency, total),
		DetailedMetrics: Metrics{
			ResponseLength:   wordCount(in.Response),
			PromptLength:     wordCount(in.Prompt),
			ReadabilityGrade: grade,
			ComplexityScore:  ComplexityScore(in.Prompt),
		},
		AIResponse: in.Response,
	}

	elapsed := time.Since(start)
	metrics.Evaluations.Inc()
	metrics.EvaluationDuration.Observe(elapsed.Seconds())
	metrics.TotalScore.Observe(total)

	slog.Debug("evaluation complete",
		"semantic", semantic,
		"compliance", compliance,
		"style", style,
		"efficiency", efficiency,
		"total", total,
		"duration", elapsed,
	)

	return result, nil
}

func (e *Evaluator) fail(err error) error {
	stage := "unknown"
	var ee *EvaluationError
	if errors.As(err, &ee) {
		stage = ee.Stage
	}
	metrics.EvaluationFailures.WithLabelValues(stage).Inc()
	slog.Error("evaluation failed", "stage", stage, "error", err)
	return err
}
