package scorer

import (
	"context"
	"fmt"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
)

// Weights applied to the sub-scores when computing the total.
const (
	SemanticWeight   = 0.4
	ComplianceWeight = 0.3
	StyleWeight      = 0.2
	EfficiencyWeight = 0.1
)

// Embedder maps a text to a fixed-length vector. Implementations must be
// deterministic for identical input and model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ReadabilityScorer maps a text to a grade-level readability number.
type ReadabilityScorer interface {
	Grade(text string) (float64, error)
}

// Input is a single evaluation request.
type Input struct {
	Response    string
	Target      string
	Prompt      string
	Constraints challenge.ConstraintSet
}

// Result is the outcome of an evaluation. All scores are in [0, 100].
type Result struct {
	SemanticAccuracy float64  `json:"semantic_accuracy"`
	TaskCompliance   float64  `json:"task_compliance"`
	StyleMatch       float64  `json:"style_match"`
	EfficiencyScore  float64  `json:"efficiency_score"`
	TotalScore       float64  `json:"total_score"`
	Feedback         []string `json:"feedback"`
	DetailedMetrics  Metrics  `json:"detailed_metrics"`
	AIResponse       string   `json:"ai_response"`
}

// Metrics are reported alongside the scores but do not affect them.
type Metrics struct {
	ResponseLength   int     `json:"response_length"`
	PromptLength     int     `json:"prompt_length"`
	ReadabilityGrade float64 `json:"readability_grade"`
	ComplexityScore  float64 `json:"complexity_score"`
}

// EvaluationError is returned when an evaluation cannot be completed.
type EvaluationError struct {
	Stage string
	Err   error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed at %s: %v", e.Stage, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// TotalScore combines the sub-scores using the fixed weights.
func TotalScore(semantic, compliance, style, efficiency float64) float64 {
	return SemanticWeight*semantic +
		ComplianceWeight*compliance +
		StyleWeight*style +
		EfficiencyWeight*efficiency
}
