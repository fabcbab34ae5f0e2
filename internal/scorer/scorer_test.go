package scorer

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
	"github.com/giantswarm/prompt-trainer/internal/metrics"
	"github.com/giantswarm/prompt-trainer/internal/testutil"
)

func words(n int, word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestComplianceScore(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		constraints challenge.ConstraintSet
		want        float64
	}{
		{
			name:     "empty constraints",
			response: "anything at all",
			want:     100,
		},
		{
			name:     "word overage and missing keyword",
			response: words(20, "word"),
			constraints: challenge.ConstraintSet{
				MaxWords:         challenge.IntPtr(10),
				RequiredKeywords: []string{"hello"},
			},
			want: 55,
		},
		{
			name:        "small overage",
			response:    words(13, "word"),
			constraints: challenge.ConstraintSet{MaxWords: challenge.IntPtr(10)},
			want:        94,
		},
		{
			name:        "overage penalty capped",
			response:    words(100, "word"),
			constraints: challenge.ConstraintSet{MaxWords: challenge.IntPtr(10)},
			want:        70,
		},
		{
			name:        "within limit",
			response:    words(10, "word"),
			constraints: challenge.ConstraintSet{MaxWords: challenge.IntPtr(10)},
			want:        100,
		},
		{
			name:        "non-positive limit skipped",
			response:    words(50, "word"),
			constraints: challenge.ConstraintSet{MaxWords: challenge.IntPtr(-1)},
			want:        100,
		},
		{
			name:        "keywords match case-insensitively as substrings",
			response:    "Our INVESTMENT grows revenues.",
			constraints: challenge.ConstraintSet{RequiredKeywords: []string{"investment", "Revenue"}},
			want:        100,
		},
		{
			name:        "every keyword missing",
			response:    "nothing relevant",
			constraints: challenge.ConstraintSet{RequiredKeywords: []string{"a1", "b2", "c3"}},
			want:        55,
		},
		{
			name:     "penalties clamp at zero",
			response: words(40, "word"),
			constraints: challenge.ConstraintSet{
				MaxWords:         challenge.IntPtr(5),
				RequiredKeywords: []string{"k1", "k2", "k3", "k4", "k5"},
				Format:           challenge.FormatBulletPoints,
			},
			want: 0,
		},
		{
			name:        "bullet points present",
			response:    "Summary:\n- first\n- second",
			constraints: challenge.ConstraintSet{Format: challenge.FormatBulletPoints},
			want:        100,
		},
		{
			name:        "unicode bullet present",
			response:    "• first\n• second",
			constraints: challenge.ConstraintSet{Format: challenge.FormatBulletPoints},
			want:        100,
		},
		{
			name:        "bullet marker mid-line counts",
			response:    "Pick one - or both.",
			constraints: challenge.ConstraintSet{Format: challenge.FormatBulletPoints},
			want:        100,
		},
		{
			name:        "bullet points missing",
			response:    "A single paragraph of prose.",
			constraints: challenge.ConstraintSet{Format: challenge.FormatBulletPoints},
			want:        75,
		},
		{
			name:        "numbered list present",
			response:    "1. Preheat\n2. Mix",
			constraints: challenge.ConstraintSet{Format: challenge.FormatNumberedList},
			want:        100,
		},
		{
			name:        "numbered list missing",
			response:    "Preheat then mix.",
			constraints: challenge.ConstraintSet{Format: challenge.FormatNumberedList},
			want:        75,
		},
		{
			name:        "unchecked format ignored",
			response:    "no greeting, no signature",
			constraints: challenge.ConstraintSet{Format: "email"},
			want:        100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComplianceScore(tt.response, tt.constraints), 1e-9)
		})
	}
}

func TestComplianceKeywordBound(t *testing.T) {
	for n := 1; n <= 8; n++ {
		keywords := make([]string, n)
		for i := range keywords {
			keywords[i] = "missing" + string(rune('a'+i))
		}
		got := ComplianceScore("unrelated text", challenge.ConstraintSet{RequiredKeywords: keywords})
		assert.LessOrEqual(t, got, max(0, 100-15*float64(n)))
		assert.GreaterOrEqual(t, got, 0.0)
	}
}

func TestStyleScore(t *testing.T) {
	tests := []struct {
		name     string
		response string
		style    challenge.TargetStyle
		want     float64
	}{
		{
			name:     "empty style",
			response: "hey gonna be awesome",
			want:     100,
		},
		{
			name:     "reading level only",
			response: "hey gonna be awesome",
			style:    challenge.TargetStyle{ReadingLevel: func() *float64 { v := 5.0; return &v }()},
			want:     100,
		},
		{
			name:     "formal target with informal response",
			response: "I'm gonna do it and you wanna see it",
			style:    challenge.TargetStyle{Formality: challenge.FormalityFormal},
			want:     75,
		},
		{
			name:     "formal target with formal response",
			response: "Please kindly review the attached document.",
			style:    challenge.TargetStyle{Formality: challenge.FormalityFormal},
			want:     100,
		},
		{
			name:     "formal target with tied indicators",
			response: "Please review, yeah.",
			style:    challenge.TargetStyle{Formality: challenge.FormalityFormal},
			want:     100,
		},
		{
			name:     "informal target with formal response",
			response: "Sincerely, therefore, we proceed.",
			style:    challenge.TargetStyle{Formality: challenge.FormalityInformal},
			want:     75,
		},
		{
			name:     "unrecognized formality ignored",
			response: "Sincerely, therefore, we proceed.",
			style:    challenge.TargetStyle{Formality: "technical"},
			want:     100,
		},
		{
			name:     "recognized tone present",
			response: "Our business plan is solid.",
			style:    challenge.TargetStyle{Tone: "professional"},
			want:     100,
		},
		{
			name:     "recognized tone missing",
			response: "Our plan is solid.",
			style:    challenge.TargetStyle{Tone: "professional"},
			want:     85,
		},
		{
			name:     "tone is case-sensitive",
			response: "Our plan is solid.",
			style:    challenge.TargetStyle{Tone: "Professional"},
			want:     100,
		},
		{
			name:     "padded tone unrecognized",
			response: "Nothing helpful here.",
			style:    challenge.TargetStyle{Tone: " confident "},
			want:     100,
		},
		{
			name:     "formality is case-sensitive",
			response: "hey gonna do it",
			style:    challenge.TargetStyle{Formality: "FORMAL"},
			want:     100,
		},
		{
			name:     "response keywords matched case-insensitively",
			response: "We offer ASSISTANCE.",
			style:    challenge.TargetStyle{Tone: "helpful"},
			want:     100,
		},
		{
			name:     "unrecognized tone ignored",
			response: "Nothing special.",
			style:    challenge.TargetStyle{Tone: "suspenseful"},
			want:     100,
		},
		{
			name:     "both penalties",
			response: "hey this is gonna be great",
			style:    challenge.TargetStyle{Formality: challenge.FormalityFormal, Tone: "confident"},
			want:     60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, StyleScore(tt.response, tt.style), 1e-9)
		})
	}
}

func TestEfficiencyScore(t *testing.T) {
	tests := []struct {
		name     string
		prompt   string
		semantic float64
		want     float64
	}{
		{"empty prompt", "", 100, 0},
		{"whitespace prompt", "   \n\t", 100, 0},
		{"single word full quality", "hi", 100, 100},
		{"ten words", words(10, "w"), 90, 90},
		{"twenty words", words(20, "w"), 80, 40},
		{"fifty words", words(50, "w"), 100, 20},
		{"zero semantic", "short prompt", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EfficiencyScore(tt.prompt, tt.semantic), 1e-9)
		})
	}
}

func TestGenerateFeedback(t *testing.T) {
	tests := []struct {
		name                                           string
		semantic, compliance, style, efficiency, total float64
		want                                           []string
	}{
		{
			name:     "nothing triggers",
			semantic: 80, compliance: 85, style: 80, efficiency: 70, total: 80,
			want: []string{FeedbackEncouragement},
		},
		{
			name:     "thresholds are exclusive",
			semantic: 70, compliance: 90, style: 85, efficiency: 60, total: 80,
			want: []string{FeedbackEncouragement},
		},
		{
			name:     "all low",
			semantic: 10, compliance: 10, style: 10, efficiency: 10, total: 10,
			want: []string{FeedbackSemanticLow, FeedbackComplianceLow, FeedbackStyleLow, FeedbackEfficiencyLow},
		},
		{
			name:     "all perfect",
			semantic: 100, compliance: 100, style: 100, efficiency: 100, total: 100,
			want: []string{
				FeedbackSemanticHigh, FeedbackComplianceHigh, FeedbackStyleHigh,
				FeedbackEfficiencyHigh, FeedbackOutstanding,
			},
		},
		{
			name:     "great overall only",
			semantic: 80, compliance: 85, style: 80, efficiency: 70, total: 85,
			want: []string{FeedbackGreat},
		},
		{
			name:     "mixed",
			semantic: 60, compliance: 95, style: 75, efficiency: 90, total: 78,
			want: []string{FeedbackSemanticLow, FeedbackComplianceHigh, FeedbackEfficiencyHigh},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateFeedback(tt.semantic, tt.compliance, tt.style, tt.efficiency, tt.total)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateFeedbackNeverEmpty(t *testing.T) {
	for _, s := range []float64{0, 59.9, 60, 70, 80, 85, 90, 90.1, 100} {
		assert.NotEmpty(t, GenerateFeedback(s, s, s, s, s), "score %v", s)
	}
}

func TestComplexityScore(t *testing.T) {
	assert.Equal(t, 0.0, ComplexityScore("hi"))
	// 1 terminator, 2 brackets, 2 quotes.
	assert.Equal(t, 2.5, ComplexityScore(`Write (briefly) "hello".`))
	assert.Equal(t, 100.0, ComplexityScore(strings.Repeat("?", 500)))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float64
		want    float64
		wantErr error
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "scaled", a: []float64{1, 2}, b: []float64{2, 4}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "opposite", a: []float64{1, 1}, b: []float64{-1, -1}, want: -1},
		{name: "dimension mismatch", a: []float64{1}, b: []float64{1, 0}, wantErr: ErrDimensionMismatch},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 0}, wantErr: ErrZeroVector},
		{name: "empty", a: nil, b: nil, wantErr: ErrZeroVector},
		{name: "NaN component", a: []float64{math.NaN(), 1}, b: []float64{1, 1}, wantErr: ErrNonFinite},
		{name: "infinite component", a: []float64{math.Inf(1), 1}, b: []float64{1, 1}, wantErr: ErrNonFinite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluateIdenticalResponse(t *testing.T) {
	target := "Thank you for meeting with me yesterday."
	e := NewEvaluator(&testutil.StubEmbedder{}, testutil.StubReadability{GradeValue: 7.5})

	result, err := e.Evaluate(context.Background(), Input{
		Response: target,
		Target:   target,
		Prompt:   "hi",
	})
	require.NoError(t, err)

	assert.InDelta(t, 100, result.SemanticAccuracy, 1e-9)
	assert.Equal(t, 100.0, result.TaskCompliance)
	assert.Equal(t, 100.0, result.StyleMatch)
	assert.InDelta(t, 100, result.EfficiencyScore, 1e-9)
	assert.InDelta(t, 100, result.TotalScore, 1e-9)
	assert.Equal(t, target, result.AIResponse)
	assert.Equal(t, []string{
		FeedbackSemanticHigh, FeedbackComplianceHigh, FeedbackStyleHigh,
		FeedbackEfficiencyHigh, FeedbackOutstanding,
	}, result.Feedback)

	assert.Equal(t, Metrics{
		ResponseLength:   7,
		PromptLength:     1,
		ReadabilityGrade: 7.5,
		ComplexityScore:  0,
	}, result.DetailedMetrics)
}

func TestEvaluateEmbeddingFallback(t *testing.T) {
	tests := []struct {
		name     string
		embedder Embedder
	}{
		{"embedder error", &testutil.StubEmbedder{Err: errors.New("model not loaded")}},
		{"nil embedder", nil},
		{"dimension mismatch", &testutil.StubEmbedder{Vectors: map[string][]float64{
			"response": {1, 0, 0},
			"target":   {1, 0},
		}}},
		{"NaN vector", &testutil.StubEmbedder{Vectors: map[string][]float64{
			"response": {math.NaN(), 1},
			"target":   {1, 1},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(tt.embedder, testutil.StubReadability{})
			result, err := e.Evaluate(context.Background(), Input{
				Response: "response",
				Target:   "target",
				Prompt:   "hi",
			})
			require.NoError(t, err)
			assert.Equal(t, FallbackSemanticScore, result.SemanticAccuracy)
			assert.InDelta(t, 75, result.EfficiencyScore, 1e-9)
			assert.False(t, math.IsNaN(result.TotalScore))
		})
	}
}

func TestEvaluateNegativeSimilarityClamped(t *testing.T) {
	e := NewEvaluator(&testutil.StubEmbedder{Vectors: map[string][]float64{
		"up":   {0, 1},
		"down": {0, -1},
	}}, testutil.StubReadability{})

	result, err := e.Evaluate(context.Background(), Input{Response: "up", Target: "down", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.SemanticAccuracy)
	assert.Equal(t, 0.0, result.EfficiencyScore)
}

func TestEvaluateStyleScenario(t *testing.T) {
	e := NewEvaluator(&testutil.StubEmbedder{}, testutil.StubReadability{})
	result, err := e.Evaluate(context.Background(), Input{
		Response: "We're gonna ship it and you wanna see it.",
		Target:   "The release will ship soon.",
		Prompt:   "announce the release",
		Constraints: challenge.ConstraintSet{
			TargetStyle: challenge.TargetStyle{Formality: challenge.FormalityFormal},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 75.0, result.StyleMatch)
}

func TestEvaluateComplianceScenario(t *testing.T) {
	e := NewEvaluator(&testutil.StubEmbedder{}, testutil.StubReadability{})
	result, err := e.Evaluate(context.Background(), Input{
		Response: words(20, "text"),
		Target:   "hello world",
		Prompt:   "say hello",
		Constraints: challenge.ConstraintSet{
			MaxWords:         challenge.IntPtr(10),
			RequiredKeywords: []string{"hello"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 55.0, result.TaskCompliance)
}

func TestEvaluateEmptyPrompt(t *testing.T) {
	e := NewEvaluator(&testutil.StubEmbedder{}, testutil.StubReadability{})
	result, err := e.Evaluate(context.Background(), Input{Response: "a", Target: "a"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.EfficiencyScore)
	assert.Equal(t, 0, result.DetailedMetrics.PromptLength)
}

func TestEvaluateBoundsAndWeights(t *testing.T) {
	inputs := []Input{
		{Response: "", Target: "", Prompt: ""},
		{Response: "short", Target: "a much longer target response", Prompt: words(40, "please")},
		{
			Response: "hey gonna wanna yeah",
			Target:   "Dear team, please find attached.",
			Prompt:   "Write an email (formal) with \"details\".",
			Constraints: challenge.ConstraintSet{
				MaxWords:         challenge.IntPtr(1),
				RequiredKeywords: []string{"x", "y", "z", "w", "v", "u", "t", "s"},
				TargetStyle:      challenge.TargetStyle{Formality: challenge.FormalityFormal, Tone: "friendly"},
				Format:           challenge.FormatNumberedList,
			},
		},
	}

	e := NewEvaluator(&testutil.StubEmbedder{}, testutil.StubReadability{})
	for i, in := range inputs {
		result, err := e.Evaluate(context.Background(), in)
		require.NoError(t, err, "input %d", i)

		for _, s := range []float64{
			result.SemanticAccuracy, result.TaskCompliance, result.StyleMatch,
			result.EfficiencyScore, result.TotalScore,
		} {
			assert.GreaterOrEqual(t, s, 0.0, "input %d", i)
			assert.LessOrEqual(t, s, 100.0, "input %d", i)
		}

		want := 0.4*result.SemanticAccuracy + 0.3*result.TaskCompliance +
			0.2*result.StyleMatch + 0.1*result.EfficiencyScore
		assert.InDelta(t, want, result.TotalScore, 1e-9, "input %d", i)
		assert.NotEmpty(t, result.Feedback, "input %d", i)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	in := Input{
		Response: "Please review the action items from our meeting.",
		Target:   "Thank you for meeting. Here are the action items.",
		Prompt:   "Write a follow-up email about action items.",
		Constraints: challenge.ConstraintSet{
			MaxWords:         challenge.IntPtr(50),
			RequiredKeywords: []string{"meeting", "follow-up"},
			TargetStyle:      challenge.TargetStyle{Tone: "professional"},
		},
	}
	e := NewEvaluator(&testutil.StubEmbedder{}, nil)

	first, err := e.Evaluate(context.Background(), in)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluateConcurrentUse(t *testing.T) {
	e := NewEvaluator(&testutil.StubEmbedder{}, nil)
	in := Input{Response: "same text", Target: "same text", Prompt: "hi"}

	var wg sync.WaitGroup
	results := make([]*Result, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.Evaluate(context.Background(), in)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestEvaluateReadabilityFailure(t *testing.T) {
	e := NewEvaluator(&testutil.StubEmbedder{}, testutil.StubReadability{Err: errors.New("crash")})

	_, err := e.Evaluate(context.Background(), Input{Response: "r", Target: "t", Prompt: "p"})
	require.Error(t, err)

	var evalErr *EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "readability", evalErr.Stage)
	assert.EqualError(t, errors.Unwrap(err), "crash")
}

// blockingEmbedder waits for its context to end.
type blockingEmbedder struct{}

func (blockingEmbedder) Embed(ctx context.Context, _ string) ([]float64, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEvaluateReadabilityFailureSkipsEmbeddingFallback(t *testing.T) {
	before := promtestutil.ToFloat64(metrics.EmbeddingFallbacks)

	e := NewEvaluator(blockingEmbedder{}, testutil.StubReadability{Err: errors.New("crash")})
	_, err := e.Evaluate(context.Background(), Input{Response: "r", Target: "t", Prompt: "p"})

	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "readability", evalErr.Stage)
	assert.Equal(t, before, promtestutil.ToFloat64(metrics.EmbeddingFallbacks))
}

func TestEvaluateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEvaluator(&testutil.StubEmbedder{}, testutil.StubReadability{})
	_, err := e.Evaluate(ctx, Input{Response: "r", Target: "t", Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
