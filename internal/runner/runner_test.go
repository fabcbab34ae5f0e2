package runner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
	"github.com/giantswarm/prompt-trainer/internal/provider"
	"github.com/giantswarm/prompt-trainer/internal/scorer"
	"github.com/giantswarm/prompt-trainer/internal/testutil"
	"github.com/giantswarm/prompt-trainer/internal/trainer"
)

// fakeSubmitter scores each prompt with a fixed total per model.
type fakeSubmitter struct {
	mu     sync.Mutex
	scores map[string]float64
	fail   map[string]bool // by challenge
	calls  []trainer.Submission
}

func (f *fakeSubmitter) Submit(_ context.Context, sub trainer.Submission) (*trainer.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sub)
	if f.fail[sub.ChallengeID] {
		return nil, errors.New("boom")
	}
	return &trainer.Outcome{Result: &scorer.Result{TotalScore: f.scores[sub.ModelName]}}, nil
}

func testBatch() *Batch {
	return &Batch{
		Name: "email drills",
		Entries: []Entry{
			{ID: "1", Challenge: "professional_email", Prompt: "Write a follow-up email"},
			{ID: "2", Challenge: "customer_service", Prompt: "Apologize to the customer"},
		},
	}
}

func TestRunnerExecutesBatch(t *testing.T) {
	tmpDir := t.TempDir()
	sub := &fakeSubmitter{scores: map[string]float64{"model-a": 80}}
	r := NewRunner(sub, tmpDir)

	run, err := r.Run(context.Background(), testBatch(), []string{"model-a"})
	require.NoError(t, err)

	assert.Equal(t, "email drills", run.Batch)
	require.Len(t, run.Models, 1)
	mr := run.Models[0]
	assert.Equal(t, "model-a", mr.ModelName)
	require.Len(t, mr.Results, 2)
	assert.Equal(t, "professional_email", mr.Results[0].ChallengeID)
	assert.InDelta(t, 80, mr.Summary.Mean, 1e-9)
	assert.Equal(t, 2, mr.Summary.Count)

	require.Len(t, sub.calls, 2)
	assert.Zero(t, sub.calls[0].UserID)
	assert.Equal(t, "model-a", sub.calls[0].ModelName)

	assert.FileExists(t, mr.ResultsFile)
	assert.Equal(t, filepath.Join(tmpDir, run.ID, "model-a.json"), mr.ResultsFile)

	data, err := os.ReadFile(filepath.Join(tmpDir, run.ID, "resultset.json"))
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, run.ID, meta["id"])
	assert.Equal(t, "email drills", meta["batch"])
}

func TestRunnerMultipleModels(t *testing.T) {
	sub := &fakeSubmitter{scores: map[string]float64{"model-a": 60, "model-b": 90}}
	r := NewRunner(sub, t.TempDir())

	run, err := r.Run(context.Background(), testBatch(), []string{"model-a", "model-b"})
	require.NoError(t, err)
	require.Len(t, run.Models, 2)
	assert.Len(t, sub.calls, 4)
	assert.InDelta(t, 60, run.Models[0].Summary.Mean, 1e-9)
	assert.InDelta(t, 90, run.Models[1].Summary.Mean, 1e-9)
}

func TestRunnerUsesBatchModels(t *testing.T) {
	sub := &fakeSubmitter{}
	r := NewRunner(sub, t.TempDir())

	b := testBatch()
	b.Models = []string{"mock"}
	run, err := r.Run(context.Background(), b, nil)
	require.NoError(t, err)
	require.Len(t, run.Models, 1)
	assert.Equal(t, "mock", run.Models[0].ModelName)
}

func TestRunnerNoModels(t *testing.T) {
	r := NewRunner(&fakeSubmitter{}, t.TempDir())
	_, err := r.Run(context.Background(), testBatch(), nil)
	assert.Error(t, err)
}

func TestRunnerRecordsFailures(t *testing.T) {
	sub := &fakeSubmitter{
		scores: map[string]float64{"m": 70},
		fail:   map[string]bool{"customer_service": true},
	}
	r := NewRunner(sub, t.TempDir())

	run, err := r.Run(context.Background(), testBatch(), []string{"m"})
	require.NoError(t, err)

	mr := run.Models[0]
	assert.Equal(t, 1, mr.Summary.Count)
	assert.Equal(t, 1, mr.Summary.Failed)
	assert.Equal(t, "boom", mr.Results[1].Error)
	assert.Nil(t, mr.Results[1].Scores)
}

func TestRunnerProgressCallback(t *testing.T) {
	r := NewRunner(&fakeSubmitter{}, t.TempDir())

	var progressCalls []int
	r.SetProgressFunc(func(_ string, idx, _ int) {
		progressCalls = append(progressCalls, idx)
	})

	_, err := r.Run(context.Background(), testBatch(), []string{"m"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, progressCalls)
}

func TestRunnerContextCancellation(t *testing.T) {
	sub := &fakeSubmitter{}
	r := NewRunner(sub, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := r.Run(ctx, testBatch(), []string{"m"})
	require.NoError(t, err)
	assert.Empty(t, run.Models)
	assert.Empty(t, sub.calls)
}

func TestRunnerRunID(t *testing.T) {
	r := NewRunner(&fakeSubmitter{}, t.TempDir())
	r.now = func() time.Time { return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC) }

	run, err := r.Run(context.Background(), testBatch(), []string{"org/model:latest"})
	require.NoError(t, err)
	assert.Equal(t, "email_drills_20250314-150926", run.ID)
	assert.Equal(t, "org_model_latest.json", filepath.Base(run.Models[0].ResultsFile))
}

func TestRunnerWithTrainer(t *testing.T) {
	svc := trainer.New(
		challenge.Catalog{},
		provider.NewManager(provider.WithMockFallback(true)),
		scorer.NewEvaluator(&testutil.StubEmbedder{}, testutil.StubReadability{GradeValue: 6}),
		nil,
	)
	r := NewRunner(svc, t.TempDir())

	run, err := r.Run(context.Background(), testBatch(), []string{provider.ModelOpenAI, provider.ModelGemini})
	require.NoError(t, err)
	require.Len(t, run.Models, 2)
	for _, mr := range run.Models {
		assert.Equal(t, 2, mr.Summary.Count, mr.ModelName)
		assert.Zero(t, mr.Summary.Failed)
		assert.GreaterOrEqual(t, mr.Summary.Min, 0.0)
		assert.LessOrEqual(t, mr.Summary.Max, 100.0)
		assert.Contains(t, mr.Results[0].Scores.AIResponse, "response to:")
	}
}
