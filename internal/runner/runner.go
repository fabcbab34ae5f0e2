package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/giantswarm/prompt-trainer/internal/scorer"
	"github.com/giantswarm/prompt-trainer/internal/trainer"
)

// Submitter scores a prompt for a challenge.
type Submitter interface {
	Submit(ctx context.Context, sub trainer.Submission) (*trainer.Outcome, error)
}

// ProgressFunc is called to report progress during a run.
type ProgressFunc func(model string, entryIndex, totalEntries int)

// Runner evaluates batches of prompts and writes their results.
type Runner struct {
	submitter Submitter
	outputDir string
	progress  ProgressFunc
	now       func() time.Time
}

// NewRunner creates a Runner writing result sets below outputDir.
func NewRunner(submitter Submitter, outputDir string) *Runner {
	return &Runner{
		submitter: submitter,
		outputDir: outputDir,
		now:       time.Now,
	}
}

// SetProgressFunc sets the progress callback.
func (r *Runner) SetProgressFunc(fn ProgressFunc) {
	r.progress = fn
}

// Result is the evaluation of one batch entry.
type Result struct {
	EntryID     string         `json:"entry_id"`
	ChallengeID string         `json:"challenge_id"`
	Prompt      string         `json:"prompt"`
	Scores      *scorer.Result `json:"scores,omitempty"`
	Error       string         `json:"error,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// ModelRun holds one model's results within a run.
type ModelRun struct {
	ModelName   string        `json:"model_name"`
	Duration    time.Duration `json:"duration"`
	ResultsFile string        `json:"results_file"`
	Summary     Summary       `json:"summary"`
	Results     []*Result     `json:"results"`
}

// Run is a completed batch execution.
type Run struct {
	ID        string        `json:"id"`
	Batch     string        `json:"batch"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Models    []ModelRun    `json:"models"`
}

// Run evaluates every batch entry against each model in turn. Entries that
// fail are recorded and do not stop the run. When models is empty the
// batch's own model list is used.
func (r *Runner) Run(ctx context.Context, batch *Batch, models []string) (*Run, error) {
	if len(models) == 0 {
		models = batch.Models
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no models specified for batch run")
	}

	timestamp := r.now()
	runID := fmt.Sprintf("%s_%s", sanitizeFilename(strings.ReplaceAll(batch.Name, " ", "_")), timestamp.Format("20060102-150405"))

	outputPath := filepath.Join(r.outputDir, runID)
	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	run := &Run{
		ID:        runID,
		Batch:     batch.Name,
		Timestamp: timestamp,
		Models:    make([]ModelRun, 0, len(models)),
	}

	for _, model := range models {
		if err := ctx.Err(); err != nil {
			slog.Warn("batch run cancelled before model evaluation", "model", model)
			break
		}

		slog.Info("running batch", "model", model, "prompts", len(batch.Entries))
		mr := r.runModel(ctx, batch, model)

		mr.ResultsFile = filepath.Join(outputPath, sanitizeFilename(model)+".json")
		if err := writeJSON(mr.ResultsFile, mr); err != nil {
			return nil, fmt.Errorf("failed to write results for model %s: %w", model, err)
		}
		run.Models = append(run.Models, mr)

		slog.Info("model evaluation complete",
			"model", model,
			"scored", mr.Summary.Count,
			"failed", mr.Summary.Failed,
			"mean", mr.Summary.Mean,
			"duration", mr.Duration,
		)
	}

	run.Duration = time.Since(timestamp)

	if err := writeJSON(filepath.Join(outputPath, ResultSetFile), newResultSet(run)); err != nil {
		return nil, fmt.Errorf("failed to write run metadata: %w", err)
	}
	return run, nil
}

func (r *Runner) runModel(ctx context.Context, batch *Batch, model string) ModelRun {
	start := time.Now()
	mr := ModelRun{ModelName: model, Results: make([]*Result, 0, len(batch.Entries))}

	var scores []float64
	failed := 0
	for i, e := range batch.Entries {
		if ctx.Err() != nil {
			slog.Warn("batch run cancelled", "model", model, "completed", i, "total", len(batch.Entries))
			break
		}
		if r.progress != nil {
			r.progress(model, i+1, len(batch.Entries))
		}

		entryStart := time.Now()
		res := &Result{EntryID: e.ID, ChallengeID: e.Challenge, Prompt: e.Prompt}
		out, err := r.submitter.Submit(ctx, trainer.Submission{
			ChallengeID: e.Challenge,
			Prompt:      e.Prompt,
			ModelName:   model,
			TimeTaken:   e.TimeTaken,
		})
		res.Duration = time.Since(entryStart)
		if err != nil {
			slog.Error("prompt evaluation failed", "entry", e.ID, "model", model, "error", err)
			res.Error = err.Error()
			failed++
		} else {
			res.Scores = out.Result
			scores = append(scores, out.TotalScore)
		}
		mr.Results = append(mr.Results, res)
	}

	mr.Summary = summarize(scores, failed)
	mr.Duration = time.Since(start)
	return mr
}

// sanitizeFilename replaces characters unsafe for filenames with underscores.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
