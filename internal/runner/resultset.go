package runner

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// ResultSetFile is the manifest written to every run directory.
const ResultSetFile = "resultset.json"

// ResultSet is the manifest of a run: per-model summaries without the
// individual results, which live in each model's results file.
type ResultSet struct {
	ID        string         `json:"id"`
	Batch     string         `json:"batch"`
	Timestamp time.Time      `json:"timestamp"`
	Duration  float64        `json:"full_duration"` // seconds
	Models    []ModelSummary `json:"models"`
}

type ModelSummary struct {
	ModelName   string  `json:"model_name"`
	Duration    float64 `json:"duration"` // seconds
	ResultsFile string  `json:"results_file"`
	Summary     Summary `json:"summary"`
}

func newResultSet(run *Run) ResultSet {
	rs := ResultSet{
		ID:        run.ID,
		Batch:     run.Batch,
		Timestamp: run.Timestamp,
		Duration:  run.Duration.Seconds(),
		Models:    make([]ModelSummary, 0, len(run.Models)),
	}
	for _, m := range run.Models {
		rs.Models = append(rs.Models, ModelSummary{
			ModelName:   m.ModelName,
			Duration:    m.Duration.Seconds(),
			ResultsFile: m.ResultsFile,
			Summary:     m.Summary,
		})
	}
	return rs
}

// ReadResultSet reads the manifest in runDir.
func ReadResultSet(runDir string) (*ResultSet, error) {
	var rs ResultSet
	if err := readJSON(filepath.Join(runDir, ResultSetFile), &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// ListResultSets returns the manifests of all runs under outputDir, newest
// first. A missing outputDir holds no runs. Directories without a readable
// manifest are skipped.
func ListResultSets(outputDir string) ([]ResultSet, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var sets []ResultSet
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rs, err := ReadResultSet(filepath.Join(outputDir, e.Name()))
		if err != nil {
			slog.Debug("skipping run directory", "dir", e.Name(), "error", err)
			continue
		}
		sets = append(sets, *rs)
	}
	slices.SortFunc(sets, func(a, b ResultSet) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return sets, nil
}

// ReadModelRun reads one model's results file. The file is looked up by
// name inside runDir, wherever the run was originally written.
func ReadModelRun(runDir string, m ModelSummary) (*ModelRun, error) {
	var mr ModelRun
	if err := readJSON(filepath.Join(runDir, filepath.Base(m.ResultsFile)), &mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
