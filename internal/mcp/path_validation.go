package mcp

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolveRunPath maps a run ID from a result set listing to its directory.
// Run IDs are single path elements.
func resolveRunPath(outputDir, runID string) (string, error) {
	runID = strings.TrimSpace(runID)
	switch {
	case runID == "":
		return "", fmt.Errorf("run_id is required")
	case strings.ContainsAny(runID, `/\`):
		return "", fmt.Errorf("path separators are not allowed")
	case runID == "." || runID == "..":
		return "", fmt.Errorf("path traversal is not allowed")
	}
	return resolvePathWithinBase(outputDir, runID)
}

// resolveBatchPath maps a batch file name to a YAML file inside batchDir.
func resolveBatchPath(batchDir, batchFile string) (string, error) {
	batchFile = strings.TrimSpace(batchFile)
	if batchFile == "" {
		return "", fmt.Errorf("batch_file is required")
	}
	switch strings.ToLower(filepath.Ext(batchFile)) {
	case ".yaml", ".yml":
	default:
		return "", fmt.Errorf("batch files must be .yaml or .yml")
	}
	return resolvePathWithinBase(batchDir, batchFile)
}

// resolvePathWithinBase returns the absolute path of rel under baseDir, or an
// error if it would escape baseDir.
func resolvePathWithinBase(baseDir, rel string) (string, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	target := rel
	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	target = filepath.Clean(target)

	inside, err := filepath.Rel(base, target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve relative path: %w", err)
	}
	if inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path must be within %s", baseDir)
	}
	return target, nil
}
