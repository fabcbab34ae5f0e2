package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/prompt-trainer/internal/runner"
	"github.com/giantswarm/prompt-trainer/internal/server"
)

func handleRunBatch(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.Trainer == nil {
		return mcp.NewToolResultError("trainer is not configured"), nil
	}

	args := request.GetArguments()
	batchFile, _ := args["batch_file"].(string)
	path, err := resolveBatchPath(sc.BatchDir, batchFile)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid batch_file: %v", err)), nil
	}

	batch, err := runner.LoadBatch(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load batch: %v", err)), nil
	}

	var models []string
	if raw, ok := args["models"].([]any); ok {
		for _, m := range raw {
			name, ok := m.(string)
			if !ok || strings.TrimSpace(name) == "" {
				return mcp.NewToolResultError("models must be an array of non-empty strings"), nil
			}
			models = append(models, strings.TrimSpace(name))
		}
	}

	run, err := runner.NewRunner(sc.Trainer, sc.OutputDir).Run(ctx, batch, models)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("batch run failed: %v", err)), nil
	}

	summaries := make([]map[string]any, 0, len(run.Models))
	for _, m := range run.Models {
		summaries = append(summaries, map[string]any{
			"model":        m.ModelName,
			"results_file": m.ResultsFile,
			"duration":     m.Duration.String(),
			"summary":      m.Summary,
		})
	}

	return jsonResult(map[string]any{
		"run_id":   run.ID,
		"batch":    run.Batch,
		"duration": run.Duration.String(),
		"models":   summaries,
	}, "summary")
}
