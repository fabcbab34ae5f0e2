package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/prompt-trainer/internal/runner"
	"github.com/giantswarm/prompt-trainer/internal/server"
)

// runDetail is a run manifest with each model's individual results.
type runDetail struct {
	*runner.ResultSet
	Results map[string]*runner.ModelRun `json:"results,omitempty"`
}

func handleGetResults(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	runID, _ := request.GetArguments()["run_id"].(string)
	if runID != "" {
		return getRun(sc.OutputDir, runID)
	}

	sets, err := runner.ListResultSets(sc.OutputDir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(sets) == 0 {
		return mcp.NewToolResultText("[]"), nil
	}
	return jsonResult(sets, "runs")
}

func getRun(outputDir, runID string) (*mcp.CallToolResult, error) {
	runPath, err := resolveRunPath(outputDir, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid run_id: %v", err)), nil
	}

	rs, err := runner.ReadResultSet(runPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run %q not found: %v", runID, err)), nil
	}

	detail := runDetail{ResultSet: rs, Results: make(map[string]*runner.ModelRun, len(rs.Models))}
	for _, m := range rs.Models {
		mr, err := runner.ReadModelRun(runPath, m)
		if err != nil {
			slog.Warn("failed to read model results", "run", runID, "model", m.ModelName, "error", err)
			continue
		}
		detail.Results[m.ModelName] = mr
	}
	return jsonResult(detail, "result")
}
