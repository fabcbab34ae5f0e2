package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
	"github.com/giantswarm/prompt-trainer/internal/scorer"
	"github.com/giantswarm/prompt-trainer/internal/server"
	"github.com/giantswarm/prompt-trainer/internal/trainer"
)

func registerEvaluationTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// evaluate_prompt
	evaluateTool := mcp.NewTool("evaluate_prompt",
		mcp.WithDescription("Score a prompt on semantic accuracy, task compliance, style match and efficiency. "+
			"Either give challenge_id and model to have the model answer the prompt, or give response and target to score an existing response."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The prompt being evaluated"),
		),
		mcp.WithString("challenge_id",
			mcp.Description("Challenge the prompt was written for"),
		),
		mcp.WithString("model",
			mcp.Description("Model that answers the prompt (e.g. 'openai', 'claude', 'gemini', 'mock' or a deployed model)"),
		),
		mcp.WithString("response",
			mcp.Description("An existing model response to score instead of generating one"),
		),
		mcp.WithString("target",
			mcp.Description("Reference response to compare against (with 'response')"),
		),
		mcp.WithString("constraints",
			mcp.Description(`Constraint set as JSON (with 'response'), e.g. {"max_words": 100, "required_keywords": ["refund"]}`),
		),
	)
	s.AddTool(evaluateTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleEvaluatePrompt(ctx, request, sc)
	})

	// run_batch
	runTool := mcp.NewTool("run_batch",
		mcp.WithDescription("Evaluate a batch file of challenge prompts against one or more models and write a result set"),
		mcp.WithString("batch_file",
			mcp.Required(),
			mcp.Description("Batch YAML file, relative to the batch directory"),
		),
		mcp.WithArray("models",
			mcp.Description("Models to evaluate (default: the batch's own model list)"),
			mcp.WithStringItems(),
		),
	)
	s.AddTool(runTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRunBatch(ctx, request, sc)
	})

	// get_results
	getResultsTool := mcp.NewTool("get_results",
		mcp.WithDescription("Retrieve summaries and scores of past batch runs"),
		mcp.WithString("run_id",
			mcp.Description("Specific run ID to retrieve (optional, lists all if omitted)"),
		),
	)
	s.AddTool(getResultsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetResults(ctx, request, sc)
	})

	return nil
}

func handleEvaluatePrompt(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	prompt, _ := args["prompt"].(string)
	response, _ := args["response"].(string)

	if response != "" {
		return evaluateResponse(ctx, args, prompt, response, sc)
	}

	if sc.Trainer == nil {
		return mcp.NewToolResultError("trainer is not configured"), nil
	}
	challengeID, _ := args["challenge_id"].(string)
	model, _ := args["model"].(string)
	if challengeID == "" || model == "" {
		return mcp.NewToolResultError("either challenge_id and model, or response, is required"), nil
	}

	out, err := sc.Trainer.Submit(ctx, trainer.Submission{
		ChallengeID: challengeID,
		Prompt:      prompt,
		ModelName:   model,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}
	return jsonResult(out.Result, "evaluation")
}

func evaluateResponse(ctx context.Context, args map[string]any, prompt, response string, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.Evaluator == nil {
		return mcp.NewToolResultError("evaluator is not configured"), nil
	}

	target, _ := args["target"].(string)
	if target == "" {
		return mcp.NewToolResultError("target is required when scoring a response"), nil
	}

	constraints, err := constraintsArg(args["constraints"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := sc.Evaluator.Evaluate(ctx, scorer.Input{
		Response:    response,
		Target:      target,
		Prompt:      prompt,
		Constraints: constraints,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}
	return jsonResult(result, "evaluation")
}

// constraintsArg accepts a constraint set as a JSON string or an object.
func constraintsArg(v any) (challenge.ConstraintSet, error) {
	var data []byte
	switch c := v.(type) {
	case nil:
		return challenge.ConstraintSet{}, nil
	case string:
		data = []byte(c)
	default:
		var err error
		if data, err = json.Marshal(c); err != nil {
			return challenge.ConstraintSet{}, fmt.Errorf("invalid constraints: %v", err)
		}
	}
	cs, err := challenge.ParseConstraints(data)
	if err != nil {
		return challenge.ConstraintSet{}, fmt.Errorf("invalid constraints: %v", err)
	}
	return cs, nil
}
