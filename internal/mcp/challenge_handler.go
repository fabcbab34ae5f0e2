package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/prompt-trainer/internal/server"
	"github.com/giantswarm/prompt-trainer/internal/store"
)

func registerChallengeTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// list_challenges
	listTool := mcp.NewTool("list_challenges",
		mcp.WithDescription("List prompt engineering challenges with their difficulty and time limit"),
		mcp.WithString("difficulty",
			mcp.Description("Only list challenges of this difficulty (beginner, intermediate, advanced)"),
		),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListChallenges(ctx, request, sc)
	})

	// get_challenge
	getTool := mcp.NewTool("get_challenge",
		mcp.WithDescription("Get a challenge's description, constraints and target response"),
		mcp.WithString("challenge_id",
			mcp.Required(),
			mcp.Description("ID of the challenge (e.g. 'professional_email')"),
		),
	)
	s.AddTool(getTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetChallenge(ctx, request, sc)
	})

	// get_leaderboard
	leaderboardTool := mcp.NewTool("get_leaderboard",
		mcp.WithDescription("Rank users by their best score on a challenge"),
		mcp.WithString("challenge_id",
			mcp.Required(),
			mcp.Description("ID of the challenge"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of entries (default: 10, max: 100)"),
		),
	)
	s.AddTool(leaderboardTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetLeaderboard(ctx, request, sc)
	})

	return nil
}

func handleListChallenges(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.Challenges == nil {
		return mcp.NewToolResultError("challenge catalog is not configured"), nil
	}

	difficulty, _ := request.GetArguments()["difficulty"].(string)
	summaries, err := sc.Challenges.ListChallenges(ctx, difficulty)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list challenges: %v", err)), nil
	}
	return jsonResult(summaries, "challenges")
}

func handleGetChallenge(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.Challenges == nil {
		return mcp.NewToolResultError("challenge catalog is not configured"), nil
	}

	id, ok := request.GetArguments()["challenge_id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("challenge_id is required"), nil
	}

	c, err := sc.Challenges.Challenge(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get challenge: %v", err)), nil
	}
	return jsonResult(c, "challenge")
}

func handleGetLeaderboard(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.Store == nil {
		return mcp.NewToolResultError("database is not configured"), nil
	}

	args := request.GetArguments()
	id, ok := args["challenge_id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("challenge_id is required"), nil
	}
	limit := store.DefaultLeaderboardLimit
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	entries, err := sc.Store.Leaderboard(ctx, id, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get leaderboard: %v", err)), nil
	}
	if entries == nil {
		entries = []store.LeaderboardEntry{}
	}
	return jsonResult(entries, "leaderboard")
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any, what string) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal %s: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
