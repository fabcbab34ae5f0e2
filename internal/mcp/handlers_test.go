package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
	"github.com/giantswarm/prompt-trainer/internal/provider"
	"github.com/giantswarm/prompt-trainer/internal/scorer"
	"github.com/giantswarm/prompt-trainer/internal/server"
	"github.com/giantswarm/prompt-trainer/internal/store"
	"github.com/giantswarm/prompt-trainer/internal/testutil"
	"github.com/giantswarm/prompt-trainer/internal/trainer"
)

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	providers := provider.NewManager(provider.WithMockFallback(true))
	evaluator := scorer.NewEvaluator(&testutil.StubEmbedder{}, testutil.StubReadability{GradeValue: 7})
	catalog := challenge.Catalog{}
	return &server.ServerContext{
		Challenges: catalog,
		Trainer:    trainer.New(catalog, providers, evaluator, nil),
		Evaluator:  evaluator,
		Providers:  providers,
		OutputDir:  t.TempDir(),
		BatchDir:   t.TempDir(),
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func TestHandleListChallenges(t *testing.T) {
	sc := newServerContext(t)

	result, err := handleListChallenges(context.Background(), callRequest(map[string]any{}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var summaries []challenge.Summary
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &summaries))
	assert.Len(t, summaries, 8)

	result, err = handleListChallenges(context.Background(), callRequest(map[string]any{"difficulty": "advanced"}), sc)
	require.NoError(t, err)
	summaries = nil
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &summaries))
	require.NotEmpty(t, summaries)
	for _, s := range summaries {
		assert.Equal(t, challenge.DifficultyAdvanced, s.Difficulty)
	}
}

func TestHandleGetChallenge(t *testing.T) {
	sc := newServerContext(t)

	result, err := handleGetChallenge(context.Background(), callRequest(map[string]any{"challenge_id": "recipe_instructions"}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "numbered_list")

	result, err = handleGetChallenge(context.Background(), callRequest(map[string]any{}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "challenge_id is required")

	result, err = handleGetChallenge(context.Background(), callRequest(map[string]any{"challenge_id": "missing"}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")
}

func TestHandleGetLeaderboard(t *testing.T) {
	sc := newServerContext(t)

	result, err := handleGetLeaderboard(context.Background(), callRequest(map[string]any{"challenge_id": "creative_story"}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "database is not configured")

	st, err := store.Open(filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	sc.Store = st

	result, err = handleGetLeaderboard(context.Background(), callRequest(map[string]any{"challenge_id": "creative_story", "limit": float64(5)}), sc)
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestHandleEvaluatePromptWithModel(t *testing.T) {
	sc := newServerContext(t)

	result, err := handleEvaluatePrompt(context.Background(), callRequest(map[string]any{
		"challenge_id": "professional_email",
		"prompt":       "Write a formal follow-up email",
		"model":        provider.ModelGemini,
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var res scorer.Result
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &res))
	assert.Contains(t, res.AIResponse, "Gemini response to:")
	assert.NotEmpty(t, res.Feedback)
}

func TestHandleEvaluatePromptWithResponse(t *testing.T) {
	sc := newServerContext(t)

	result, err := handleEvaluatePrompt(context.Background(), callRequest(map[string]any{
		"prompt":      "Summarize the meeting",
		"response":    "The meeting went well.",
		"target":      "The meeting went well.",
		"constraints": `{"max_words": 2}`,
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var res scorer.Result
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &res))
	assert.InDelta(t, 100, res.SemanticAccuracy, 1e-9)
	// Four words against a limit of two: a penalty of 2 per extra word.
	assert.InDelta(t, 96, res.TaskCompliance, 1e-9)
}

func TestHandleEvaluatePromptErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
	}{
		{
			name:    "nothing to evaluate",
			args:    map[string]any{"prompt": "p"},
			wantErr: "either challenge_id and model, or response, is required",
		},
		{
			name:    "response without target",
			args:    map[string]any{"prompt": "p", "response": "r"},
			wantErr: "target is required",
		},
		{
			name:    "invalid constraints",
			args:    map[string]any{"prompt": "p", "response": "r", "target": "t", "constraints": `{"max_words": "ten"}`},
			wantErr: "invalid constraints",
		},
		{
			name:    "unsupported model",
			args:    map[string]any{"prompt": "p", "challenge_id": "creative_story", "model": "gpt-9"},
			wantErr: "unsupported model",
		},
	}

	sc := newServerContext(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleEvaluatePrompt(context.Background(), callRequest(tt.args), sc)
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.wantErr)
		})
	}
}

func TestConstraintsArgObject(t *testing.T) {
	cs, err := constraintsArg(map[string]any{"required_keywords": []any{"refund"}, "format": "bullet_points"})
	require.NoError(t, err)
	assert.Equal(t, []string{"refund"}, cs.RequiredKeywords)
	assert.Equal(t, challenge.FormatBulletPoints, cs.Format)
}

func TestHandleRunBatchAndResults(t *testing.T) {
	sc := newServerContext(t)
	batch := "name: drills\nprompts:\n  - {challenge: social_media_post, prompt: Announce our launch}\n"
	require.NoError(t, os.WriteFile(filepath.Join(sc.BatchDir, "drills.yaml"), []byte(batch), 0o644))

	result, err := handleRunBatch(context.Background(), callRequest(map[string]any{
		"batch_file": "drills.yaml",
		"models":     []any{provider.ModelMock, provider.ModelClaude},
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var summary struct {
		RunID  string           `json:"run_id"`
		Models []map[string]any `json:"models"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &summary))
	assert.Len(t, summary.Models, 2)

	result, err = handleGetResults(context.Background(), callRequest(map[string]any{}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), summary.RunID)

	result, err = handleGetResults(context.Background(), callRequest(map[string]any{"run_id": summary.RunID}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	assert.Contains(t, resultText(t, result), "claude.json")
}

func TestHandleRunBatchRejectsPaths(t *testing.T) {
	sc := newServerContext(t)

	for _, file := range []string{"", "../outside.yaml", "/etc/passwd"} {
		result, err := handleRunBatch(context.Background(), callRequest(map[string]any{"batch_file": file}), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError, file)
		assert.Contains(t, resultText(t, result), "invalid batch_file")
	}
}

func TestHandleGetResultsEmptyDir(t *testing.T) {
	sc := &server.ServerContext{OutputDir: t.TempDir()}

	result, err := handleGetResults(context.Background(), callRequest(map[string]any{}), sc)
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestHandleGetResultsNonexistentDir(t *testing.T) {
	sc := &server.ServerContext{OutputDir: "/nonexistent/directory"}

	result, err := handleGetResults(context.Background(), callRequest(map[string]any{}), sc)
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))
}

func TestHandleGetResultsRejectsTraversal(t *testing.T) {
	sc := &server.ServerContext{OutputDir: t.TempDir()}

	result, err := handleGetResults(context.Background(), callRequest(map[string]any{"run_id": "../secrets"}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid run_id")
}

func TestHandleDeployModelNoManager(t *testing.T) {
	sc := &server.ServerContext{}

	result, err := handleDeployModel(context.Background(), callRequest(map[string]any{
		"model_name": "test",
		"model_uri":  "hf://org/model",
	}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "KServe manager is not configured")
}

func TestHandleTeardownModelNoManager(t *testing.T) {
	sc := &server.ServerContext{}

	result, err := handleTeardownModel(context.Background(), callRequest(map[string]any{"model_name": "test"}), sc)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "KServe manager is not configured")
}

func TestHandleListModels(t *testing.T) {
	result, err := handleListModels(context.Background(), callRequest(map[string]any{}), &server.ServerContext{})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	sc := newServerContext(t)
	result, err = handleListModels(context.Background(), callRequest(map[string]any{}), sc)
	require.NoError(t, err)

	var out struct {
		Available []string `json:"available"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.ElementsMatch(t, []string{provider.ModelClaude, provider.ModelGemini, provider.ModelMock, provider.ModelOpenAI}, out.Available)
}
