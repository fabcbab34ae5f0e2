package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/prompt-trainer/internal/auth"
	"github.com/giantswarm/prompt-trainer/internal/challenge"
	"github.com/giantswarm/prompt-trainer/internal/provider"
	"github.com/giantswarm/prompt-trainer/internal/scorer"
	"github.com/giantswarm/prompt-trainer/internal/store"
	"github.com/giantswarm/prompt-trainer/internal/testutil"
	"github.com/giantswarm/prompt-trainer/internal/trainer"
)

type testEnv struct {
	handler http.Handler
	store   *store.Store
	issuer  *auth.Issuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	all, err := challenge.LoadAll("")
	require.NoError(t, err)
	require.NoError(t, st.SyncChallenges(ctx, all))

	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	models := provider.NewManager(provider.WithMockFallback(true))
	evaluator := scorer.NewEvaluator(&testutil.StubEmbedder{}, testutil.StubReadability{GradeValue: 8})

	srv := New(Options{
		Store:       st,
		Trainer:     trainer.New(st, models, evaluator, st),
		Models:      models,
		Issuer:      issuer,
		Version:     "test",
		CORSOrigins: []string{"http://localhost:3000"},
		Embedding:   "stub",
	})
	return &testEnv{handler: srv.Handler(), store: st, issuer: issuer}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, username string) tokenResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", registerRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	return tok
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	root := decode[map[string]any](t, rec)
	assert.Equal(t, "running", root["status"])
	assert.Equal(t, "test", root["version"])

	rec = env.do(t, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", health["status"])
	db := health["database"].(map[string]any)
	assert.Equal(t, "healthy", db["status"])
	assert.EqualValues(t, 8, db["challenges"])
	assert.EqualValues(t, 0, db["users"])
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		req  registerRequest
	}{
		{name: "short username", req: registerRequest{Username: "ab", Email: "ab@example.com", Password: "secret123"}},
		{name: "bad email", req: registerRequest{Username: "alice", Email: "not-an-email", Password: "secret123"}},
		{name: "short password", req: registerRequest{Username: "alice", Email: "alice@example.com", Password: "12345"}},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", tt.req, "")
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	tok := env.register(t, "alice")
	assert.Equal(t, "alice", tok.Username)
	assert.NotZero(t, tok.UserID)

	claims, err := env.issuer.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, tok.UserID, claims.UserID)

	rec := env.do(t, http.MethodPost, "/api/auth/register", registerRequest{
		Username: "alice", Email: "other@example.com", Password: "secret123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username or email already exists", decode[map[string]string](t, rec)["detail"])

	rec = env.do(t, http.MethodPost, "/api/auth/login", loginRequest{Username: "alice", Password: "secret123"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tok.UserID, decode[tokenResponse](t, rec).UserID)

	for _, req := range []loginRequest{
		{Username: "alice", Password: "wrong-password"},
		{Username: "nobody", Password: "secret123"},
	} {
		rec = env.do(t, http.MethodPost, "/api/auth/login", req, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decode[map[string]string](t, rec)["detail"])
	}
}

func TestChallenges(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/challenges", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]challenge.Summary](t, rec), 8)

	rec = env.do(t, http.MethodGet, "/api/challenges?difficulty=advanced", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, s := range decode[[]challenge.Summary](t, rec) {
		assert.Equal(t, challenge.DifficultyAdvanced, s.Difficulty)
	}

	rec = env.do(t, http.MethodGet, "/api/challenges?difficulty=impossible", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/challenges/professional_email", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[challenge.Challenge](t, rec)
	limit, ok := c.Constraints.WordLimit()
	require.True(t, ok)
	assert.Equal(t, 120, limit)
	assert.NotEmpty(t, c.TargetResponse)

	rec = env.do(t, http.MethodGet, "/api/challenges/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Challenge not found", decode[map[string]string](t, rec)["detail"])
}

func TestEvaluateRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	body := evaluateRequest{ChallengeID: "professional_email", Prompt: "Write an email", ModelName: provider.ModelOpenAI}

	rec := env.do(t, http.MethodPost, "/api/evaluate", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", decode[map[string]string](t, rec)["detail"])

	rec = env.do(t, http.MethodPost, "/api/evaluate", body, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", decode[map[string]string](t, rec)["detail"])
}

func TestEvaluate(t *testing.T) {
	env := newTestEnv(t)
	tok := env.register(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/evaluate", evaluateRequest{
		ChallengeID: "professional_email",
		Prompt:      "Write a formal follow-up email listing action items from the meeting",
		ModelName:   provider.ModelClaude,
		TimeTaken:   45,
	}, tok.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode[map[string]any](t, rec)
	assert.Contains(t, out["ai_response"], "Claude response to:")
	assert.NotEmpty(t, out["attempt_id"])
	assert.NotEmpty(t, out["feedback"])
	for _, key := range []string{"semantic_accuracy", "task_compliance", "style_match", "efficiency_score", "total_score"} {
		v, ok := out[key].(float64)
		require.True(t, ok, key)
		assert.GreaterOrEqual(t, v, 0.0, key)
		assert.LessOrEqual(t, v, 100.0, key)
	}

	rec = env.do(t, http.MethodGet, "/api/leaderboard/professional_email", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[[]store.LeaderboardEntry](t, rec)
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "alice", board[0].Username)
	assert.Equal(t, 45, board[0].TimeTaken)

	rec = env.do(t, http.MethodGet, "/api/user/progress", nil, tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decode[store.Progress](t, rec)
	assert.Equal(t, 1, progress.ChallengesCompleted)
	require.Len(t, progress.RecentAttempts, 1)
	assert.NotEmpty(t, progress.Achievements)

	rec = env.do(t, http.MethodGet, "/api/user/stats", nil, tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[store.Stats](t, rec)
	assert.Equal(t, 1, stats.DifficultyStats[challenge.DifficultyBeginner].Attempts)
	assert.Equal(t, 1, stats.ModelStats[provider.ModelClaude].Attempts)
}

func TestEvaluateRejects(t *testing.T) {
	tests := []struct {
		name       string
		req        evaluateRequest
		wantStatus int
	}{
		{
			name:       "unknown model",
			req:        evaluateRequest{ChallengeID: "creative_story", Prompt: "p", ModelName: "gpt-9"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "missing challenge id",
			req:        evaluateRequest{Prompt: "p", ModelName: provider.ModelMock},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "negative time",
			req:        evaluateRequest{ChallengeID: "creative_story", Prompt: "p", ModelName: provider.ModelMock, TimeTaken: -1},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown challenge",
			req:        evaluateRequest{ChallengeID: "missing", Prompt: "p", ModelName: provider.ModelMock},
			wantStatus: http.StatusNotFound,
		},
	}

	env := newTestEnv(t)
	tok := env.register(t, "bob")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/evaluate", tt.req, tok.Token)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestLeaderboardLimit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/leaderboard/creative_story", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/leaderboard/creative_story?limit=abc", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/evaluate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/health", nil, "")

	rec := env.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
