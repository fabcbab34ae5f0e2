package api

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/giantswarm/prompt-trainer/internal/auth"
	"github.com/giantswarm/prompt-trainer/internal/challenge"
	"github.com/giantswarm/prompt-trainer/internal/store"
	"github.com/giantswarm/prompt-trainer/internal/trainer"
)

var emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 6
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r registerRequest) validate() error {
	n := utf8.RuneCountInString(r.Username)
	if n < minUsernameLength || n > maxUsernameLength {
		return fmt.Errorf("username must be between %d and %d characters", minUsernameLength, maxUsernameLength)
	}
	if !emailPattern.MatchString(r.Email) {
		return fmt.Errorf("email address is invalid")
	}
	if utf8.RuneCountInString(r.Password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   int64  `json:"user_id"`
}

type evaluateRequest struct {
	ChallengeID string `json:"challenge_id"`
	Prompt      string `json:"prompt"`
	ModelName   string `json:"model_name"`
	TimeTaken   int    `json:"time_taken"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Prompt Engineering Trainer API",
		"status":  "running",
		"version": s.version,
		"features": []string{
			"Multi-model support (OpenAI, Claude, Gemini, self-hosted)",
			"4-dimensional prompt evaluation",
			"Real-time leaderboards",
			"Progress tracking and achievements",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	database := map[string]any{"status": "healthy"}
	counts, err := s.store.Counts(r.Context())
	if err != nil {
		database["status"] = "error: " + err.Error()
	} else {
		database["users"] = counts.Users
		database["challenges"] = counts.Challenges
		database["attempts"] = counts.Attempts
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  database,
		"embedding": s.embedding,
		"models":    s.models.Models(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	u, err := s.store.CreateUser(r.Context(), req.Username, req.Email, hash)
	if errors.Is(err, store.ErrConflict) {
		writeDetail(w, http.StatusBadRequest, "Username or email already exists")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	s.writeToken(w, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := s.store.UserByName(r.Context(), req.Username)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !auth.CheckPassword(u.PasswordHash, req.Password)) {
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	s.writeToken(w, u)
}

func (s *Server) writeToken(w http.ResponseWriter, u *store.User) {
	token, err := s.issuer.Issue(u.ID, u.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Username: u.Username, UserID: u.ID})
}

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListChallenges(r.Context(), r.URL.Query().Get("difficulty"))
	if err != nil {
		writeError(w, err)
		return
	}
	if summaries == nil {
		summaries = []challenge.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Challenge(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"models": s.models.Models()})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ChallengeID) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "challenge_id is required")
		return
	}
	if !s.models.Supports(req.ModelName) {
		writeDetail(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("model_name must be one of: %s", strings.Join(s.models.Models(), ", ")))
		return
	}
	if req.TimeTaken < 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "time_taken must not be negative")
		return
	}

	out, err := s.trainer.Submit(r.Context(), trainer.Submission{
		UserID:      claims.UserID,
		ChallengeID: req.ChallengeID,
		Prompt:      req.Prompt,
		ModelName:   req.ModelName,
		TimeTaken:   req.TimeTaken,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeDetail(w, http.StatusUnprocessableEntity, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.store.Leaderboard(r.Context(), r.PathValue("challenge_id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []store.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	p, err := s.store.Progress(r.Context(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	stats, err := s.store.Stats(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
