package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/prompt-trainer/internal/scorer"
)

// NewAttempt is a scored submission to be recorded.
type NewAttempt struct {
	UserID      int64
	ChallengeID string
	Prompt      string
	ModelName   string
	TimeTaken   int // seconds
	Result      *scorer.Result
}

// Attempt is a recorded submission.
type Attempt struct {
	ID          string        `json:"id"`
	UserID      int64         `json:"user_id"`
	ChallengeID string        `json:"challenge_id"`
	Prompt      string        `json:"prompt"`
	ModelName   string        `json:"model_name"`
	TimeTaken   int           `json:"time_taken"`
	Result      scorer.Result `json:"result"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Achievement is a badge earned by a user.
type Achievement struct {
	Type     string    `json:"type"`
	Name     string    `json:"name"`
	EarnedAt time.Time `json:"earned_at"`
}

// Achievement types.
const (
	AchievementFirstAttempt = "first_attempt"
	AchievementPerfectScore = "perfect_score"
	AchievementSpeedDemon   = "speed_demon"
	AchievementConsistency  = "consistency"
	AchievementMultiModel   = "multi_model"
)

// AchievementNames maps achievement types to display names.
var AchievementNames = map[string]string{
	AchievementFirstAttempt: "First Steps",
	AchievementPerfectScore: "Perfectionist",
	AchievementSpeedDemon:   "Speed Demon",
	AchievementConsistency:  "Consistency Master",
	AchievementMultiModel:   "Model Explorer",
}

// Achievement thresholds.
const (
	perfectScoreThreshold   = 95.0
	speedDemonMaxSeconds    = 60
	speedDemonMinScore      = 80.0
	consistencyMinScore     = 80.0
	consistencyMinAttempts  = 5
	multiModelDistinctCount = 3
)

// RecordAttempt stores a scored attempt, updates the user's running totals
// and awards any newly earned achievements, all in one transaction. It
// returns the stored attempt and the achievements earned by it.
func (s *Store) RecordAttempt(ctx context.Context, in NewAttempt) (*Attempt, []Achievement, error) {
	if in.Result == nil {
		return nil, nil, fmt.Errorf("record attempt: missing result")
	}

	feedback, err := json.Marshal(in.Result.Feedback)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal feedback: %w", err)
	}
	metrics, err := json.Marshal(in.Result.DetailedMetrics)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal metrics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()
	now := s.timestamp()
	r := in.Result

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attempts (
			id, user_id, challenge_id, prompt, model_name, ai_response,
			semantic_accuracy, task_compliance, style_match, efficiency_score, total_score,
			time_taken, feedback, detailed_metrics, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.UserID, in.ChallengeID, in.Prompt, in.ModelName, r.AIResponse,
		r.SemanticAccuracy, r.TaskCompliance, r.StyleMatch, r.EfficiencyScore, r.TotalScore,
		in.TimeTaken, string(feedback), string(metrics), now,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert attempt: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET challenges_completed = challenges_completed + 1, total_score = total_score + ? WHERE id = ?`,
		r.TotalScore, in.UserID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update user stats: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil, fmt.Errorf("user %d: %w", in.UserID, ErrNotFound)
	}

	earned, err := s.awardAchievements(ctx, tx, in, now)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	return &Attempt{
		ID:          id,
		UserID:      in.UserID,
		ChallengeID: in.ChallengeID,
		Prompt:      in.Prompt,
		ModelName:   in.ModelName,
		TimeTaken:   in.TimeTaken,
		Result:      *r,
		CreatedAt:   parseTime(now),
	}, earned, nil
}

func (s *Store) awardAchievements(ctx context.Context, tx *sql.Tx, in NewAttempt, now string) ([]Achievement, error) {
	var total, highScoring, models int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN total_score >= ? THEN 1 ELSE 0 END), 0),
		       COUNT(DISTINCT model_name)
		FROM attempts WHERE user_id = ?`,
		consistencyMinScore, in.UserID,
	).Scan(&total, &highScoring, &models)
	if err != nil {
		return nil, fmt.Errorf("attempt statistics: %w", err)
	}

	score := in.Result.TotalScore
	candidates := map[string]bool{
		AchievementFirstAttempt: total == 1,
		AchievementPerfectScore: score >= perfectScoreThreshold,
		AchievementSpeedDemon:   in.TimeTaken > 0 && in.TimeTaken < speedDemonMaxSeconds && score >= speedDemonMinScore,
		AchievementConsistency:  highScoring >= consistencyMinAttempts,
		AchievementMultiModel:   models >= multiModelDistinctCount,
	}

	var earned []Achievement
	for _, kind := range []string{
		AchievementFirstAttempt, AchievementPerfectScore, AchievementSpeedDemon,
		AchievementConsistency, AchievementMultiModel,
	} {
		if !candidates[kind] {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO achievements (user_id, achievement_type, achievement_name, earned_at) VALUES (?, ?, ?, ?)`,
			in.UserID, kind, AchievementNames[kind], now,
		)
		if err != nil {
			return nil, fmt.Errorf("award %s: %w", kind, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			earned = append(earned, Achievement{Type: kind, Name: AchievementNames[kind], EarnedAt: parseTime(now)})
		}
	}
	return earned, nil
}
