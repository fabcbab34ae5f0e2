package store

import (
	"context"
	"fmt"
	"time"
)

// Leaderboard limits.
const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// recentAttemptsLimit bounds the attempts returned by Progress.
const recentAttemptsLimit = 10

// LeaderboardEntry is one ranked row of a challenge leaderboard.
type LeaderboardEntry struct {
	Rank      int       `json:"rank"`
	Username  string    `json:"username"`
	Score     float64   `json:"score"`
	TimeTaken int       `json:"time_taken"`
	Timestamp time.Time `json:"timestamp"`
}

// Leaderboard ranks users by their best score on a challenge, breaking ties
// by their fastest time.
func (s *Store) Leaderboard(ctx context.Context, challengeID string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	limit = min(limit, MaxLeaderboardLimit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.username, MAX(a.total_score) AS best_score, MIN(a.time_taken) AS best_time, MAX(a.created_at)
		FROM attempts a
		JOIN users u ON a.user_id = u.id
		WHERE a.challenge_id = ?
		GROUP BY u.id, u.username
		ORDER BY best_score DESC, best_time ASC, u.username ASC
		LIMIT ?`, challengeID, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	for rows.Next() {
		var (
			e  LeaderboardEntry
			ts string
		)
		if err := rows.Scan(&e.Username, &e.Score, &e.TimeTaken, &ts); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		e.Rank = len(entries) + 1
		e.Timestamp = parseTime(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecentAttempt summarizes an attempt for the progress view.
type RecentAttempt struct {
	ChallengeTitle string    `json:"challenge_title"`
	Score          float64   `json:"score"`
	Timestamp      time.Time `json:"timestamp"`
}

// Progress is a user's overall progress.
type Progress struct {
	TotalScore          float64         `json:"total_score"`
	ChallengesCompleted int             `json:"challenges_completed"`
	RecentAttempts      []RecentAttempt `json:"recent_attempts"`
	Achievements        []Achievement   `json:"achievements"`
}

// Progress returns the totals, most recent attempts and achievements of a user.
func (s *Store) Progress(ctx context.Context, userID int64) (*Progress, error) {
	u, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Progress{
		TotalScore:          u.TotalScore,
		ChallengesCompleted: u.ChallengesCompleted,
		RecentAttempts:      []RecentAttempt{},
		Achievements:        []Achievement{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.title, a.total_score, a.created_at
		FROM attempts a
		JOIN challenges c ON a.challenge_id = c.id
		WHERE a.user_id = ?
		ORDER BY a.created_at DESC
		LIMIT ?`, userID, recentAttemptsLimit)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r  RecentAttempt
			ts string
		)
		if err := rows.Scan(&r.ChallengeTitle, &r.Score, &ts); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		r.Timestamp = parseTime(ts)
		p.RecentAttempts = append(p.RecentAttempts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	p.Achievements, err = s.Achievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Achievements returns every achievement earned by a user, oldest first.
func (s *Store) Achievements(ctx context.Context, userID int64) ([]Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT achievement_type, achievement_name, earned_at
		FROM achievements WHERE user_id = ?
		ORDER BY earned_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("achievements: %w", err)
	}
	defer rows.Close()

	achievements := []Achievement{}
	for rows.Next() {
		var (
			a  Achievement
			ts string
		)
		if err := rows.Scan(&a.Type, &a.Name, &ts); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		a.EarnedAt = parseTime(ts)
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

// Aggregate is an average score over a number of attempts.
type Aggregate struct {
	AvgScore float64 `json:"avg_score"`
	Attempts int     `json:"attempts"`
}

// Stats breaks a user's performance down by difficulty and by model.
type Stats struct {
	DifficultyStats map[string]Aggregate `json:"difficulty_stats"`
	ModelStats      map[string]Aggregate `json:"model_stats"`
}

// Stats returns a user's average score per challenge difficulty and per model.
func (s *Store) Stats(ctx context.Context, userID int64) (*Stats, error) {
	byDifficulty, err := s.aggregate(ctx, `
		SELECT c.difficulty, AVG(a.total_score), COUNT(*)
		FROM attempts a
		JOIN challenges c ON a.challenge_id = c.id
		WHERE a.user_id = ?
		GROUP BY c.difficulty`, userID)
	if err != nil {
		return nil, fmt.Errorf("difficulty stats: %w", err)
	}
	byModel, err := s.aggregate(ctx, `
		SELECT model_name, AVG(total_score), COUNT(*)
		FROM attempts
		WHERE user_id = ?
		GROUP BY model_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("model stats: %w", err)
	}
	return &Stats{DifficultyStats: byDifficulty, ModelStats: byModel}, nil
}

func (s *Store) aggregate(ctx context.Context, query string, userID int64) (map[string]Aggregate, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Aggregate)
	for rows.Next() {
		var (
			key string
			agg Aggregate
		)
		if err := rows.Scan(&key, &agg.AvgScore, &agg.Attempts); err != nil {
			return nil, err
		}
		out[key] = agg
	}
	return out, rows.Err()
}
