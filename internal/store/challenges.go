package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
)

const upsertChallenge = `
INSERT INTO challenges (id, title, description, difficulty, target_response, constraints, time_limit, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	description = excluded.description,
	difficulty = excluded.difficulty,
	target_response = excluded.target_response,
	constraints = excluded.constraints,
	time_limit = excluded.time_limit`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertChallenge inserts c or replaces the stored definition with the same ID.
func (s *Store) UpsertChallenge(ctx context.Context, c *challenge.Challenge) error {
	return s.upsertChallenge(ctx, s.db, c)
}

// SyncChallenges upserts every challenge in a single transaction.
func (s *Store) SyncChallenges(ctx context.Context, challenges []*challenge.Challenge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range challenges {
		if err := s.upsertChallenge(ctx, tx, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) upsertChallenge(ctx context.Context, db execer, c *challenge.Challenge) error {
	constraints, err := challenge.MarshalConstraints(c.Constraints)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, upsertChallenge,
		c.ID, c.Title, c.Description, c.Difficulty, c.TargetResponse,
		string(constraints), c.TimeLimit, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("upsert challenge %q: %w", c.ID, err)
	}
	return nil
}

// ListChallenges returns challenge summaries, optionally filtered by
// difficulty, ordered by ID.
func (s *Store) ListChallenges(ctx context.Context, difficulty string) ([]challenge.Summary, error) {
	query := `SELECT id, title, description, difficulty, time_limit FROM challenges`
	var args []any
	if difficulty != "" {
		query += ` WHERE difficulty = ?`
		args = append(args, difficulty)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	defer rows.Close()

	summaries := []challenge.Summary{}
	for rows.Next() {
		var c challenge.Summary
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Difficulty, &c.TimeLimit); err != nil {
			return nil, fmt.Errorf("scan challenge: %w", err)
		}
		summaries = append(summaries, c)
	}
	return summaries, rows.Err()
}

// Challenge returns the full definition of the challenge with the given ID.
func (s *Store) Challenge(ctx context.Context, id string) (*challenge.Challenge, error) {
	var (
		c           challenge.Challenge
		constraints string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, difficulty, target_response, constraints, time_limit
		 FROM challenges WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.Difficulty, &c.TargetResponse, &constraints, &c.TimeLimit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("challenge %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query challenge: %w", err)
	}

	c.Constraints, err = challenge.ParseConstraints([]byte(constraints))
	if err != nil {
		return nil, fmt.Errorf("challenge %q: %w", id, err)
	}
	return &c, nil
}
