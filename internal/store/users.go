package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// User is a registered trainee.
type User struct {
	ID                  int64     `json:"id"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"-"`
	CreatedAt           time.Time `json:"created_at"`
	TotalScore          float64   `json:"total_score"`
	ChallengesCompleted int       `json:"challenges_completed"`
}

// CreateUser inserts a user. It returns ErrConflict if the username or
// email is already registered.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = ? OR email = ?`, username, email,
	).Scan(&existing)
	switch {
	case err == nil:
		return nil, fmt.Errorf("user %q: %w", username, ErrConflict)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("check user: %w", err)
	}

	now := s.timestamp()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		username, email, passwordHash, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %q: %w", username, ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    parseTime(now),
	}, nil
}

// UserByName returns the user with the given username.
func (s *Store) UserByName(ctx context.Context, username string) (*User, error) {
	return s.queryUser(ctx, `WHERE username = ?`, username)
}

// UserByID returns the user with the given ID.
func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	return s.queryUser(ctx, `WHERE id = ?`, id)
}

func (s *Store) queryUser(ctx context.Context, where string, arg any) (*User, error) {
	var (
		u       User
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, total_score, challenges_completed
		 FROM users `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created, &u.TotalScore, &u.ChallengesCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}
