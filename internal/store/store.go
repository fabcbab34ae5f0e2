// Package store persists users, challenges, attempts and achievements in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique value is already taken.
	ErrConflict = errors.New("already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	username             TEXT UNIQUE NOT NULL,
	email                TEXT UNIQUE NOT NULL,
	password_hash        TEXT NOT NULL,
	created_at           TEXT NOT NULL,
	total_score          REAL NOT NULL DEFAULT 0,
	challenges_completed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS challenges (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL,
	difficulty      TEXT NOT NULL,
	target_response TEXT NOT NULL,
	constraints     TEXT NOT NULL,
	time_limit      INTEGER NOT NULL DEFAULT 300,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
	id                TEXT PRIMARY KEY,
	user_id           INTEGER NOT NULL,
	challenge_id      TEXT NOT NULL,
	prompt            TEXT NOT NULL,
	model_name        TEXT NOT NULL,
	ai_response       TEXT NOT NULL,
	semantic_accuracy REAL NOT NULL,
	task_compliance   REAL NOT NULL,
	style_match       REAL NOT NULL,
	efficiency_score  REAL NOT NULL,
	total_score       REAL NOT NULL,
	time_taken        INTEGER NOT NULL,
	feedback          TEXT NOT NULL,
	detailed_metrics  TEXT NOT NULL,
	created_at        TEXT NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (challenge_id) REFERENCES challenges(id)
);

CREATE INDEX IF NOT EXISTS idx_attempts_challenge ON attempts(challenge_id);
CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts(user_id, created_at);

CREATE TABLE IF NOT EXISTS achievements (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id          INTEGER NOT NULL,
	achievement_type TEXT NOT NULL,
	achievement_name TEXT NOT NULL,
	earned_at        TEXT NOT NULL,
	UNIQUE (user_id, achievement_type),
	FOREIGN KEY (user_id) REFERENCES users(id)
);
`

// timeFormat has a fixed width so that stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000Z"

// Store manages the trainer's persistent state.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the SQLite database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Counts holds row counts reported by the health endpoint.
type Counts struct {
	Users      int `json:"users"`
	Challenges int `json:"challenges"`
	Attempts   int `json:"attempts"`
}

// Counts returns the number of users, challenges and attempts.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM challenges),
		(SELECT COUNT(*) FROM attempts)`).Scan(&c.Users, &c.Challenges, &c.Attempts)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeFormat)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeFormat, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
