// Package store handles SQLite persistence for the scoring service.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/blastrain/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// DefaultHistoryLimit is how many results a history read returns.
const DefaultHistoryLimit = 10

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrUsernameRequired is returned when a result has no username.
var ErrUsernameRequired = errors.New("username is required")

// Store wraps SQLite access for users, results and progress.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection serialises writers.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS test_results (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			attempt_id TEXT NOT NULL DEFAULT '',
			test_type TEXT NOT NULL,
			score INTEGER NOT NULL,
			passed INTEGER NOT NULL,
			sequence_data TEXT NOT NULL,
			max_delay INTEGER NOT NULL,
			completed_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_progress (
			user_id INTEGER PRIMARY KEY REFERENCES users(id),
			theory_completed INTEGER NOT NULL DEFAULT 0,
			practice_completed INTEGER NOT NULL DEFAULT 0,
			tests_completed INTEGER NOT NULL DEFAULT 0,
			total_score INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_test_results_user_completed ON test_results(user_id, completed_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type sequenceData struct {
	Delays []int `json:"delays"`
}

// InsertResult stores one attempt for its user, creating the user on first
// use, and adds it to the user's progress. completed_at is taken from the
// attempt.
func (s *Store) InsertResult(ctx context.Context, attempt model.AttemptResult) (resultID, userID int64, err error) {
	username := strings.TrimSpace(attempt.Username)
	if username == "" {
		return 0, 0, ErrUsernameRequired
	}
	testType := attempt.TestType
	if testType == "" {
		testType = model.TestTypeDetonatorSimulator
	}
	delays := attempt.Delays
	if delays == nil {
		delays = []int{}
	}
	seq, err := json.Marshal(sequenceData{Delays: delays})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to encode sequence data: %w", err)
	}
	completedAt := formatTime(attempt.CompletedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO users (username, created_at) VALUES (?, ?)
		 ON CONFLICT(username) DO NOTHING`,
		username, completedAt,
	); err != nil {
		return 0, 0, err
	}
	if err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, username).Scan(&userID); err != nil {
		return 0, 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO test_results (user_id, attempt_id, test_type, score, passed, sequence_data, max_delay, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID,
		attempt.ID,
		testType,
		attempt.Score,
		attempt.Passed,
		string(seq),
		attempt.MaxDelay,
		completedAt,
	)
	if err != nil {
		return 0, 0, err
	}
	resultID, err = res.LastInsertId()
	if err != nil {
		return 0, 0, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO user_progress (user_id, practice_completed, tests_completed, total_score, updated_at)
		 VALUES (?, 1, 1, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			practice_completed = user_progress.practice_completed + 1,
			tests_completed = user_progress.tests_completed + 1,
			total_score = user_progress.total_score + excluded.total_score,
			updated_at = excluded.updated_at`,
		userID, attempt.Score, completedAt,
	); err != nil {
		return 0, 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, err
	}
	return resultID, userID, nil
}

// UserID looks up a user by name. ok is false for unknown users.
func (s *Store) UserID(ctx context.Context, username string) (id int64, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, strings.TrimSpace(username)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// ListResults returns up to limit results of a user, newest first.
func (s *Store) ListResults(ctx context.Context, userID int64, limit int) ([]model.ResultRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, test_type, score, passed, max_delay, completed_at
		 FROM test_results
		 WHERE user_id = ?
		 ORDER BY completed_at DESC, id DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	results := []model.ResultRecord{}
	for rows.Next() {
		var rec model.ResultRecord
		var completedAt string
		if err := rows.Scan(&rec.ID, &rec.TestType, &rec.Score, &rec.Passed, &rec.MaxDelay, &completedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, completedAt)
		if err != nil {
			return nil, err
		}
		rec.CompletedAt = parsed
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetProgress returns a user's progress, or nil when none is recorded.
func (s *Store) GetProgress(ctx context.Context, userID int64) (*model.UserProgress, error) {
	var p model.UserProgress
	err := s.db.QueryRowContext(ctx,
		`SELECT theory_completed, practice_completed, tests_completed, total_score
		 FROM user_progress
		 WHERE user_id = ?`,
		userID,
	).Scan(&p.TheoryCompleted, &p.PracticeCompleted, &p.TestsCompleted, &p.TotalScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// History returns the recent results and progress of username. Unknown
// users get an empty result list and nil progress.
func (s *Store) History(ctx context.Context, username string, limit int) (model.History, error) {
	id, ok, err := s.UserID(ctx, username)
	if err != nil {
		return model.History{}, err
	}
	if !ok {
		return model.History{Results: []model.ResultRecord{}}, nil
	}
	results, err := s.ListResults(ctx, id, limit)
	if err != nil {
		return model.History{}, err
	}
	progress, err := s.GetProgress(ctx, id)
	if err != nil {
		return model.History{}, err
	}
	return model.History{Results: results, Progress: progress}, nil
}

// AttemptDelays returns the stored delays of a result.
func (s *Store) AttemptDelays(ctx context.Context, resultID int64) ([]int, error) {
	var raw string
	if err := s.db.QueryRowContext(ctx, `SELECT sequence_data FROM test_results WHERE id = ?`, resultID).Scan(&raw); err != nil {
		return nil, err
	}
	var seq sequenceData
	if err := json.Unmarshal([]byte(raw), &seq); err != nil {
		return nil, fmt.Errorf("malformed sequence data: %w", err)
	}
	return seq.Delays, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}
