package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/repcoach/pkg/logger"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS completions (
	exercise_id  TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	family       TEXT NOT NULL,
	rep_count    INTEGER NOT NULL,
	target_reps  INTEGER NOT NULL,
	sets         INTEGER NOT NULL DEFAULT 0,
	completed_at INTEGER NOT NULL
)`

// SQLiteStore persists completion marks in a SQLite file.
type SQLiteStore struct {
	db       *sql.DB
	maxConns int
	logger   logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{maxConns: 1, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(s.maxConns)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating completions table: %w", err)
	}
	s.db = db
	s.logger.Info(ctx, "completion store opened", logger.String("path", path))
	return s, nil
}

func (s *SQLiteStore) MarkCompleted(ctx context.Context, c Completion) (bool, error) {
	if err := validate(c); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO completions
			(exercise_id, session_id, family, rep_count, target_reps, sets, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ExerciseID, c.SessionID, c.Family, c.RepCount, c.TargetReps, c.Sets, c.CompletedAt.UTC().UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("marking %s completed: %w", c.ExerciseID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking %s completed: %w", c.ExerciseID, err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Get(ctx context.Context, exerciseID string) (Completion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT exercise_id, session_id, family, rep_count, target_reps, sets, completed_at
		 FROM completions WHERE exercise_id = ?`, exerciseID)
	c, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Completion{}, ErrNotFound
	}
	if err != nil {
		return Completion{}, fmt.Errorf("loading completion %s: %w", exerciseID, err)
	}
	return c, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Completion, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT exercise_id, session_id, family, rep_count, target_reps, sets, completed_at
		 FROM completions ORDER BY completed_at DESC, exercise_id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing completions: %w", err)
	}
	defer rows.Close()

	var out []Completion
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("listing completions: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing completions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM completions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting completions: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (Completion, error) {
	var (
		c  Completion
		at int64
	)
	if err := r.Scan(&c.ExerciseID, &c.SessionID, &c.Family, &c.RepCount, &c.TargetReps, &c.Sets, &at); err != nil {
		return Completion{}, err
	}
	c.CompletedAt = time.Unix(0, at).UTC()
	return c, nil
}
