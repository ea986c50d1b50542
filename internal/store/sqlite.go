package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/learnpath/internal/domain"
	"github.com/ashureev/learnpath/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry shared.RetryPolicy
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteWithRetry(dbPath, shared.DefaultRetryPolicy)
}

// NewSQLiteWithRetry creates a SQLite repository whose writes retry on
// lock contention according to policy.
func NewSQLiteWithRetry(dbPath string, policy shared.RetryPolicy) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, retry: policy}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS learners (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_learners_last_seen ON learners(last_seen_at);

	CREATE TABLE IF NOT EXISTS lesson_progress (
		user_id TEXT NOT NULL REFERENCES learners(user_id) ON DELETE CASCADE,
		section_slug TEXT NOT NULL,
		lesson_slug TEXT NOT NULL,
		completed_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, section_slug, lesson_slug)
	);

	CREATE TABLE IF NOT EXISTS challenge_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES learners(user_id) ON DELETE CASCADE,
		section_slug TEXT NOT NULL,
		lesson_slug TEXT NOT NULL,
		challenge_index INTEGER NOT NULL,
		answer_index INTEGER NOT NULL,
		correct INTEGER NOT NULL,
		answered_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_lesson ON challenge_attempts(user_id, section_slug, lesson_slug);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) withRetry(ctx context.Context, name string, op func(context.Context) error) error {
	return shared.RetryOnConflict(ctx, s.retry, name, op)
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func scanLearner(scan func(dest ...any) error) (*domain.Learner, error) {
	var l domain.Learner
	var lastSeen, createdAt, updatedAt int64
	if err := scan(&l.UserID, &l.Username, &lastSeen, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	l.LastSeenAt = time.Unix(lastSeen, 0)
	l.CreatedAt = time.Unix(createdAt, 0)
	l.UpdatedAt = time.Unix(updatedAt, 0)
	return &l, nil
}

// GetLearner retrieves a learner by user ID.
func (s *SQLiteStore) GetLearner(ctx context.Context, userID string) (*domain.Learner, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM learners WHERE user_id = ?`

	l, err := scanLearner(s.db.QueryRowContext(ctx, query, userID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan learner row: %w", err)
	}
	return l, nil
}

// UpsertLearner creates or updates a learner record.
func (s *SQLiteStore) UpsertLearner(ctx context.Context, l *domain.Learner) error {
	query := `
	INSERT INTO learners (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	return s.withRetry(ctx, "upsert_learner", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			l.UserID, l.Username, l.LastSeenAt.Unix(),
			l.CreatedAt.Unix(), l.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert learner: %w", err)
		}
		return nil
	})
}

// UpdateLastSeen updates the last_seen_at timestamp for a learner.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE learners SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	return s.withRetry(ctx, "update_last_seen", func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
		if err != nil {
			return fmt.Errorf("update last_seen: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
		}
		return nil
	})
}

// GetStaleLearners returns learners whose last visit is older than ttl.
func (s *SQLiteStore) GetStaleLearners(ctx context.Context, ttl time.Duration) ([]*domain.Learner, error) {
	threshold := time.Now().Add(-ttl).Unix()
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM learners WHERE last_seen_at < ?
		ORDER BY last_seen_at`

	rows, err := s.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("query stale learners: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close stale learners rows", "error", closeErr)
		}
	}()

	var learners []*domain.Learner
	for rows.Next() {
		l, err := scanLearner(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan stale learner row: %w", err)
		}
		learners = append(learners, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale learners: %w", err)
	}
	return learners, nil
}

// DeleteLearner removes a learner and everything recorded for them.
func (s *SQLiteStore) DeleteLearner(ctx context.Context, userID string) error {
	return s.withRetry(ctx, "delete_learner", func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin delete learner: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, q := range []string{
			`DELETE FROM challenge_attempts WHERE user_id = ?`,
			`DELETE FROM lesson_progress WHERE user_id = ?`,
			`DELETE FROM learners WHERE user_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, userID); err != nil {
				return fmt.Errorf("delete learner: %w", err)
			}
		}
		return tx.Commit()
	})
}

// MarkLessonComplete records a lesson completion if it is not recorded yet.
func (s *SQLiteStore) MarkLessonComplete(ctx context.Context, p domain.LessonProgress) (bool, error) {
	query := `
		INSERT INTO lesson_progress (user_id, section_slug, lesson_slug, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, section_slug, lesson_slug) DO NOTHING`

	var inserted bool
	err := s.withRetry(ctx, "mark_lesson_complete", func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, query, p.UserID, p.SectionSlug, p.LessonSlug, p.CompletedAt.Unix())
		if err != nil {
			return fmt.Errorf("mark lesson complete: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		inserted = rows > 0
		return nil
	})
	return inserted, err
}

// CompletedLessons returns the completed lesson slugs of one section.
func (s *SQLiteStore) CompletedLessons(ctx context.Context, userID, sectionSlug string) (domain.CompletionSet, error) {
	query := `SELECT lesson_slug FROM lesson_progress WHERE user_id = ? AND section_slug = ?`

	rows, err := s.db.QueryContext(ctx, query, userID, sectionSlug)
	if err != nil {
		return nil, fmt.Errorf("query completed lessons: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close completed lessons rows", "error", closeErr)
		}
	}()

	set := domain.NewCompletionSet()
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scan completed lesson: %w", err)
		}
		set.Add(slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed lessons: %w", err)
	}
	return set, nil
}

// ListProgress returns every completion of a learner.
func (s *SQLiteStore) ListProgress(ctx context.Context, userID string) ([]domain.LessonProgress, error) {
	query := `
		SELECT user_id, section_slug, lesson_slug, completed_at
		FROM lesson_progress WHERE user_id = ?
		ORDER BY completed_at, section_slug, lesson_slug`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close progress rows", "error", closeErr)
		}
	}()

	var out []domain.LessonProgress
	for rows.Next() {
		var p domain.LessonProgress
		var completedAt int64
		if err := rows.Scan(&p.UserID, &p.SectionSlug, &p.LessonSlug, &completedAt); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		p.CompletedAt = time.Unix(completedAt, 0)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

// ResetProgress clears completions and attempts for a section or for all sections.
func (s *SQLiteStore) ResetProgress(ctx context.Context, userID, sectionSlug string) (int64, error) {
	progressQ := `DELETE FROM lesson_progress WHERE user_id = ?`
	attemptsQ := `DELETE FROM challenge_attempts WHERE user_id = ?`
	args := []any{userID}
	if sectionSlug != "" {
		progressQ += ` AND section_slug = ?`
		attemptsQ += ` AND section_slug = ?`
		args = append(args, sectionSlug)
	}

	var removed int64
	err := s.withRetry(ctx, "reset_progress", func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin reset progress: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		result, err := tx.ExecContext(ctx, progressQ, args...)
		if err != nil {
			return fmt.Errorf("reset lesson progress: %w", err)
		}
		if removed, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if _, err := tx.ExecContext(ctx, attemptsQ, args...); err != nil {
			return fmt.Errorf("reset challenge attempts: %w", err)
		}
		return tx.Commit()
	})
	return removed, err
}

// RecordAttempt stores a submitted challenge answer.
func (s *SQLiteStore) RecordAttempt(ctx context.Context, a domain.ChallengeAttempt) error {
	query := `
		INSERT INTO challenge_attempts (
			user_id, section_slug, lesson_slug, challenge_index, answer_index, correct, answered_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	return s.withRetry(ctx, "record_attempt", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			a.UserID, a.SectionSlug, a.LessonSlug,
			a.ChallengeIndex, a.AnswerIndex, a.Correct, a.AnsweredAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}
		return nil
	})
}

// ChallengeStatus returns the correctly answered challenge indexes of a lesson.
func (s *SQLiteStore) ChallengeStatus(ctx context.Context, userID, sectionSlug, lessonSlug string) (map[int]bool, error) {
	query := `
		SELECT DISTINCT challenge_index FROM challenge_attempts
		WHERE user_id = ? AND section_slug = ? AND lesson_slug = ? AND correct = 1`

	rows, err := s.db.QueryContext(ctx, query, userID, sectionSlug, lessonSlug)
	if err != nil {
		return nil, fmt.Errorf("query challenge status: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close challenge status rows", "error", closeErr)
		}
	}()

	status := make(map[int]bool)
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan challenge status: %w", err)
		}
		status[idx] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate challenge status: %w", err)
	}
	return status, nil
}
