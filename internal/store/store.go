// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/learnpath/internal/domain"
)

// Repository defines the interface for persisting learners and their progress.
type Repository interface {
	// GetLearner retrieves a learner by user ID. Returns nil, nil when absent.
	GetLearner(ctx context.Context, userID string) (*domain.Learner, error)

	// UpsertLearner creates or updates a learner record.
	UpsertLearner(ctx context.Context, learner *domain.Learner) error

	// UpdateLastSeen updates the last_seen_at timestamp for a learner.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetStaleLearners returns learners not seen within ttl.
	GetStaleLearners(ctx context.Context, ttl time.Duration) ([]*domain.Learner, error)

	// DeleteLearner removes a learner together with all progress and attempts.
	DeleteLearner(ctx context.Context, userID string) error

	// MarkLessonComplete records a lesson completion. It never overwrites an
	// existing completion and reports whether a new row was written.
	MarkLessonComplete(ctx context.Context, p domain.LessonProgress) (bool, error)

	// CompletedLessons returns the completed lesson slugs of one section.
	CompletedLessons(ctx context.Context, userID, sectionSlug string) (domain.CompletionSet, error)

	// ListProgress returns every completion of a learner ordered by completion time.
	ListProgress(ctx context.Context, userID string) ([]domain.LessonProgress, error)

	// ResetProgress clears completions and attempts for one section, or for
	// all sections when sectionSlug is empty. Returns completions removed.
	ResetProgress(ctx context.Context, userID, sectionSlug string) (int64, error)

	// RecordAttempt stores a submitted challenge answer.
	RecordAttempt(ctx context.Context, a domain.ChallengeAttempt) error

	// ChallengeStatus returns the challenge indexes of a lesson that have at
	// least one correct attempt.
	ChallengeStatus(ctx context.Context, userID, sectionSlug, lessonSlug string) (map[int]bool, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
