// Package progress records challenge answers and lesson completions and
// turns them into next-action navigation.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ashureev/learnpath/internal/content"
	"github.com/ashureev/learnpath/internal/domain"
	"github.com/ashureev/learnpath/internal/metrics"
	"github.com/ashureev/learnpath/internal/navigation"
	"github.com/ashureev/learnpath/internal/store"
)

var (
	ErrUnknownSection   = errors.New("unknown section")
	ErrUnknownLesson    = errors.New("unknown lesson")
	ErrUnknownChallenge = errors.New("unknown challenge")
	ErrInvalidAnswer    = errors.New("invalid answer")
)

// Publisher receives progress events for a learner.
type Publisher interface {
	Publish(userID string, event domain.ProgressEvent)
}

// Tracker is the progress service used by the HTML and JSON handlers.
type Tracker struct {
	catalog   *content.Catalog
	repo      store.Repository
	metrics   *metrics.Metrics
	publisher Publisher
	now       func() time.Time
}

// NewTracker creates a tracker. m and pub may be nil.
func NewTracker(catalog *content.Catalog, repo store.Repository, m *metrics.Metrics, pub Publisher) *Tracker {
	return &Tracker{
		catalog:   catalog,
		repo:      repo,
		metrics:   m,
		publisher: pub,
		now:       time.Now,
	}
}

// Catalog returns the content catalog the tracker serves.
func (t *Tracker) Catalog() *content.Catalog {
	return t.catalog
}

// AnswerResult is the outcome of submitting an answer.
type AnswerResult struct {
	Correct         bool                  `json:"correct"`
	LessonCompleted bool                  `json:"lesson_completed"`
	NewlyCompleted  bool                  `json:"newly_completed"`
	Challenges      map[int]bool          `json:"challenges"`
	Next            navigation.NextAction `json:"next"`
}

// SectionView is what a section landing page renders.
type SectionView struct {
	Section   *domain.Section
	Completed domain.CompletionSet
	Next      navigation.NextAction
}

// LessonView is what a lesson page renders.
type LessonView struct {
	Section    *domain.Section
	Lesson     *domain.Lesson
	Index      int
	Completed  domain.CompletionSet
	Challenges map[int]bool
	Next       navigation.NextAction
}

func (t *Tracker) section(slug string) (*domain.Section, error) {
	s := t.catalog.Section(slug)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, slug)
	}
	return s, nil
}

func (t *Tracker) lesson(sectionSlug, lessonSlug string) (*domain.Section, int, error) {
	s, err := t.section(sectionSlug)
	if err != nil {
		return nil, 0, err
	}
	i, ok := s.LessonIndex(lessonSlug)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s/%s", ErrUnknownLesson, sectionSlug, lessonSlug)
	}
	return s, i, nil
}

// Completed returns the learner's completed lessons in a section.
func (t *Tracker) Completed(ctx context.Context, userID, sectionSlug string) (domain.CompletionSet, error) {
	if _, err := t.section(sectionSlug); err != nil {
		return nil, err
	}
	return t.repo.CompletedLessons(ctx, userID, sectionSlug)
}

// Next resolves the next action for a section landing page.
func (t *Tracker) Next(ctx context.Context, userID, sectionSlug string) (navigation.NextAction, error) {
	view, err := t.Section(ctx, userID, sectionSlug)
	if err != nil {
		return navigation.NextAction{}, err
	}
	return view.Next, nil
}

// Section builds the section landing view for a learner.
func (t *Tracker) Section(ctx context.Context, userID, sectionSlug string) (*SectionView, error) {
	s, err := t.section(sectionSlug)
	if err != nil {
		return nil, err
	}
	completed, err := t.repo.CompletedLessons(ctx, userID, sectionSlug)
	if err != nil {
		return nil, fmt.Errorf("load completed lessons: %w", err)
	}
	next, err := navigation.Resolve(s, completed.Has)
	if err != nil {
		return nil, fmt.Errorf("resolve next action for %s: %w", sectionSlug, err)
	}
	return &SectionView{Section: s, Completed: completed, Next: next}, nil
}

// Lesson builds the lesson page view for a learner.
func (t *Tracker) Lesson(ctx context.Context, userID, sectionSlug, lessonSlug string) (*LessonView, error) {
	s, i, err := t.lesson(sectionSlug, lessonSlug)
	if err != nil {
		return nil, err
	}
	completed, err := t.repo.CompletedLessons(ctx, userID, sectionSlug)
	if err != nil {
		return nil, fmt.Errorf("load completed lessons: %w", err)
	}
	status, err := t.repo.ChallengeStatus(ctx, userID, sectionSlug, lessonSlug)
	if err != nil {
		return nil, fmt.Errorf("load challenge status: %w", err)
	}
	next, err := navigation.AfterLesson(s, lessonSlug, completed.Has)
	if err != nil {
		return nil, fmt.Errorf("resolve next action for %s/%s: %w", sectionSlug, lessonSlug, err)
	}
	return &LessonView{
		Section:    s,
		Lesson:     &s.Lessons[i],
		Index:      i,
		Completed:  completed,
		Challenges: status,
		Next:       next,
	}, nil
}

// Answer records an answer to a challenge. Once every challenge of the
// lesson has been answered correctly the lesson is marked complete.
func (t *Tracker) Answer(ctx context.Context, userID, sectionSlug, lessonSlug string, challengeIdx, answerIdx int) (*AnswerResult, error) {
	s, i, err := t.lesson(sectionSlug, lessonSlug)
	if err != nil {
		return nil, err
	}
	lesson := &s.Lessons[i]
	if challengeIdx < 0 || challengeIdx >= len(lesson.Challenges) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChallenge, challengeIdx)
	}
	challenge := &lesson.Challenges[challengeIdx]
	if !challenge.HasAnswer(answerIdx) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAnswer, answerIdx)
	}

	now := t.now()
	correct := challenge.IsCorrect(answerIdx)
	if err := t.repo.RecordAttempt(ctx, domain.ChallengeAttempt{
		UserID:         userID,
		SectionSlug:    sectionSlug,
		LessonSlug:     lessonSlug,
		ChallengeIndex: challengeIdx,
		AnswerIndex:    answerIdx,
		Correct:        correct,
		AnsweredAt:     now,
	}); err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}
	if t.metrics != nil {
		t.metrics.ChallengeAnswers.WithLabelValues(sectionSlug, strconv.FormatBool(correct)).Inc()
	}

	status, err := t.repo.ChallengeStatus(ctx, userID, sectionSlug, lessonSlug)
	if err != nil {
		return nil, fmt.Errorf("load challenge status: %w", err)
	}

	result := &AnswerResult{Correct: correct, Challenges: status}
	if allAnswered(lesson, status) {
		result.LessonCompleted = true
		result.NewlyCompleted, err = t.repo.MarkLessonComplete(ctx, domain.LessonProgress{
			UserID:      userID,
			SectionSlug: sectionSlug,
			LessonSlug:  lessonSlug,
			CompletedAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("mark lesson complete: %w", err)
		}
	}

	view, err := t.Section(ctx, userID, sectionSlug)
	if err != nil {
		return nil, err
	}
	result.Next = view.Next

	if result.NewlyCompleted {
		slog.Info("Lesson completed", "user_id", userID, "section", sectionSlug, "lesson", lessonSlug, "next", result.Next.Href)
		if t.metrics != nil {
			t.metrics.LessonCompletions.WithLabelValues(sectionSlug).Inc()
			if result.Next.State == navigation.Completed {
				t.metrics.CourseCompletions.WithLabelValues(sectionSlug).Inc()
			}
		}
		t.publish(userID, domain.ProgressEvent{
			Type:      domain.EventLessonCompleted,
			Section:   sectionSlug,
			Lesson:    lessonSlug,
			NextLabel: result.Next.Label,
			NextHref:  result.Next.Href,
			At:        now,
		})
	}

	return result, nil
}

// Reset clears a learner's progress for one section, or everything when
// sectionSlug is empty.
func (t *Tracker) Reset(ctx context.Context, userID, sectionSlug string) (int64, error) {
	if sectionSlug != "" {
		if _, err := t.section(sectionSlug); err != nil {
			return 0, err
		}
	}
	removed, err := t.repo.ResetProgress(ctx, userID, sectionSlug)
	if err != nil {
		return 0, fmt.Errorf("reset progress: %w", err)
	}
	slog.Info("Progress reset", "user_id", userID, "section", sectionSlug, "removed", removed)
	if t.metrics != nil {
		t.metrics.ProgressResets.Inc()
	}
	t.publish(userID, domain.ProgressEvent{Type: domain.EventProgressReset, Section: sectionSlug, At: t.now()})
	return removed, nil
}

// Overview returns the next action for every section in the catalog.
func (t *Tracker) Overview(ctx context.Context, userID string) ([]SectionView, error) {
	sections := t.catalog.Sections()
	out := make([]SectionView, 0, len(sections))
	for _, s := range sections {
		view, err := t.Section(ctx, userID, s.Slug)
		if errors.Is(err, navigation.ErrNoLessons) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *view)
	}
	return out, nil
}

// History returns every completion recorded for a learner.
func (t *Tracker) History(ctx context.Context, userID string) ([]domain.LessonProgress, error) {
	return t.repo.ListProgress(ctx, userID)
}

// allAnswered reports whether every current challenge of lesson has a
// correct attempt. Indexes beyond the challenge list are ignored.
func allAnswered(lesson *domain.Lesson, status map[int]bool) bool {
	for i := range lesson.Challenges {
		if !status[i] {
			return false
		}
	}
	return true
}

func (t *Tracker) publish(userID string, event domain.ProgressEvent) {
	if t.publisher != nil {
		t.publisher.Publish(userID, event)
	}
}
