package domain

import (
	"sort"
	"time"
)

// Learner is an anonymous per-browser identity that owns progress.
type Learner struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Idle reports whether the learner has not been seen within ttl.
func (l *Learner) Idle(ttl time.Duration, now time.Time) bool {
	return now.Sub(l.LastSeenAt) > ttl
}

// LessonProgress records that a learner completed a lesson.
type LessonProgress struct {
	UserID      string    `json:"user_id"`
	SectionSlug string    `json:"section"`
	LessonSlug  string    `json:"lesson"`
	CompletedAt time.Time `json:"completed_at"`
}

// ChallengeAttempt records a single answer submitted for a challenge.
type ChallengeAttempt struct {
	UserID         string
	SectionSlug    string
	LessonSlug     string
	ChallengeIndex int
	AnswerIndex    int
	Correct        bool
	AnsweredAt     time.Time
}

// CompletionSet is the set of completed lesson slugs within one section.
// It only grows: there is no way to remove a slug once added.
type CompletionSet map[string]struct{}

// NewCompletionSet builds a set from the given lesson slugs.
func NewCompletionSet(slugs ...string) CompletionSet {
	set := make(CompletionSet, len(slugs))
	for _, s := range slugs {
		set[s] = struct{}{}
	}
	return set
}

// Has reports whether the lesson slug is complete.
func (c CompletionSet) Has(slug string) bool {
	_, ok := c[slug]
	return ok
}

// Add marks the lesson slug complete.
func (c CompletionSet) Add(slug string) {
	c[slug] = struct{}{}
}

// Len returns the number of completed lessons.
func (c CompletionSet) Len() int {
	return len(c)
}

// Slugs returns the completed lesson slugs in sorted order.
func (c CompletionSet) Slugs() []string {
	out := make([]string, 0, len(c))
	for s := range c {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Progress event types.
const (
	EventLessonCompleted = "lesson_completed"
	EventProgressReset   = "progress_reset"
)

// ProgressEvent notifies a learner's open pages that their progress changed.
type ProgressEvent struct {
	Type      string    `json:"type"`
	Section   string    `json:"section,omitempty"`
	Lesson    string    `json:"lesson,omitempty"`
	NextLabel string    `json:"next_label,omitempty"`
	NextHref  string    `json:"next_href,omitempty"`
	At        time.Time `json:"at"`
}
