// Package navigation computes the progress-aware "next action" control
// shown on section and lesson pages.
package navigation

import (
	"errors"
	"fmt"

	"github.com/ashureev/learnpath/internal/domain"
)

// Labels rendered on the next action control.
const (
	LabelStart     = "Start Course"
	LabelNext      = "Next Lesson"
	LabelCompleted = "Course Completed"
)

// HomePath is where a completed course points.
const HomePath = "/"

// ErrNoLessons is returned when a section has nothing to navigate to.
var ErrNoLessons = errors.New("section has no lessons")

// State classifies a learner's progress through one section.
type State int

const (
	NotStarted State = iota
	InProgress
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state as its string name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state from its string name.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "not_started":
		*s = NotStarted
	case "in_progress":
		*s = InProgress
	case "completed":
		*s = Completed
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// Predicate reports whether the lesson with the given slug is complete.
type Predicate func(lessonSlug string) bool

// FromSet adapts a completion set into a Predicate.
func FromSet(set domain.CompletionSet) Predicate {
	return set.Has
}

// NextAction is the label and destination of the next action control.
type NextAction struct {
	State State  `json:"state"`
	Label string `json:"label"`
	Href  string `json:"href"`
}

// Classify returns the progress state of the section.
func Classify(section *domain.Section, completed Predicate) State {
	done := 0
	for i := range section.Lessons {
		if completed(section.Lessons[i].Slug) {
			done++
		}
	}
	switch {
	case done == 0:
		return NotStarted
	case done < len(section.Lessons):
		return InProgress
	default:
		return Completed
	}
}

// Resolve computes the next action for a section landing page.
// Nothing complete starts at the first lesson, partial progress points at
// the first incomplete lesson in order, and full completion points home.
func Resolve(section *domain.Section, completed Predicate) (NextAction, error) {
	if len(section.Lessons) == 0 {
		return NextAction{}, ErrNoLessons
	}

	switch Classify(section, completed) {
	case NotStarted:
		return NextAction{State: NotStarted, Label: LabelStart, Href: section.LessonPath(0)}, nil
	case InProgress:
		for i := range section.Lessons {
			if !completed(section.Lessons[i].Slug) {
				return NextAction{State: InProgress, Label: LabelNext, Href: section.LessonPath(i)}, nil
			}
		}
	}
	return NextAction{State: Completed, Label: LabelCompleted, Href: HomePath}, nil
}

// AfterLesson computes the next action for a lesson page. It links to the
// following lesson; on the last lesson it defers to Resolve so a finished
// course points home and an unfinished one points back at the gap.
func AfterLesson(section *domain.Section, lessonSlug string, completed Predicate) (NextAction, error) {
	i, ok := section.LessonIndex(lessonSlug)
	if !ok || i == len(section.Lessons)-1 {
		return Resolve(section, completed)
	}
	return NextAction{
		State: Classify(section, completed),
		Label: LabelNext,
		Href:  section.LessonPath(i + 1),
	}, nil
}
