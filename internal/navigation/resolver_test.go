package navigation

import (
	"errors"
	"testing"

	"github.com/ashureev/learnpath/internal/domain"
)

func fundamentals() *domain.Section {
	return &domain.Section{
		Slug: "cypress-fundamentals",
		Lessons: []domain.Lesson{
			{Slug: "cypress-runs-in-the-browser"},
			{Slug: "command-chaining"},
			{Slug: "retry-ability"},
		},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		completed []string
		want      NextAction
	}{
		{
			name: "nothing completed starts the course",
			want: NextAction{NotStarted, LabelStart, "/cypress-fundamentals/cypress-runs-in-the-browser"},
		},
		{
			name:      "first lesson completed points at the second",
			completed: []string{"cypress-runs-in-the-browser"},
			want:      NextAction{InProgress, LabelNext, "/cypress-fundamentals/command-chaining"},
		},
		{
			name:      "contiguous prefix points past the prefix",
			completed: []string{"cypress-runs-in-the-browser", "command-chaining"},
			want:      NextAction{InProgress, LabelNext, "/cypress-fundamentals/retry-ability"},
		},
		{
			name:      "gap is resolved to the first incomplete lesson",
			completed: []string{"cypress-runs-in-the-browser", "retry-ability"},
			want:      NextAction{InProgress, LabelNext, "/cypress-fundamentals/command-chaining"},
		},
		{
			name:      "only a later lesson completed points at the first",
			completed: []string{"retry-ability"},
			want:      NextAction{InProgress, LabelNext, "/cypress-fundamentals/cypress-runs-in-the-browser"},
		},
		{
			name:      "all completed points home",
			completed: []string{"cypress-runs-in-the-browser", "command-chaining", "retry-ability"},
			want:      NextAction{Completed, LabelCompleted, "/"},
		},
		{
			name:      "slugs from other sections are ignored",
			completed: []string{"some-other-lesson"},
			want:      NextAction{NotStarted, LabelStart, "/cypress-fundamentals/cypress-runs-in-the-browser"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(fundamentals(), FromSet(domain.NewCompletionSet(tt.completed...)))
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	section := fundamentals()
	pred := FromSet(domain.NewCompletionSet("cypress-runs-in-the-browser"))

	first, err := Resolve(section, pred)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Resolve(section, pred)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if again != first {
			t.Fatalf("Resolve() call %d = %+v, want %+v", i, again, first)
		}
	}
}

func TestResolve_EmptySection(t *testing.T) {
	_, err := Resolve(&domain.Section{Slug: "empty"}, func(string) bool { return true })
	if !errors.Is(err, ErrNoLessons) {
		t.Fatalf("expected ErrNoLessons, got %v", err)
	}
}

func TestClassify_WalksAllStates(t *testing.T) {
	section := fundamentals()
	set := domain.NewCompletionSet()

	if got := Classify(section, set.Has); got != NotStarted {
		t.Fatalf("initial state = %v", got)
	}
	for i, lesson := range section.Lessons {
		set.Add(lesson.Slug)
		want := InProgress
		if i == len(section.Lessons)-1 {
			want = Completed
		}
		if got := Classify(section, set.Has); got != want {
			t.Errorf("after %d completions state = %v, want %v", i+1, got, want)
		}
	}
}

func TestAfterLesson(t *testing.T) {
	section := fundamentals()

	got, err := AfterLesson(section, "cypress-runs-in-the-browser", FromSet(domain.NewCompletionSet()))
	if err != nil {
		t.Fatalf("AfterLesson() error: %v", err)
	}
	if got.Label != LabelNext || got.Href != "/cypress-fundamentals/command-chaining" {
		t.Errorf("middle lesson = %+v", got)
	}

	all := domain.NewCompletionSet("cypress-runs-in-the-browser", "command-chaining", "retry-ability")
	got, err = AfterLesson(section, "retry-ability", FromSet(all))
	if err != nil {
		t.Fatalf("AfterLesson() error: %v", err)
	}
	if got.Label != LabelCompleted || got.Href != HomePath {
		t.Errorf("last lesson, all complete = %+v", got)
	}

	partial := domain.NewCompletionSet("retry-ability")
	got, err = AfterLesson(section, "retry-ability", FromSet(partial))
	if err != nil {
		t.Fatalf("AfterLesson() error: %v", err)
	}
	if got.Href != "/cypress-fundamentals/cypress-runs-in-the-browser" {
		t.Errorf("last lesson with gap = %+v", got)
	}
}

func TestState_MarshalText(t *testing.T) {
	b, err := InProgress.MarshalText()
	if err != nil || string(b) != "in_progress" {
		t.Errorf("MarshalText() = %q, %v", b, err)
	}
	if State(42).String() != "unknown" {
		t.Error("expected unknown for out of range state")
	}
}

func TestState_UnmarshalText(t *testing.T) {
	for _, want := range []State{NotStarted, InProgress, Completed} {
		b, _ := want.MarshalText()
		var got State
		if err := got.UnmarshalText(b); err != nil || got != want {
			t.Errorf("UnmarshalText(%q) = %v, %v", b, got, err)
		}
	}
	var s State
	if err := s.UnmarshalText([]byte("halfway")); err == nil {
		t.Error("expected error for unknown state name")
	}
}
