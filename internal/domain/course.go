// Package domain contains core domain types for the learnpath application.
package domain

// Section is a named group of ordered lessons forming a course.
// Lesson order is significant: it defines what "next" means.
type Section struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Lessons     []Lesson `json:"lessons"`
}

// Lesson is a single content unit within a section.
type Lesson struct {
	Slug       string      `json:"slug"`
	Title      string      `json:"title"`
	Content    string      `json:"content,omitempty"`
	Challenges []Challenge `json:"challenges"`
}

// Challenge is a single multiple-choice question within a lesson.
type Challenge struct {
	Question           string   `json:"question"`
	Answers            []string `json:"answers"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
}

// Path returns the landing page path of the section.
func (s *Section) Path() string {
	return "/" + s.Slug
}

// LessonPath returns the page path for the lesson at index i.
func (s *Section) LessonPath(i int) string {
	return s.Path() + "/" + s.Lessons[i].Slug
}

// LessonIndex returns the position of the lesson with the given slug.
func (s *Section) LessonIndex(slug string) (int, bool) {
	for i := range s.Lessons {
		if s.Lessons[i].Slug == slug {
			return i, true
		}
	}
	return -1, false
}

// Lesson returns the lesson with the given slug, or nil.
func (s *Section) Lesson(slug string) *Lesson {
	if i, ok := s.LessonIndex(slug); ok {
		return &s.Lessons[i]
	}
	return nil
}

// IsCorrect reports whether answer is the designated correct option.
func (c *Challenge) IsCorrect(answer int) bool {
	return answer == c.CorrectAnswerIndex
}

// HasAnswer reports whether answer addresses one of the challenge options.
func (c *Challenge) HasAnswer(answer int) bool {
	return answer >= 0 && answer < len(c.Answers)
}
