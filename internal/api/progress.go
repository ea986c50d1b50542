package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ashureev/learnpath/internal/domain"
	"github.com/ashureev/learnpath/internal/identity"
	"github.com/ashureev/learnpath/internal/navigation"
	"github.com/go-chi/chi/v5"
)

type sectionSummary struct {
	Slug        string                `json:"slug"`
	Title       string                `json:"title"`
	LessonCount int                   `json:"lesson_count"`
	Completed   int                   `json:"completed"`
	Next        navigation.NextAction `json:"next"`
}

type lessonSummary struct {
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Path       string `json:"path"`
	Challenges int    `json:"challenges"`
	Completed  bool   `json:"completed"`
}

type sectionDetail struct {
	sectionSummary
	Description string          `json:"description,omitempty"`
	Lessons     []lessonSummary `json:"lessons"`
}

type answerRequest struct {
	Challenge *int `json:"challenge"`
	Answer    *int `json:"answer"`
}

type resetRequest struct {
	Section string `json:"section"`
}

// GetMe returns the current learner.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	learner, err := h.repo.GetLearner(r.Context(), userID)
	if err != nil || learner == nil {
		Error(w, http.StatusUnauthorized, "learner not found")
		return
	}
	JSON(w, http.StatusOK, learner)
}

// ListSections returns every section with the learner's next action.
func (h *Handler) ListSections(w http.ResponseWriter, r *http.Request) {
	views, err := h.tracker.Overview(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]sectionSummary, 0, len(views))
	for _, v := range views {
		out = append(out, sectionSummary{
			Slug:        v.Section.Slug,
			Title:       v.Section.Title,
			LessonCount: len(v.Section.Lessons),
			Completed:   v.Completed.Len(),
			Next:        v.Next,
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"sections": out})
}

// GetSection returns one section with per-lesson completion.
func (h *Handler) GetSection(w http.ResponseWriter, r *http.Request) {
	view, err := h.tracker.Section(r.Context(), identity.UserIDFromContext(r.Context()), chi.URLParam(r, "section"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s := view.Section
	detail := sectionDetail{
		sectionSummary: sectionSummary{
			Slug:        s.Slug,
			Title:       s.Title,
			LessonCount: len(s.Lessons),
			Completed:   view.Completed.Len(),
			Next:        view.Next,
		},
		Description: s.Description,
		Lessons:     make([]lessonSummary, 0, len(s.Lessons)),
	}
	for i, l := range s.Lessons {
		detail.Lessons = append(detail.Lessons, lessonSummary{
			Slug:       l.Slug,
			Title:      l.Title,
			Path:       s.LessonPath(i),
			Challenges: len(l.Challenges),
			Completed:  view.Completed.Has(l.Slug),
		})
	}
	JSON(w, http.StatusOK, detail)
}

// GetNext returns the next action for a section.
func (h *Handler) GetNext(w http.ResponseWriter, r *http.Request) {
	next, err := h.tracker.Next(r.Context(), identity.UserIDFromContext(r.Context()), chi.URLParam(r, "section"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, next)
}

// SubmitAnswer records an answer to one challenge of a lesson.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Challenge == nil || req.Answer == nil {
		Error(w, http.StatusBadRequest, "challenge_and_answer_required")
		return
	}

	res, err := h.tracker.Answer(r.Context(), identity.UserIDFromContext(r.Context()),
		chi.URLParam(r, "section"), chi.URLParam(r, "lesson"), *req.Challenge, *req.Answer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, res)
}

// GetProgress returns every completion of the learner.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	history, err := h.tracker.History(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if history == nil {
		history = []domain.LessonProgress{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"completed": history})
}

// ResetProgress clears the learner's progress for one section or all of them.
func (h *Handler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	// An empty body resets every section.
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		Error(w, http.StatusBadRequest, "invalid_request")
		return
	}

	removed, err := h.tracker.Reset(r.Context(), identity.UserIDFromContext(r.Context()), req.Section)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"status": "reset", "removed": removed})
}
