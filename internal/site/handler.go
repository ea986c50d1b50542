// Package site serves the server-rendered course pages.
package site

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/learnpath/internal/identity"
	"github.com/ashureev/learnpath/internal/navigation"
	"github.com/ashureev/learnpath/internal/progress"
	"github.com/ashureev/learnpath/web"
	"github.com/go-chi/chi/v5"
)

// maxFormBytes bounds the answer form body.
const maxFormBytes = 1 << 12

const (
	resultParam     = "result"
	resultCorrect   = "correct"
	resultIncorrect = "incorrect"
)

// Handler renders the home, section and lesson pages.
type Handler struct {
	tracker  *progress.Tracker
	renderer *web.Renderer
}

// NewHandler creates a page handler.
func NewHandler(tracker *progress.Tracker, renderer *web.Renderer) *Handler {
	return &Handler{tracker: tracker, renderer: renderer}
}

// RegisterRoutes registers page routes. Register it after every fixed
// prefix, since section slugs are matched at the root.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/{section}", h.Section)
	r.Get("/{section}/{lesson}", h.Lesson)
	r.Post("/{section}/{lesson}/answer", h.Answer)
}

type homePage struct {
	Sections []progress.SectionView
}

type lessonPage struct {
	*progress.LessonView
	Flash string
}

type notFoundPage struct {
	Message string
}

// Home lists every course with the learner's state in it.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	views, err := h.tracker.Overview(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderer.Render(w, http.StatusOK, web.PageHome, homePage{Sections: views})
}

// Section renders a course landing page with its next action control.
func (h *Handler) Section(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	view, err := h.tracker.Section(r.Context(), userID, chi.URLParam(r, "section"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderer.Render(w, http.StatusOK, web.PageSection, view)
}

// Lesson renders a lesson with its challenges.
func (h *Handler) Lesson(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	view, err := h.tracker.Lesson(r.Context(), userID, chi.URLParam(r, "section"), chi.URLParam(r, "lesson"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	page := lessonPage{LessonView: view}
	switch r.URL.Query().Get(resultParam) {
	case resultCorrect:
		page.Flash = "Correct!"
	case resultIncorrect:
		page.Flash = "Not quite, try again."
	}
	h.renderer.Render(w, http.StatusOK, web.PageLesson, page)
}

// Answer records a submitted answer and redirects back to the lesson.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	challenge, err := strconv.Atoi(r.PostForm.Get("challenge"))
	if err != nil {
		http.Error(w, "invalid challenge", http.StatusBadRequest)
		return
	}
	answer, err := strconv.Atoi(r.PostForm.Get("answer"))
	if err != nil {
		http.Error(w, "invalid answer", http.StatusBadRequest)
		return
	}

	sectionSlug := chi.URLParam(r, "section")
	lessonSlug := chi.URLParam(r, "lesson")
	userID := identity.UserIDFromContext(r.Context())

	res, err := h.tracker.Answer(r.Context(), userID, sectionSlug, lessonSlug, challenge, answer)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result := resultIncorrect
	if res.Correct {
		result = resultCorrect
	}
	section := h.tracker.Catalog().Section(sectionSlug)
	i, _ := section.LessonIndex(lessonSlug)
	http.Redirect(w, r, section.LessonPath(i)+"?"+resultParam+"="+result, http.StatusSeeOther)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, progress.ErrUnknownSection), errors.Is(err, progress.ErrUnknownLesson):
		h.renderer.Render(w, http.StatusNotFound, web.PageNotFound, notFoundPage{Message: "We couldn't find that course or lesson."})
	case errors.Is(err, navigation.ErrNoLessons):
		h.renderer.Render(w, http.StatusNotFound, web.PageNotFound, notFoundPage{Message: "This course has no lessons yet."})
	case errors.Is(err, progress.ErrUnknownChallenge), errors.Is(err, progress.ErrInvalidAnswer):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("Page request failed", "error", err, "path", r.URL.Path)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
