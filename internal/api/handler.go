// Package api provides the JSON HTTP API of learnpath.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/learnpath/internal/navigation"
	"github.com/ashureev/learnpath/internal/progress"
	"github.com/ashureev/learnpath/internal/store"
	"github.com/go-chi/chi/v5"
)

// Handler serves course and progress endpoints.
type Handler struct {
	repo    store.Repository
	tracker *progress.Tracker
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, tracker *progress.Tracker) *Handler {
	return &Handler{repo: repo, tracker: tracker}
}

// RegisterRoutes registers the API routes under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/sections", h.ListSections)
		r.Get("/sections/{section}", h.GetSection)
		r.Get("/sections/{section}/next", h.GetNext)
		r.Post("/sections/{section}/lessons/{lesson}/answers", h.SubmitAnswer)
		r.Get("/progress", h.GetProgress)
		r.Post("/progress/reset", h.ResetProgress)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps tracker errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progress.ErrUnknownSection):
		Error(w, http.StatusNotFound, "section_not_found")
	case errors.Is(err, progress.ErrUnknownLesson):
		Error(w, http.StatusNotFound, "lesson_not_found")
	case errors.Is(err, navigation.ErrNoLessons):
		Error(w, http.StatusNotFound, "section_has_no_lessons")
	case errors.Is(err, progress.ErrUnknownChallenge):
		Error(w, http.StatusBadRequest, "challenge_not_found")
	case errors.Is(err, progress.ErrInvalidAnswer):
		Error(w, http.StatusBadRequest, "invalid_answer")
	default:
		slog.Error("API request failed", "error", err)
		Error(w, http.StatusInternalServerError, "internal_error")
	}
}
