// Package identity provides anonymous per-browser learner identity.
// Progress is scoped to this identity, so clearing the cookie starts over.
package identity

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ashureev/learnpath/internal/domain"
	"github.com/ashureev/learnpath/internal/store"
	"github.com/google/uuid"
)

const (
	CookieName      = "learn_anon_id"
	cookieMaxAge    = 30 * 24 * time.Hour
	touchInterval   = 5 * time.Minute
	anonIDPrefix    = "anon_"
	defaultUsername = "anon-learner"
)

type contextKey int

const (
	userIDKey contextKey = iota
	usernameKey
)

var anonIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// UserIDFromContext extracts the learner ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// UsernameFromContext extracts the display name from the request context.
func UsernameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// WithUser returns a context carrying the given learner identity.
func WithUser(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, usernameKey, DeriveUsername(userID))
}

// NewAnonID returns a fresh anonymous learner ID.
func NewAnonID() string {
	return anonIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsValidAnonID reports whether id has the anonymous learner ID shape.
func IsValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

// DeriveUsername builds a stable display name from a learner ID.
func DeriveUsername(userID string) string {
	if len(userID) > 13 {
		return "anon-" + userID[len(userID)-8:]
	}
	return defaultUsername
}

func ensureLearner(ctx context.Context, repo store.Repository, userID string) error {
	learner, err := repo.GetLearner(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	if learner != nil {
		if now.Sub(learner.LastSeenAt) > touchInterval {
			return repo.UpdateLastSeen(ctx, userID, now)
		}
		return nil
	}

	return repo.UpsertLearner(ctx, &domain.Learner{
		UserID:     userID,
		Username:   DeriveUsername(userID),
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func setCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Expires:  time.Now().Add(cookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

func getOrCreateAnonID(w http.ResponseWriter, r *http.Request, isDev bool) string {
	id := ""
	if c, err := r.Cookie(CookieName); err == nil && IsValidAnonID(c.Value) {
		id = c.Value
	} else {
		id = NewAnonID()
	}
	// Refresh on every request so active learners keep a sliding expiry.
	setCookie(w, id, !isDev)
	return id
}

// Middleware injects the anonymous learner identity into each request.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := getOrCreateAnonID(w, r, isDev)

			if err := ensureLearner(r.Context(), repo, userID); err != nil {
				slog.Error("Failed to initialize learner", "error", err, "user_id", userID)
				http.Error(w, "failed to initialize learner", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}
