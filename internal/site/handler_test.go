package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ashureev/learnpath/internal/content"
	"github.com/ashureev/learnpath/internal/domain"
	"github.com/ashureev/learnpath/internal/identity"
	"github.com/ashureev/learnpath/internal/navigation"
	"github.com/ashureev/learnpath/internal/progress"
	"github.com/ashureev/learnpath/internal/store"
	"github.com/ashureev/learnpath/web"
	"github.com/go-chi/chi/v5"
)

const testUser = "u1"

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "site.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	now := time.Now()
	if err := repo.UpsertLearner(context.Background(), &domain.Learner{
		UserID: testUser, Username: "anon-u1", LastSeenAt: now, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed learner: %v", err)
	}

	catalog := content.NewCatalog(
		domain.Section{
			Slug:  "basics",
			Title: "Basics",
			Lessons: []domain.Lesson{
				{Slug: "one", Title: "One", Challenges: []domain.Challenge{{Question: "Q1", Answers: []string{"a", "b"}, CorrectAnswerIndex: 1}}},
				{Slug: "two", Title: "Two", Challenges: []domain.Challenge{
					{Question: "Q2", Answers: []string{"a", "b"}, CorrectAnswerIndex: 0},
					{Question: "Q3", Answers: []string{"a", "b"}, CorrectAnswerIndex: 1},
				}},
			},
		},
		domain.Section{Slug: "empty", Title: "Empty"},
	)

	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), testUser)))
		})
	})
	NewHandler(progress.NewTracker(catalog, repo, nil, nil), renderer).RegisterRoutes(r)
	return r
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, *goquery.Document) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(w.Body.String()))
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return w, doc
}

func post(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func answer(challenge, ans string) url.Values {
	return url.Values{"challenge": {challenge}, "answer": {ans}}
}

func nextButton(doc *goquery.Document) (string, string) {
	sel := doc.Find(`[data-test="next-lesson-button"]`)
	href, _ := sel.Attr("href")
	return sel.Text(), href
}

func TestSection_StartCourse(t *testing.T) {
	h := newRouter(t)

	w, doc := get(t, h, "/basics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	label, href := nextButton(doc)
	if label != navigation.LabelStart || href != "/basics/one" {
		t.Errorf("next = %q %q", label, href)
	}
	if !doc.Find(`[data-test="section-lesson-complete-0"]`).HasClass("bg-gray-300") {
		t.Error("expected first lesson indicator to be incomplete")
	}
}

func TestAnswer_RedirectsWithResult(t *testing.T) {
	h := newRouter(t)

	w := post(t, h, "/basics/one/answer", answer("0", "0"))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/basics/one?result=incorrect" {
		t.Errorf("Location = %q", loc)
	}

	w = post(t, h, "/basics/one/answer", answer("0", "1"))
	if loc := w.Header().Get("Location"); loc != "/basics/one?result=correct" {
		t.Errorf("Location = %q", loc)
	}

	_, doc := get(t, h, "/basics/one?result=correct")
	if got := doc.Find(`[data-test="answer-feedback"]`).Text(); got != "Correct!" {
		t.Errorf("feedback = %q", got)
	}
	if !doc.Find(`[data-test="lesson-complete-0"]`).HasClass("bg-indigo-600") {
		t.Error("expected challenge indicator to be complete")
	}

	_, doc = get(t, h, "/basics")
	if label, href := nextButton(doc); label != navigation.LabelNext || href != "/basics/two" {
		t.Errorf("next = %q %q", label, href)
	}
}

func TestLesson_RequiresEveryChallenge(t *testing.T) {
	h := newRouter(t)
	post(t, h, "/basics/one/answer", answer("0", "1"))
	post(t, h, "/basics/two/answer", answer("0", "0"))

	_, doc := get(t, h, "/basics/two")
	if !doc.Find(`[data-test="lesson-complete-0"]`).HasClass("bg-indigo-600") {
		t.Error("challenge 0 should be complete")
	}
	if !doc.Find(`[data-test="lesson-complete-1"]`).HasClass("bg-gray-300") {
		t.Error("challenge 1 should be incomplete")
	}
	if doc.Find("#answer-1-1").Length() != 1 {
		t.Error("expected answer-1-1 button for the second challenge")
	}

	_, doc = get(t, h, "/basics")
	if label, _ := nextButton(doc); label != navigation.LabelNext {
		t.Errorf("label = %q", label)
	}

	post(t, h, "/basics/two/answer", answer("1", "1"))
	_, doc = get(t, h, "/basics")
	if label, href := nextButton(doc); label != navigation.LabelCompleted || href != "/" {
		t.Errorf("next = %q %q", label, href)
	}
}

func TestNotFound(t *testing.T) {
	h := newRouter(t)

	for _, path := range []string{"/missing", "/basics/missing", "/empty"} {
		w, doc := get(t, h, path)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d", path, w.Code)
		}
		if doc.Find(`[data-test="not-found"]`).Length() != 1 {
			t.Errorf("%s: expected not found page", path)
		}
	}
}

func TestAnswer_BadInput(t *testing.T) {
	h := newRouter(t)

	tests := []struct {
		name string
		form url.Values
	}{
		{"non numeric challenge", answer("x", "0")},
		{"missing answer", url.Values{"challenge": {"0"}}},
		{"unknown challenge", answer("5", "0")},
		{"answer out of range", answer("0", "7")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := post(t, h, "/basics/one/answer", tt.form); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d", w.Code)
			}
		})
	}
}

func TestAnswer_RejectsOversizedForm(t *testing.T) {
	h := newRouter(t)

	form := answer("0", "1")
	form.Set("padding", strings.Repeat("x", 2*maxFormBytes))
	if w := post(t, h, "/basics/one/answer", form); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}

	_, doc := get(t, h, "/basics")
	if label, _ := nextButton(doc); label != navigation.LabelStart {
		t.Errorf("oversized form must not record progress, label = %q", label)
	}
}

func TestLesson_AnswerHooksAreUnique(t *testing.T) {
	h := newRouter(t)

	_, doc := get(t, h, "/basics/two")
	seen := make(map[string]bool)
	doc.Find(`[data-test^="challenge-answer-"]`).Each(func(_ int, s *goquery.Selection) {
		hook, _ := s.Attr("data-test")
		if seen[hook] {
			t.Errorf("duplicate data-test %q", hook)
		}
		seen[hook] = true
	})
	for _, hook := range []string{"challenge-answer-0", "challenge-answer-1", "challenge-answer-1-0", "challenge-answer-1-1"} {
		if !seen[hook] {
			t.Errorf("missing data-test %q", hook)
		}
	}
}

func TestHome_SkipsEmptySections(t *testing.T) {
	h := newRouter(t)

	_, doc := get(t, h, "/")
	if doc.Find(`[data-test="section-basics"]`).Length() != 1 {
		t.Error("expected basics on home page")
	}
	if doc.Find(`[data-test="section-empty"]`).Length() != 0 {
		t.Error("empty section should not be listed")
	}
	if got := doc.Find(`[data-test="section-state-basics"]`).Text(); got != "not_started" {
		t.Errorf("state = %q", got)
	}
}
