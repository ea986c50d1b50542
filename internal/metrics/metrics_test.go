package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.LessonCompletions.WithLabelValues("intro").Inc()

	if got := testutil.ToFloat64(a.LessonCompletions.WithLabelValues("intro")); got != 1 {
		t.Errorf("a completions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(b.LessonCompletions.WithLabelValues("intro")); got != 0 {
		t.Errorf("b completions = %v, want 0", got)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.ChallengeAnswers.WithLabelValues("intro", "true").Inc()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rr.Result().Body)
	if !strings.Contains(string(body), `learnpath_progress_challenge_answers_total{correct="true",section="intro"} 1`) {
		t.Errorf("metrics output missing challenge answers:\n%s", body)
	}
}
