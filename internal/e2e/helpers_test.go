package e2e

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ashureev/learnpath/internal/config"
	"github.com/ashureev/learnpath/internal/content"
	"github.com/ashureev/learnpath/internal/domain"
	"github.com/ashureev/learnpath/internal/server"
	"github.com/ashureev/learnpath/internal/store"
	"github.com/stretchr/testify/require"
)

const fundamentals = "cypress-fundamentals"

func testConfig(dbPath string) *config.Config {
	return &config.Config{
		Port:           "0",
		DBPath:         dbPath,
		AllowedOrigins: []string{"*"},
		MetricsEnabled: true,
		Timeout: config.TimeoutConfig{
			HealthCheck: time.Second,
			Shutdown:    time.Second,
		},
	}
}

// site is a running application backed by a fresh database.
type site struct {
	srv     *httptest.Server
	catalog *content.Catalog
	app     *server.App
}

func newSite(t *testing.T) *site {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "e2e.db")
	repo, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	catalog, err := content.Default()
	require.NoError(t, err)

	app, err := server.New(testConfig(dbPath), repo, catalog)
	require.NoError(t, err)

	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)
	return &site{srv: srv, catalog: catalog, app: app}
}

func (s *site) section(t *testing.T, slug string) *domain.Section {
	t.Helper()
	sec := s.catalog.Section(slug)
	require.NotNil(t, sec, "section %s", slug)
	return sec
}

// Snapshot is the persisted progress of a visitor: its identity cookie.
type Snapshot []*http.Cookie

// Visitor is one browser profile. Its progress lives behind the cookie jar.
type Visitor struct {
	t      *testing.T
	site   *site
	base   *url.URL
	client *http.Client
}

func (s *site) newVisitor(t *testing.T) *Visitor {
	t.Helper()
	base, err := url.Parse(s.srv.URL)
	require.NoError(t, err)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &Visitor{t: t, site: s, base: base, client: &http.Client{Jar: jar, Timeout: 5 * time.Second}}
}

// Snapshot saves the visitor's persisted state.
func (v *Visitor) Snapshot() Snapshot {
	return Snapshot(v.client.Jar.Cookies(v.base))
}

// Restore replaces the visitor's persisted state with snap.
func (v *Visitor) Restore(snap Snapshot) {
	jar, err := cookiejar.New(nil)
	require.NoError(v.t, err)
	jar.SetCookies(v.base, snap)
	v.client.Jar = jar
}

// Visit loads path and returns the parsed page.
func (v *Visitor) Visit(path string) *goquery.Document {
	v.t.Helper()
	resp, err := v.client.Get(v.site.srv.URL + path)
	require.NoError(v.t, err)
	return v.parse(resp, http.StatusOK)
}

// VisitStatus loads path and returns only the status code.
func (v *Visitor) VisitStatus(path string) int {
	v.t.Helper()
	resp, err := v.client.Get(v.site.srv.URL + path)
	require.NoError(v.t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func (v *Visitor) parse(resp *http.Response, want int) *goquery.Document {
	v.t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.Equal(v.t, want, resp.StatusCode, "GET %s", resp.Request.URL)
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(v.t, err)
	return doc
}

// Click submits the form owning the button matched by selector, the way a
// browser does, and returns the page it lands on.
func (v *Visitor) Click(doc *goquery.Document, selector string) *goquery.Document {
	v.t.Helper()
	button := doc.Find(selector).First()
	require.Equal(v.t, 1, button.Length(), "no element matches %s", selector)

	form := button.Closest("form")
	require.Equal(v.t, 1, form.Length(), "%s is not inside a form", selector)

	values := url.Values{}
	form.Find("input[type=hidden]").Each(func(_ int, in *goquery.Selection) {
		name, _ := in.Attr("name")
		value, _ := in.Attr("value")
		values.Add(name, value)
	})
	if name, ok := button.Attr("name"); ok {
		value, _ := button.Attr("value")
		values.Set(name, value)
	}

	action, _ := form.Attr("action")
	resp, err := v.client.PostForm(v.site.srv.URL+action, values)
	require.NoError(v.t, err)
	return v.parse(resp, http.StatusOK)
}

// Follow clicks the next action control on doc and returns the page it
// lands on together with the final path after redirects.
func (v *Visitor) Follow(doc *goquery.Document) (*goquery.Document, string) {
	v.t.Helper()
	_, href := nextButton(v.t, doc)
	resp, err := v.client.Get(v.site.srv.URL + href)
	require.NoError(v.t, err)
	path := resp.Request.URL.Path
	return v.parse(resp, http.StatusOK), path
}

// AnswerAll answers every challenge on the lesson page doc correctly.
func (v *Visitor) AnswerAll(doc *goquery.Document, lesson *domain.Lesson) *goquery.Document {
	v.t.Helper()
	for ci, c := range lesson.Challenges {
		doc = v.Click(doc, answerSelector(ci, c.CorrectAnswerIndex))
	}
	return doc
}

// CompleteLesson answers every challenge of lesson i correctly.
func (v *Visitor) CompleteLesson(section *domain.Section, i int) *goquery.Document {
	v.t.Helper()
	return v.AnswerAll(v.Visit(section.LessonPath(i)), &section.Lessons[i])
}

// answerSelector mirrors the button ids on lesson pages: the first
// challenge uses answer-{a}, later ones answer-{c}-{a}.
func answerSelector(challenge, answer int) string {
	if challenge == 0 {
		return "#answer-" + strconv.Itoa(answer)
	}
	return "#answer-" + strconv.Itoa(challenge) + "-" + strconv.Itoa(answer)
}

// nextButton returns the label and target of the next action control.
func nextButton(t *testing.T, doc *goquery.Document) (string, string) {
	t.Helper()
	sel := doc.Find(`[data-test="next-lesson-button"]`)
	require.Equal(t, 1, sel.Length(), "expected exactly one next action control")
	href, ok := sel.Attr("href")
	require.True(t, ok, "next action control has no href")
	return sel.Text(), href
}

func hasClass(doc *goquery.Document, selector, class string) bool {
	return doc.Find(selector).HasClass(class)
}
