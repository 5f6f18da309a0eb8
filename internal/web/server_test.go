package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"spcrud-cli/internal/emulator"
	"spcrud-cli/internal/splist"
	"spcrud-cli/internal/store"
	"spcrud-cli/internal/webpart"
)

func newTestWeb(t *testing.T, titles ...string) *httptest.Server {
	t.Helper()
	lists := store.NewMemory()
	if err := emulator.Seed(context.Background(), lists, "Tasks", titles...); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	api, err := emulator.New(lists, emulator.Config{})
	if err != nil {
		t.Fatalf("emulator.New: %v", err)
	}
	apiSrv := httptest.NewServer(api.Handler())
	t.Cleanup(apiSrv.Close)

	c, err := splist.New(apiSrv.URL, splist.WithHTTPClient(apiSrv.Client()))
	if err != nil {
		t.Fatalf("splist.New: %v", err)
	}
	srv, err := NewServer(webpart.NewController(c), ServerConfig{SiteURL: apiSrv.URL, ListTitle: "Tasks"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// browser returns a client that keeps its session cookie and follows the
// post-redirect-get flow.
func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func page(t *testing.T, c *http.Client, ts *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := c.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func post(t *testing.T, c *http.Client, ts *httptest.Server, path string, form url.Values) (int, string) {
	t.Helper()
	resp, err := c.PostForm(ts.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func requireContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q:\n%s", want, body)
		}
	}
}

func TestForm_RendersInitialState(t *testing.T) {
	ts := newTestWeb(t)
	code, body := page(t, browser(t), ts, "/")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	requireContains(t, body,
		"Your list title: <strong>Tasks</strong>",
		"Status is: <span id=\"status\">Ready</span>",
		`formaction="/actions/create"`,
		"Get all items",
		`href="/docs/keys"`,
	)
}

func TestAction_GetAllThenSelectAndRead(t *testing.T) {
	ts := newTestWeb(t, "a", "b")
	c := browser(t)

	code, body := post(t, c, ts, "/actions/get-all", url.Values{"list_title": {"Tasks"}})
	if code != http.StatusOK {
		t.Fatalf("get-all status %d", code)
	}
	requireContains(t, body, "All items were read successfully", `action="/items/2/select"`)

	_, body = post(t, c, ts, "/items/2/select", nil)
	requireContains(t, body, "Chose item with Id: 2, Title: b", `class="chosen"`)

	_, body = post(t, c, ts, "/actions/read", url.Values{"list_title": {"Tasks"}})
	requireContains(t, body, "Item Id: 2, Title: b")
}

func TestAction_CreateClearsItemTitle(t *testing.T) {
	ts := newTestWeb(t)
	c := browser(t)

	_, body := post(t, c, ts, "/actions/create", url.Values{"list_title": {"Tasks"}, "item_title": {"Buy milk"}})
	requireContains(t, body, "Item with title: &#34;Buy milk&#34; and id: &#34;1&#34; successfully created")
	if strings.Contains(body, `value="Buy milk"`) {
		t.Fatalf("item title should be cleared after create:\n%s", body)
	}
}

func TestAction_EmptyListTitleFailsFast(t *testing.T) {
	ts := newTestWeb(t)
	_, body := post(t, browser(t), ts, "/actions/get-all", url.Values{"list_title": {"  "}})
	requireContains(t, body, "enter a list title first")
}

func TestAction_UnknownOpIs404(t *testing.T) {
	ts := newTestWeb(t)
	code, _ := post(t, browser(t), ts, "/actions/explode", nil)
	if code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", code)
	}
}

func TestSelect_UnknownItemIs404(t *testing.T) {
	ts := newTestWeb(t, "a")
	code, _ := post(t, browser(t), ts, "/items/9/select", nil)
	if code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", code)
	}
}

func TestSessions_AreIsolated(t *testing.T) {
	ts := newTestWeb(t, "a")
	alice, bob := browser(t), browser(t)

	_, body := post(t, alice, ts, "/actions/get-all", url.Values{"list_title": {"Tasks"}})
	requireContains(t, body, "All items were read successfully")

	_, body = page(t, bob, ts, "/")
	requireContains(t, body, "Status is: <span id=\"status\">Ready</span>", "(no items loaded")
}

func TestDocs_RenderMarkdown(t *testing.T) {
	ts := newTestWeb(t)
	c := browser(t)

	code, body := page(t, c, ts, "/docs/keys")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	requireContains(t, body, "<h1>Terminal form keys</h1>", "<title>Terminal form keys</title>")

	code, body = page(t, c, ts, "/docs")
	if code != http.StatusOK {
		t.Fatalf("index status %d", code)
	}
	requireContains(t, body, `href="/docs/usage"`)

	if code, _ := page(t, c, ts, "/docs/nope"); code != http.StatusNotFound {
		t.Fatalf("unknown topic status %d", code)
	}
}

func TestHealthAndCSS(t *testing.T) {
	ts := newTestWeb(t)
	c := browser(t)
	if code, body := page(t, c, ts, "/health"); code != http.StatusOK || strings.TrimSpace(body) != "ok" {
		t.Fatalf("health %d %q", code, body)
	}
	if code, body := page(t, c, ts, "/static/app.css"); code != http.StatusOK || !strings.Contains(body, ".status") {
		t.Fatalf("css %d", code)
	}
}

// newSessionServer returns a server whose clock the test drives. Its client
// points nowhere; session handling never calls it.
func newSessionServer(t *testing.T, cfg ServerConfig) (*Server, *time.Time) {
	t.Helper()
	c, err := splist.New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("splist.New: %v", err)
	}
	cfg.ListTitle = "Tasks"
	srv, err := NewServer(webpart.NewController(c), cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return clock }
	return srv, &clock
}

// getForm renders the form with the given session cookie (none when empty) and
// returns the cookie the server set, if any.
func getForm(t *testing.T, h http.Handler, cookie string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: cookie})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c.Value
		}
	}
	return ""
}

func TestSessions_CookielessRequestsStayBounded(t *testing.T) {
	srv, clock := newSessionServer(t, ServerConfig{MaxSessions: 8})
	h := srv.Handler()

	var first, last string
	for i := 0; i < 100; i++ {
		*clock = clock.Add(time.Second)
		id := getForm(t, h, "")
		if id == "" {
			t.Fatalf("request %d: no session cookie set", i)
		}
		if i == 0 {
			first = id
		}
		last = id
	}

	srv.mu.Lock()
	n := len(srv.sessions)
	_, haveFirst := srv.sessions[first]
	_, haveLast := srv.sessions[last]
	srv.mu.Unlock()
	if n != 8 {
		t.Fatalf("sessions = %d, want 8", n)
	}
	if haveFirst || !haveLast {
		t.Fatalf("expected the oldest session evicted and the newest kept (first=%v last=%v)", haveFirst, haveLast)
	}
}

func TestSessions_ActiveSessionSurvivesEviction(t *testing.T) {
	srv, clock := newSessionServer(t, ServerConfig{MaxSessions: 2})
	h := srv.Handler()

	keep := getForm(t, h, "")
	*clock = clock.Add(time.Second)
	getForm(t, h, "")
	*clock = clock.Add(time.Second)
	if got := getForm(t, h, keep); got != "" {
		t.Fatalf("known session was reissued a cookie %q", got)
	}
	*clock = clock.Add(time.Second)
	getForm(t, h, "")

	srv.mu.Lock()
	_, ok := srv.sessions[keep]
	srv.mu.Unlock()
	if !ok {
		t.Fatalf("recently used session was evicted")
	}
}

func TestSessions_IdleSessionExpires(t *testing.T) {
	srv, clock := newSessionServer(t, ServerConfig{SessionTTL: 10 * time.Minute})
	h := srv.Handler()

	id := getForm(t, h, "")
	*clock = clock.Add(5 * time.Minute)
	if got := getForm(t, h, id); got != "" {
		t.Fatalf("active session was reissued a cookie %q", got)
	}

	*clock = clock.Add(11 * time.Minute)
	fresh := getForm(t, h, id)
	if fresh == "" || fresh == id {
		t.Fatalf("expired session kept: new cookie %q", fresh)
	}
	srv.mu.Lock()
	_, stale := srv.sessions[id]
	n := len(srv.sessions)
	srv.mu.Unlock()
	if stale || n != 1 {
		t.Fatalf("expired session still stored (stale=%v, sessions=%d)", stale, n)
	}
}
