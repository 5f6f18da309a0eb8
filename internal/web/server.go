// Package web serves the list-items form as server-rendered HTML.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"spcrud-cli/internal/docs"
	"spcrud-cli/internal/webpart"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

const (
	sessionCookie = "spcrud_session"

	defaultSessionTTL  = 30 * time.Minute
	defaultMaxSessions = 1024
)

type ServerConfig struct {
	Addr      string
	SiteURL   string
	ListTitle string // initial list title for new sessions
	Logger    *zap.Logger

	// SessionTTL drops a form after this long without a request (default 30m).
	SessionTTL time.Duration
	// MaxSessions caps the live forms; the least recently used one is evicted
	// to make room (default 1024).
	MaxSessions int
}

type Server struct {
	cfg  ServerConfig
	ctl  *webpart.Controller
	log  *zap.Logger
	tmpl *template.Template
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// session is one browser's form. Its mutex serializes the operations a
// browser fires, so state is only touched by one request at a time.
type session struct {
	mu    sync.Mutex
	state webpart.State

	lastSeen time.Time // guarded by Server.mu
}

func NewServer(ctl *webpart.Controller, cfg ServerConfig) (*Server, error) {
	if ctl == nil {
		return nil, errors.New("web: nil controller")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim": strings.TrimSpace,
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}
	return &Server{
		cfg:      cfg,
		ctl:      ctl,
		log:      log,
		tmpl:     tmpl,
		now:      time.Now,
		sessions: map[string]*session{},
	}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/static/app.css", s.handleAppCSS)
	r.Get("/", s.handleForm)
	r.Post("/actions/{op}", s.handleAction)
	r.Post("/items/{id}/select", s.handleSelect)
	r.Get("/docs", s.handleDocsIndex)
	r.Get("/docs/{topic}", s.handleDoc)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("web request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// session returns the caller's form, starting a new one (and setting the
// cookie) when the browser has none or the server no longer knows it.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions[c.Value]; ok {
			if now.Sub(sess.lastSeen) <= s.cfg.SessionTTL {
				sess.lastSeen = now
				return sess
			}
			delete(s.sessions, c.Value)
		}
	}
	s.pruneSessions(now)
	id := uuid.NewString()
	sess := &session{state: webpart.NewState(s.cfg.ListTitle), lastSeen: now}
	s.sessions[id] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// pruneSessions drops idle forms and, when still full, the least recently used
// ones until there is room for one more. Callers hold s.mu.
func (s *Server) pruneSessions(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.cfg.SessionTTL {
			delete(s.sessions, id)
		}
	}
	for len(s.sessions) >= s.cfg.MaxSessions {
		var oldestID string
		var oldest time.Time
		for id, sess := range s.sessions {
			if oldestID == "" || sess.lastSeen.Before(oldest) {
				oldestID, oldest = id, sess.lastSeen
			}
		}
		delete(s.sessions, oldestID)
		s.log.Debug("web session evicted", zap.String("session", oldestID))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil {
		http.Error(w, "missing stylesheet", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write(b)
}

type opButton struct {
	Name  string
	Label string
}

type formPage struct {
	SiteURL string
	State   webpart.State
	Buttons []opButton
	Topics  []string
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.mu.Lock()
	st := sess.state
	st.Items = append(st.Items[:0:0], st.Items...)
	sess.mu.Unlock()

	buttons := make([]opButton, 0, len(webpart.Ops))
	for _, op := range webpart.Ops {
		buttons = append(buttons, opButton{Name: op.String(), Label: op.Label()})
	}
	s.render(w, "form.html", formPage{
		SiteURL: s.cfg.SiteURL,
		State:   st,
		Buttons: buttons,
		Topics:  docs.Topics(),
	})
}

// handleAction runs one form operation to completion, then redirects back to
// the form so a reload never repeats it.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	op, err := webpart.ParseOp(chi.URLParam(r, "op"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess := s.session(w, r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if r.PostForm.Has("list_title") {
		sess.state.SetListTitle(r.PostForm.Get("list_title"))
	}
	if r.PostForm.Has("item_title") {
		sess.state.SetItemTitle(r.PostForm.Get("item_title"))
	}
	req := sess.state.Begin(op, s.ctl.TargetMode())
	res := s.ctl.Do(r.Context(), op, req)
	sess.state.Apply(res)
	s.log.Debug("web operation", zap.Stringer("op", op), zap.String("status", res.Status))

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	sess := s.session(w, r)
	sess.mu.Lock()
	ok := sess.state.SelectByID(id)
	sess.mu.Unlock()
	if !ok {
		http.Error(w, "item is not in the dropdown; get all items first", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type docsIndexPage struct {
	Topics []topicPage
}

func (s *Server) handleDocsIndex(w http.ResponseWriter, r *http.Request) {
	var page docsIndexPage
	for _, t := range docs.Topics() {
		page.Topics = append(page.Topics, topicPage{Topic: t, Title: docs.Title(t)})
	}
	s.render(w, "docs_index.html", page)
}

func (s *Server) handleDoc(w http.ResponseWriter, r *http.Request) {
	page, ok := renderTopic(chi.URLParam(r, "topic"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.render(w, "doc.html", page)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Warn("render template", zap.String("template", name), zap.Error(err))
	}
}
