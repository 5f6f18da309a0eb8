// Package emulator serves the list-items REST surface over a local store so the
// client, CLI and shells can run without a hosted site.
package emulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spcrud-cli/internal/odata"
	"spcrud-cli/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Config struct {
	// Token, when set, is required as "Authorization: Bearer <token>".
	Token  string
	Logger *zap.Logger
}

type Server struct {
	lists store.Lists
	cfg   Config
	log   *zap.Logger
}

func New(lists store.Lists, cfg Config) (*Server, error) {
	if lists == nil {
		return nil, errors.New("emulator: nil store")
	}
	cfg.Token = strings.TrimSpace(cfg.Token)
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{lists: lists, cfg: cfg, log: log}, nil
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.auth)

	r.Get("/", s.handleRoot)
	r.Route("/_api/web/lists", func(r chi.Router) {
		r.Get("/", s.handleListLists)
		r.Post("/", s.handleCreateList)
		r.Get("/{list}/{target}", s.handleGet)
		r.Post("/{list}/{target}", s.handlePost)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get(odata.HeaderRequestID)
		if reqID != "" {
			w.Header().Set(odata.HeaderRequestID, reqID)
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("override", r.Header.Get(odata.HeaderMethodOverride)),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", reqID),
		)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			writeODataError(w, http.StatusUnauthorized, odata.CodeInvalidRequest, "Access denied.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	titles, err := s.lists.ListTitles(r.Context())
	if err != nil {
		s.writeStoreError(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"emulator": "spcrud", "lists": titles})
}

func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) {
	titles, err := s.lists.ListTitles(r.Context())
	if err != nil {
		s.writeStoreError(w, "", err)
		return
	}
	out := make([]map[string]any, 0, len(titles))
	for _, t := range titles {
		out = append(out, map[string]any{"Title": t})
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": out})
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"Title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Title) == "" {
		writeODataError(w, http.StatusBadRequest, odata.CodeInvalidRequest, "Expected a body like {\"Title\": \"...\"}.")
		return
	}
	if err := s.lists.CreateList(r.Context(), body.Title); err != nil {
		s.writeStoreError(w, body.Title, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"Title": strings.TrimSpace(body.Title)})
}

// target is the last path segment: "items" or "items(<id>)".
type target struct {
	id int // 0 = collection
}

func parseTarget(seg string) (target, bool) {
	if seg == "items" {
		return target{}, true
	}
	if !strings.HasPrefix(seg, "items(") || !strings.HasSuffix(seg, ")") {
		return target{}, false
	}
	id, err := strconv.Atoi(seg[len("items(") : len(seg)-1])
	if err != nil || id <= 0 {
		return target{}, false
	}
	return target{id: id}, true
}

// route extracts the list title and target from the URL. chi matches on RawPath
// when the path carries escapes, so params are unescaped only in that case.
func (s *Server) route(w http.ResponseWriter, r *http.Request) (string, target, bool) {
	listSeg, targetSeg := chi.URLParam(r, "list"), chi.URLParam(r, "target")
	if r.URL.RawPath != "" {
		var err error
		if listSeg, err = url.PathUnescape(listSeg); err == nil {
			targetSeg, err = url.PathUnescape(targetSeg)
		}
		if err != nil {
			writeODataError(w, http.StatusBadRequest, odata.CodeInvalidRequest, "Malformed path.")
			return "", target{}, false
		}
	}
	title, err := odata.ParseGetByTitle(listSeg)
	if err != nil {
		writeODataError(w, http.StatusBadRequest, odata.CodeInvalidRequest, fmt.Sprintf("Unsupported list segment %q: %v.", listSeg, err))
		return "", target{}, false
	}
	t, ok := parseTarget(targetSeg)
	if !ok {
		writeODataError(w, http.StatusNotFound, odata.CodeInvalidRequest, fmt.Sprintf("Resource %q not found.", targetSeg))
		return "", target{}, false
	}
	return title, t, true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	list, t, ok := s.route(w, r)
	if !ok {
		return
	}
	opts, err := parseQueryOptions(r.URL.Query())
	if err != nil {
		writeODataError(w, http.StatusBadRequest, odata.CodeInvalidRequest, err.Error())
		return
	}

	if t.id != 0 {
		rec, err := s.lists.Item(r.Context(), list, t.id)
		if err != nil {
			s.writeStoreError(w, list, err)
			return
		}
		w.Header().Set("ETag", rec.ETag())
		writeJSON(w, http.StatusOK, project(rec, opts.fields))
		return
	}

	recs, err := s.lists.Items(r.Context(), list, opts.query)
	if err != nil {
		s.writeStoreError(w, list, err)
		return
	}
	value := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		value = append(value, project(rec, opts.fields))
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": value})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	list, t, ok := s.route(w, r)
	if !ok {
		return
	}
	override := strings.ToUpper(strings.TrimSpace(r.Header.Get(odata.HeaderMethodOverride)))

	if t.id == 0 {
		if override != "" {
			writeODataError(w, http.StatusBadRequest, odata.CodeInvalidRequest, "X-HTTP-Method is only valid on a single item.")
			return
		}
		title, ok := decodeTitle(w, r)
		if !ok {
			return
		}
		rec, err := s.lists.AddItem(r.Context(), list, title)
		if err != nil {
			s.writeStoreError(w, list, err)
			return
		}
		w.Header().Set("ETag", rec.ETag())
		writeJSON(w, http.StatusCreated, project(rec, nil))
		return
	}

	ifMatch := r.Header.Get(odata.HeaderIfMatch)
	switch override {
	case odata.MethodMerge:
		title, ok := decodeTitle(w, r)
		if !ok {
			return
		}
		rec, err := s.lists.UpdateItem(r.Context(), list, t.id, title, ifMatch)
		if err != nil {
			s.writeStoreError(w, list, err)
			return
		}
		w.Header().Set("ETag", rec.ETag())
		w.WriteHeader(http.StatusNoContent)
	case odata.MethodDelete:
		if err := s.lists.DeleteItem(r.Context(), list, t.id, ifMatch); err != nil {
			s.writeStoreError(w, list, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		writeODataError(w, http.StatusBadRequest, odata.CodeInvalidRequest, "POST to an item requires X-HTTP-Method: MERGE or DELETE.")
	}
}

func decodeTitle(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Title *string `json:"Title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == nil {
		writeODataError(w, http.StatusBadRequest, odata.CodeInvalidRequest, "Expected a body like {\"Title\": \"...\"}.")
		return "", false
	}
	return *body.Title, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, list string, err error) {
	switch {
	case errors.Is(err, store.ErrListNotFound):
		writeODataError(w, http.StatusNotFound, odata.CodeListNotFound, fmt.Sprintf("List '%s' does not exist at this site.", list))
	case errors.Is(err, store.ErrItemNotFound):
		writeODataError(w, http.StatusNotFound, odata.CodeItemNotFound, "Item does not exist. It may have been deleted by another user.")
	case errors.Is(err, store.ErrPreconditionFailed):
		writeODataError(w, http.StatusPreconditionFailed, odata.CodeETagMismatch, "The request ETag value does not match the object's ETag value.")
	case errors.Is(err, store.ErrIfMatchRequired):
		writeODataError(w, http.StatusBadRequest, odata.CodeInvalidRequest, "The IF-MATCH header is required.")
	case errors.Is(err, store.ErrListExists):
		writeODataError(w, http.StatusConflict, odata.CodeInvalidRequest, fmt.Sprintf("A list with title '%s' already exists.", list))
	default:
		s.log.Error("store error", zap.String("list", list), zap.Error(err))
		writeODataError(w, http.StatusInternalServerError, "-1, System.Exception", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", odata.MediaTypeNoMetadata+";charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeODataError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, odata.NewErrorBody(code, msg))
}
