// Package server exposes the assignment index and lexicon over a small JSON
// HTTP API for browsing glyph state and history.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lazypower/autoglyph/internal/lexicon"
	"github.com/lazypower/autoglyph/internal/store"
)

// Server is the autoglyph HTTP API server.
type Server struct {
	db      *store.DB
	lexicon *lexicon.Lexicon
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server over the given index and lexicon.
func New(db *store.DB, lex *lexicon.Lexicon, version string) *Server {
	s := &Server{
		db:      db,
		lexicon: lex,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/lexicon", s.handleLexicon)
		r.Get("/documents", s.handleDocuments)
		r.Get("/documents/history", s.handleHistory)
		r.Get("/failures", s.handleFailures)
		r.Get("/runs", s.handleRuns)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
		"glyphs":  s.lexicon.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
