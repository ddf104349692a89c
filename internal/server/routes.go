package server

import (
	"net/http"
	"strconv"
)

func (s *Server) handleLexicon(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Symbol             string   `json:"symbol"`
		Name               string   `json:"name"`
		Meanings           []string `json:"meanings"`
		Archetypes         []string `json:"archetypes"`
		RequiresPermission bool     `json:"requires_permission"`
	}

	glyphs := s.lexicon.Glyphs()
	out := make([]entry, 0, len(glyphs))
	for _, g := range glyphs {
		out = append(out, entry{
			Symbol:             g.Symbol,
			Name:               g.Name,
			Meanings:           g.Meanings,
			Archetypes:         g.Archetypes,
			RequiresPermission: g.RequiresPermission,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"glyphs": out})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	states, err := s.db.LatestAssignments()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": states, "count": len(states)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path query parameter required"})
		return
	}

	records, err := s.db.History(path, queryLimit(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "history": records})
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	records, err := s.db.RecentFailures(queryLimit(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"failures": records})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.db.ListRuns(queryLimit(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
