package api

import (
	"net/http"
	"strconv"
	"strings"

	"sunolegal/internal/models"
)

func (s *HTTPServer) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.deps.Catalog.Categories()})
}

func (s *HTTPServer) handleListLaws(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := s.deps.Catalog.ListLawSchemes(q.Get("category"), q.Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *HTTPServer) handleGetLaw(w http.ResponseWriter, r *http.Request) {
	item, ok := s.deps.Catalog.GetLawSchemeByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "law not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *HTTPServer) handleRelatedLaws(w http.ResponseWriter, r *http.Request) {
	limit := models.DefaultRelatedLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	item, ok := s.deps.Catalog.GetLawSchemeByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "law not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.deps.Catalog.GetRelatedLawSchemes(item, limit)})
}

func (s *HTTPServer) handleListLawyers(w http.ResponseWriter, r *http.Request) {
	opts := make(map[string]string)
	for key, vals := range r.URL.Query() {
		if len(vals) > 0 {
			opts[key] = vals[0]
		}
	}
	lawyers := s.deps.Catalog.ListLawyers(models.ParseLawyerFilter(opts))
	writeJSON(w, http.StatusOK, map[string]any{"lawyers": lawyers})
}

func (s *HTTPServer) handleGetLawyer(w http.ResponseWriter, r *http.Request) {
	lawyer, ok := s.deps.Catalog.GetLawyerByID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "lawyer not found")
		return
	}
	writeJSON(w, http.StatusOK, lawyer)
}
