package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	roadmapID := chi.URLParam(r, "roadmapId")

	ev, err := s.services.Evaluations.Evaluate(r.Context(), roadmapID, UserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err, "evaluate roadmap")
		return
	}

	respondJSON(w, http.StatusOK, ev)
}

func (s *Server) handleExportDataset(w http.ResponseWriter, r *http.Request) {
	rows, err := s.services.Evaluations.Export(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err, "export evaluations")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rows":  rows,
		"total": len(rows),
	})
}
