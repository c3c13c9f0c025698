package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

type toggleSkillRequest struct {
	SkillName string `json:"skillName" validate:"required"`
	Completed *bool  `json:"completed" validate:"required"`
}

type roadmapMessage struct {
	Message string          `json:"message"`
	Roadmap *models.Roadmap `json:"roadmap"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.Profile
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.services.Generator.Generate(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "generate roadmap")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSaveRoadmap(w http.ResponseWriter, r *http.Request) {
	var req models.Artifact
	if !decodeJSON(w, r, &req) {
		return
	}

	rm, err := s.services.Roadmaps.Save(r.Context(), UserIDFromContext(r.Context()), &req)
	if err != nil {
		respondServiceError(w, err, "save roadmap")
		return
	}

	respondJSON(w, http.StatusCreated, roadmapMessage{
		Message: "Roadmap saved successfully",
		Roadmap: rm,
	})
}

func (s *Server) handleListRoadmaps(w http.ResponseWriter, r *http.Request) {
	roadmaps, err := s.services.Roadmaps.List(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err, "list roadmaps")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"roadmaps": roadmaps,
		"total":    len(roadmaps),
	})
}

func (s *Server) handleRoadmapHistory(w http.ResponseWriter, r *http.Request) {
	roadmaps, err := s.services.Roadmaps.History(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err, "load roadmap history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"roadmaps": roadmaps,
		"total":    len(roadmaps),
	})
}

func (s *Server) handleGetRoadmap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rm, err := s.services.Roadmaps.Get(r.Context(), id, UserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err, "get roadmap")
		return
	}

	respondJSON(w, http.StatusOK, rm)
}

func (s *Server) handleInitializeProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rm, already, err := s.services.Roadmaps.InitializeProgress(r.Context(), id, UserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err, "initialize progress")
		return
	}

	msg := "Progress initialized successfully"
	if already {
		msg = "Progress already initialized"
	}
	respondJSON(w, http.StatusOK, roadmapMessage{Message: msg, Roadmap: rm})
}

func (s *Server) handleToggleSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req toggleSkillRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rm, err := s.services.Roadmaps.ToggleSkill(r.Context(), id, UserIDFromContext(r.Context()), req.SkillName, *req.Completed)
	if err != nil {
		respondServiceError(w, err, "update progress")
		return
	}

	respondJSON(w, http.StatusOK, rm)
}
