package api

import (
	"net/http"
	"strings"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := s.services.Accounts.Register(r.Context(), strings.TrimSpace(req.Name), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err, "register user")
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := s.services.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err, "log in")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.services.Accounts.CurrentUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err, "load user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
