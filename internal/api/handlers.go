package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/terra-clan/roadmap-engine/internal/auth"
	"github.com/terra-clan/roadmap-engine/internal/evaluation"
	"github.com/terra-clan/roadmap-engine/internal/health"
	"github.com/terra-clan/roadmap-engine/internal/roadmap"
	"github.com/terra-clan/roadmap-engine/internal/storage"
)

// maxBodyBytes caps request bodies; saved artifacts are the largest payload
const maxBodyBytes = 1 << 20

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondServiceError maps service errors onto status codes. action names
// the operation in the generic 500 message.
func respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		slog.Warn("storage offline", "action", action, "error", err)
		respondError(w, http.StatusServiceUnavailable, "storage_offline", "database is offline, try again later")
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, evaluation.ErrNoProgress):
		respondError(w, http.StatusNotFound, "not_found", "no progress recorded for this roadmap")
	case errors.Is(err, storage.ErrEmailTaken):
		respondError(w, http.StatusConflict, "conflict", "user already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	case errors.Is(err, auth.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, "unauthorized", "token is not valid")
	case errors.Is(err, roadmap.ErrInvalidProfile),
		errors.Is(err, roadmap.ErrInvalidArtifact),
		errors.Is(err, roadmap.ErrInvalidSkill):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		slog.Error("request failed", "action", action, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

// Request decoding

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and runs struct validation on it.
// It writes the error response itself and reports whether to continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "invalid_request", "request body is empty")
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return false
	}
	return true
}

// validationMessage reports the first failed field
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", fe.Field())
		case "email":
			return fmt.Sprintf("%s must be a valid email address", fe.Field())
		case "min":
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return "invalid request"
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	database := "disconnected"
	if s.services.Storage != nil && s.services.Storage.Connected() {
		database = "connected"
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": database,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

type checkStatus struct {
	Status   string `json:"status"`
	Required bool   `json:"required"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.services.Health.HealthCheckAll(r.Context())

	checks := make(map[string]checkStatus, len(results))
	for name, res := range results {
		st := checkStatus{Status: "up", Required: res.Required}
		if res.Err != nil {
			st.Status = "down"
			st.Error = res.Err.Error()
		}
		checks[name] = st
	}

	if !health.Ready(results) {
		slog.Warn("readiness check failed", "checks", checks)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		resp := apiResponse{
			Success: false,
			Data:    map[string]interface{}{"status": "not_ready", "checks": checks},
			Error:   &apiError{Code: "not_ready", Message: "service not ready"},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to encode error response", "error", err)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}
