package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/roadmap-engine/internal/auth"
	"github.com/terra-clan/roadmap-engine/internal/config"
	"github.com/terra-clan/roadmap-engine/internal/health"
	"github.com/terra-clan/roadmap-engine/internal/models"
)

// RoadmapGenerator produces a roadmap artifact for a profile
type RoadmapGenerator interface {
	Generate(ctx context.Context, p models.Profile) (*models.GenerateResult, error)
}

// RoadmapService manages saved roadmaps for a user
type RoadmapService interface {
	Save(ctx context.Context, userID string, a *models.Artifact) (*models.Roadmap, error)
	List(ctx context.Context, userID string) ([]*models.Roadmap, error)
	History(ctx context.Context, userID string) ([]*models.Roadmap, error)
	Get(ctx context.Context, id, userID string) (*models.Roadmap, error)
	InitializeProgress(ctx context.Context, id, userID string) (*models.Roadmap, bool, error)
	ToggleSkill(ctx context.Context, id, userID, skillName string, completed bool) (*models.Roadmap, error)
}

// EvaluationService scores progress on saved roadmaps
type EvaluationService interface {
	Evaluate(ctx context.Context, roadmapID, userID string) (*models.Evaluation, error)
	Export(ctx context.Context, userID string) ([]*models.DatasetRow, error)
}

// AccountService registers and authenticates users
type AccountService interface {
	TokenAuthenticator
	Register(ctx context.Context, name, email, password string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	CurrentUser(ctx context.Context, userID string) (*models.User, error)
}

// StorageStatus reports whether the database is currently reachable
type StorageStatus interface {
	Connected() bool
}

// Services bundles what the handlers call into
type Services struct {
	Generator   RoadmapGenerator
	Roadmaps    RoadmapService
	Evaluations EvaluationService
	Accounts    AccountService
	Storage     StorageStatus
	Health      *health.Registry
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	services       Services
	authMiddleware *AuthMiddleware
	limiter        *IPRateLimiter
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, limits config.RateLimitConfig, services Services) *Server {
	if services.Health == nil {
		services.Health = health.NewRegistry()
	}
	s := &Server{
		config:         cfg,
		services:       services,
		authMiddleware: NewAuthMiddleware(services.Accounts),
		limiter:        NewIPRateLimiter(limits.GeneratePerMinute, limits.Burst),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.With(s.authMiddleware.Authenticate).Get("/user", s.handleCurrentUser)
		})

		r.Route("/roadmaps", func(r chi.Router) {
			// Generation works without an account and without the database
			r.With(s.limiter.Middleware).Post("/generate", s.handleGenerate)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware.Authenticate)

				r.Post("/", s.handleSaveRoadmap)
				r.Get("/", s.handleListRoadmaps)
				r.Get("/all", s.handleListRoadmaps)
				r.Get("/history", s.handleRoadmapHistory)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetRoadmap)
					r.Post("/initialize-progress", s.handleInitializeProgress)
					r.Patch("/progress", s.handleToggleSkill)
				})
			})
		})

		r.Route("/evaluation", func(r chi.Router) {
			r.Use(s.authMiddleware.Authenticate)

			r.Get("/export", s.handleExportDataset)
			r.Get("/{roadmapId}", s.handleEvaluate)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
