package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/terra-clan/roadmap-engine/internal/api"
	"github.com/terra-clan/roadmap-engine/internal/auth"
	"github.com/terra-clan/roadmap-engine/internal/config"
	"github.com/terra-clan/roadmap-engine/internal/evaluation"
	"github.com/terra-clan/roadmap-engine/internal/health"
	"github.com/terra-clan/roadmap-engine/internal/llm"
	"github.com/terra-clan/roadmap-engine/internal/recommender"
	"github.com/terra-clan/roadmap-engine/internal/roadmap"
	"github.com/terra-clan/roadmap-engine/internal/skillgap"
	"github.com/terra-clan/roadmap-engine/internal/storage"
	"github.com/terra-clan/roadmap-engine/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("starting roadmap-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"database", cfg.Database.Driver,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Storage is connected lazily; the service starts even when the database is down
	provider := storage.NewProvider(storageConnector(cfg.Database), cfg.Database.RetryInterval)
	if _, err := provider.Acquire(initCtx); err != nil {
		slog.Warn("database not reachable at startup, generation only until it recovers", "error", err)
	}

	registry := health.NewRegistry()
	registry.Register("database", provider, true)

	// Role table
	table := skillgap.DefaultTable()
	if cfg.Roles.File != "" {
		table, err = skillgap.LoadFromFile(cfg.Roles.File)
		if err != nil {
			slog.Error("failed to load role table", "file", cfg.Roles.File, "error", err)
			os.Exit(1)
		}
	}

	// Collaborators
	model, err := llm.NewClient(initCtx, llm.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		slog.Warn("generative model unavailable, serving mock roadmaps", "error", err)
		model = llm.Disabled{}
	}

	var extractor roadmap.Extractor = roadmap.NewDefaultExtractor(model)
	if _, disabled := model.(llm.Disabled); disabled {
		slog.Warn("generative model disabled, serving mock roadmaps and heuristic checklists")
		extractor = roadmap.HeuristicExtractor{}
	}

	recClient := recommender.NewHTTPClient(cfg.Recommender.URL, cfg.Recommender.Timeout)
	registry.Register("recommender", recClient, false)

	var rec recommender.Recommender = recClient
	if cfg.Redis.Address != "" {
		redisClient, err := recommender.NewRedisClient(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Warn("redis unavailable, recommendations are not cached", "error", err)
		} else {
			defer redisClient.Close()
			cached := recommender.NewCached(recClient, redisClient, cfg.Redis.CacheTTL)
			registry.Register("redis", cached, false)
			rec = cached
		}
	}

	// Services
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.ExpirationHours)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	server := api.NewServer(cfg.Server, cfg.RateLimit, api.Services{
		Generator:   roadmap.NewGenerator(table, rec, model),
		Roadmaps:    roadmap.NewService(provider, extractor),
		Evaluations: evaluation.NewService(provider),
		Accounts:    auth.NewService(provider, tokens, hasher),
		Storage:     provider,
		Health:      registry,
	})

	// Setup HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := model.Close(); err != nil {
		slog.Error("model client close error", "error", err)
	}

	if err := provider.Close(); err != nil {
		slog.Error("storage close error", "error", err)
	}

	slog.Info("roadmap-engine stopped")
}

// storageConnector picks the database driver from config
func storageConnector(cfg config.DatabaseConfig) storage.Connector {
	if cfg.Driver == "sqlite" {
		return storage.SQLiteConnector(cfg.DSN)
	}

	var migrationFS fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		migrationFS = os.DirFS(cfg.MigrationsDir)
	}

	return storage.PostgresConnector(storage.PostgresConfig{
		DSN:          cfg.DSN,
		MaxOpenConns: int32(cfg.MaxOpenConns),
		MaxIdleConns: int32(cfg.MaxIdleConns),
	}, migrationFS, cfg.ConnectTimeout)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
