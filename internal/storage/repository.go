package storage

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

// Common errors
var (
	ErrUnavailable = errors.New("storage unavailable")
	ErrNotFound    = errors.New("not found")
	ErrEmailTaken  = errors.New("email already registered")
)

// Repository defines the interface for roadmap persistence.
// Getters return nil, nil when nothing matches.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Roadmaps
	CreateRoadmap(ctx context.Context, rm *models.Roadmap) error
	GetRoadmap(ctx context.Context, id, userID string) (*models.Roadmap, error)
	ListRoadmaps(ctx context.Context, filters models.RoadmapFilters) ([]*models.Roadmap, error)
	// ToggleSkill applies models.Progress.Toggle to the roadmap owned by
	// userID as one atomic unit and returns the updated roadmap.
	ToggleSkill(ctx context.Context, id, userID, skillName string, completed bool, now time.Time) (*models.Roadmap, error)

	// Evaluations
	UpsertEvaluation(ctx context.Context, ev *models.Evaluation) error
	ListEvaluations(ctx context.Context, userID string) ([]*EvaluatedRoadmap, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// EvaluatedRoadmap pairs a cached evaluation with its roadmap
type EvaluatedRoadmap struct {
	Evaluation *models.Evaluation
	Roadmap    *models.Roadmap
}
