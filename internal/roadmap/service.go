package roadmap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/roadmap-engine/internal/models"
	"github.com/terra-clan/roadmap-engine/internal/storage"
)

// historySize is how many roadmaps History returns
const historySize = 5

// Store hands out a repository for one request
type Store interface {
	Acquire(ctx context.Context) (storage.Repository, error)
}

// Service manages saved roadmaps and their progress
type Service struct {
	store     Store
	extractor Extractor
	now       func() time.Time
}

// NewService creates a roadmap service
func NewService(store Store, extractor Extractor) *Service {
	if extractor == nil {
		extractor = HeuristicExtractor{}
	}
	return &Service{
		store:     store,
		extractor: extractor,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Save persists an artifact for a user. The skill checklist is extracted
// here and only here; extraction failures leave the checklist empty.
func (s *Service) Save(ctx context.Context, userID string, a *models.Artifact) (*models.Roadmap, error) {
	if a == nil || a.UserSummary == (models.UserSummary{}) || a.Roadmap == nil {
		return nil, ErrInvalidArtifact
	}

	repo, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rm := &models.Roadmap{
		ID:        uuid.New().String(),
		UserID:    userID,
		Artifact:  *a,
		Progress:  models.Progress{Skills: []models.ChecklistItem{}},
		CreatedAt: now,
	}
	normalizeArtifact(&rm.Artifact)

	skills, err := s.extractor.Extract(ctx, a)
	switch {
	case err != nil:
		slog.Warn("skill extraction failed, saving with empty checklist",
			"user_id", userID,
			"error", err,
		)
	case len(skills) > 0:
		rm.Progress = models.NewProgress(skills, now)
	}

	if err := repo.CreateRoadmap(ctx, rm); err != nil {
		return nil, fmt.Errorf("failed to save roadmap: %w", err)
	}

	slog.Info("roadmap saved",
		"roadmap_id", rm.ID,
		"user_id", userID,
		"role", rm.Role(),
		"skills", rm.Progress.TotalSkills,
	)

	return rm, nil
}

// List returns all roadmaps of a user, most recently progressed first.
// Progress aggregates are recomputed from the checklist for the response
// only; stored values are left untouched.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Roadmap, error) {
	repo, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	roadmaps, err := repo.ListRoadmaps(ctx, models.RoadmapFilters{UserID: userID})
	if err != nil {
		return nil, err
	}

	for _, rm := range roadmaps {
		rm.Progress.Reconcile()
	}
	return roadmaps, nil
}

// History returns the most recently created roadmaps of a user
func (s *Service) History(ctx context.Context, userID string) ([]*models.Roadmap, error) {
	repo, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return repo.ListRoadmaps(ctx, models.RoadmapFilters{
		UserID:         userID,
		OrderByCreated: true,
		Limit:          historySize,
	})
}

// Get returns one roadmap owned by userID
func (s *Service) Get(ctx context.Context, id, userID string) (*models.Roadmap, error) {
	repo, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return getOwned(ctx, repo, id, userID)
}

// InitializeProgress reports whether a checklist already exists. It never
// extracts skills: an empty checklist stays empty.
func (s *Service) InitializeProgress(ctx context.Context, id, userID string) (rm *models.Roadmap, alreadyInitialized bool, err error) {
	repo, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}

	rm, err = getOwned(ctx, repo, id, userID)
	if err != nil {
		return nil, false, err
	}

	if len(rm.Progress.Skills) > 0 {
		return rm, true, nil
	}

	slog.Info("progress initialized without checklist", "roadmap_id", id)
	return rm, false, nil
}

// ToggleSkill marks a skill completed or not, adding it to the checklist
// when it is new.
func (s *Service) ToggleSkill(ctx context.Context, id, userID, skillName string, completed bool) (*models.Roadmap, error) {
	skillName = strings.TrimSpace(skillName)
	if skillName == "" {
		return nil, ErrInvalidSkill
	}

	repo, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rm, err := repo.ToggleSkill(ctx, id, userID, skillName, completed, s.now())
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, storage.ErrNotFound
	}

	slog.Debug("skill toggled",
		"roadmap_id", id,
		"skill", skillName,
		"completed", completed,
		"percentage", rm.Progress.Percentage,
	)

	return rm, nil
}

func getOwned(ctx context.Context, repo storage.Repository, id, userID string) (*models.Roadmap, error) {
	rm, err := repo.GetRoadmap(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, storage.ErrNotFound
	}
	return rm, nil
}
