// Package evaluation derives a coarse progress status for saved roadmaps.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/terra-clan/roadmap-engine/internal/models"
	"github.com/terra-clan/roadmap-engine/internal/storage"
)

// ErrNoProgress is returned for a roadmap without a progress record
var ErrNoProgress = errors.New("roadmap has no progress record")

const (
	// defaultSkillEstimate is used when a roadmap declares no skills at all
	defaultSkillEstimate = 10

	stalledAfter        = 7 * 24 * time.Hour
	needsAttentionAfter = 3 * 24 * time.Hour
	lowCompletionRate   = 10
)

// Evaluate derives the evaluation of a roadmap at time now
func Evaluate(rm *models.Roadmap, now time.Time) (*models.Evaluation, error) {
	if rm.Progress.LastUpdated == nil {
		return nil, ErrNoProgress
	}

	p := rm.Progress
	p.Reconcile()

	estimate := len(rm.SkillsAnalysis.ExistingSkills) + len(rm.SkillsAnalysis.MissingSkills)
	if estimate == 0 {
		estimate = defaultSkillEstimate
	}

	rate := int(math.Floor(100*float64(p.CompletedSkills)/float64(estimate) + 0.5))
	if rate > 100 {
		rate = 100
	}

	return &models.Evaluation{
		RoadmapID:            rm.ID,
		CompletionRate:       rate,
		TotalSkills:          estimate,
		CompletedSkillsCount: p.CompletedSkills,
		Status:               deriveStatus(rate, now.Sub(*p.LastUpdated)),
		LastUpdated:          now,
	}, nil
}

// deriveStatus applies the status rules in order; the first match wins
func deriveStatus(rate int, sinceUpdate time.Duration) models.EvaluationStatus {
	switch {
	case rate == 0:
		return models.StatusJustStarted
	case sinceUpdate > stalledAfter:
		return models.StatusStalled
	case rate < lowCompletionRate && sinceUpdate > needsAttentionAfter:
		return models.StatusNeedsAttention
	default:
		return models.StatusOnTrack
	}
}

// Store hands out a repository for one request
type Store interface {
	Acquire(ctx context.Context) (storage.Repository, error)
}

// Service evaluates roadmaps and caches the results
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates an evaluation service
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate recomputes and stores the evaluation of a user's roadmap
func (s *Service) Evaluate(ctx context.Context, roadmapID, userID string) (*models.Evaluation, error) {
	repo, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	rm, err := repo.GetRoadmap(ctx, roadmapID, userID)
	if err != nil {
		return nil, err
	}
	if rm == nil {
		return nil, storage.ErrNotFound
	}

	ev, err := Evaluate(rm, s.now())
	if err != nil {
		return nil, err
	}

	if err := repo.UpsertEvaluation(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to store evaluation: %w", err)
	}

	slog.Debug("roadmap evaluated",
		"roadmap_id", roadmapID,
		"completion_rate", ev.CompletionRate,
		"status", ev.Status,
	)

	return ev, nil
}

// Export returns one dataset row per cached evaluation of the user's roadmaps
func (s *Service) Export(ctx context.Context, userID string) ([]*models.DatasetRow, error) {
	repo, err := s.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	evaluated, err := repo.ListEvaluations(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows := make([]*models.DatasetRow, 0, len(evaluated))
	for _, e := range evaluated {
		row := &models.DatasetRow{
			Role:                "Unknown",
			Education:           "Unknown",
			FinalCompletionRate: e.Evaluation.CompletionRate,
			Outcome:             e.Evaluation.Status,
		}
		if e.Roadmap != nil {
			row.Role = e.Roadmap.Role()
			row.Education = e.Roadmap.Education()
			row.StartSkills = strings.Join(e.Roadmap.SkillsAnalysis.ExistingSkills, ";")
		}
		rows = append(rows, row)
	}

	return rows, nil
}
