// Package roadmap turns profiles into roadmaps and manages saved roadmaps.
package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/terra-clan/roadmap-engine/internal/llm"
	"github.com/terra-clan/roadmap-engine/internal/models"
	"github.com/terra-clan/roadmap-engine/internal/recommender"
	"github.com/terra-clan/roadmap-engine/internal/rules"
	"github.com/terra-clan/roadmap-engine/internal/skillgap"
)

// Common errors
var (
	ErrInvalidProfile  = errors.New("education and target role are required")
	ErrInvalidArtifact = errors.New("roadmap data is missing userSummary or roadmap")
	ErrInvalidSkill    = errors.New("skill name is required")
)

// Generator builds roadmap artifacts. Failures of the recommender or the
// generative model degrade the result but never fail generation.
type Generator struct {
	table       *skillgap.Table
	recommender recommender.Recommender
	model       llm.Client
}

// NewGenerator creates a generator. rec may be nil when no recommender is configured.
func NewGenerator(table *skillgap.Table, rec recommender.Recommender, model llm.Client) *Generator {
	if model == nil {
		model = llm.Disabled{}
	}
	return &Generator{
		table:       table,
		recommender: rec,
		model:       model,
	}
}

// Generate produces a roadmap for a profile
func (g *Generator) Generate(ctx context.Context, p models.Profile) (*models.GenerateResult, error) {
	if strings.TrimSpace(p.Education) == "" || strings.TrimSpace(p.Role) == "" {
		return nil, ErrInvalidProfile
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}

	analysis := rules.AnalyzeProfile(p)
	gaps := g.table.AnalyzeGaps(p.Skills, p.Role)
	recs := g.recommend(ctx, p)

	prompt := roadmapPrompt(p, augmentPrompt(analysis, recs, gaps))

	result := &models.GenerateResult{
		TriggeredRules:    analysis.TriggeredRules,
		Reasoning:         analysis.Reasoning,
		MLRecommendations: recs,
		SkillsAnalysis:    gaps,
	}

	artifact, err := g.generateArtifact(ctx, prompt)
	if err != nil {
		slog.Warn("roadmap generation degraded to mock content",
			"role", p.Role,
			"error", err,
		)
		artifact = MockArtifact(p)
		result.Fallback = true
	}
	result.Roadmap = artifact

	slog.Info("roadmap generated",
		"role", p.Role,
		"triggered_rules", len(analysis.TriggeredRules),
		"skill_gaps", len(gaps.MissingSkills),
		"recommendations", len(recs),
		"fallback", result.Fallback,
	)

	return result, nil
}

// recommend calls the recommender and returns an empty list on any failure.
// Service metadata is attached to the first recommendation.
func (g *Generator) recommend(ctx context.Context, p models.Profile) []models.Recommendation {
	if g.recommender == nil {
		return []models.Recommendation{}
	}

	resp, err := g.recommender.Recommend(ctx, p)
	if err != nil {
		slog.Warn("career recommender unavailable", "error", err)
		return []models.Recommendation{}
	}
	if resp == nil || len(resp.RecommendedCareers) == 0 {
		return []models.Recommendation{}
	}

	recs := append([]models.Recommendation(nil), resp.RecommendedCareers...)
	if len(resp.Meta) > 0 {
		recs[0].Meta = resp.Meta
	}
	return recs
}

// generateArtifact asks the model for a roadmap and accepts it only if it
// matches the artifact schema.
func (g *Generator) generateArtifact(ctx context.Context, prompt string) (*models.Artifact, error) {
	raw, err := g.model.GenerateJSON(ctx, llm.Request{
		System:      generateSystem,
		Prompt:      prompt,
		Temperature: generateTemperature,
	})
	if err != nil {
		return nil, err
	}

	if err := validateArtifactJSON(raw); err != nil {
		return nil, err
	}

	var artifact models.Artifact
	if err := json.Unmarshal([]byte(raw), &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}

	normalizeArtifact(&artifact)
	return &artifact, nil
}

// normalizeArtifact replaces nil lists with empty ones so every artifact
// serializes with the same shape.
func normalizeArtifact(a *models.Artifact) {
	if a.JobSuggestions == nil {
		a.JobSuggestions = []models.JobSuggestion{}
	}
	if a.SkillsAnalysis.RequiredSkills == nil {
		a.SkillsAnalysis.RequiredSkills = models.SkillNames{}
	}
	if a.SkillsAnalysis.ExistingSkills == nil {
		a.SkillsAnalysis.ExistingSkills = models.SkillNames{}
	}
	if a.SkillsAnalysis.MissingSkills == nil {
		a.SkillsAnalysis.MissingSkills = models.SkillNames{}
	}
	if a.Roadmap == nil {
		a.Roadmap = []models.Phase{}
	}
	for i := range a.Roadmap {
		if a.Roadmap[i].Skills == nil {
			a.Roadmap[i].Skills = []string{}
		}
		if a.Roadmap[i].Projects == nil {
			a.Roadmap[i].Projects = []string{}
		}
	}
}
