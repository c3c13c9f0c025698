package roadmap

import (
	"strings"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

// MockArtifact is the deterministic roadmap served when the generative model
// cannot be used. It has the same shape as a generated one.
func MockArtifact(p models.Profile) *models.Artifact {
	skills := make(models.SkillNames, 0, len(p.Skills))
	skills = append(skills, p.Skills...)

	return &models.Artifact{
		UserSummary: models.UserSummary{
			Role:          p.Role,
			Education:     p.Education,
			CurrentSkills: strings.Join(p.Skills, ", "),
			Interests:     p.Interests,
		},
		JobSuggestions: []models.JobSuggestion{
			{Title: "Mock " + p.Role, Description: "Works on simulating " + p.Role + " tasks."},
			{Title: "Senior " + p.Role, Description: "Leads teams and designs architecture."},
		},
		SkillsAnalysis: models.SkillsAnalysis{
			RequiredSkills:  models.SkillNames{"Mock Skill A", "Mock Skill B", "Mock Skill C"},
			ExistingSkills:  skills,
			MissingSkills:   models.SkillNames{"Mock Skill A", "Mock Skill B"},
			MatchPercentage: 50,
		},
		Roadmap: []models.Phase{
			{
				Phase:    "Months 1-2: Fundamentals (Mock)",
				Focus:    "Building specific foundations",
				Skills:   []string{"Basics 101", "Core Concepts"},
				Projects: []string{"Simple Starter Project"},
			},
			{
				Phase:    "Months 3-4: Intermediate (Mock)",
				Focus:    "Applying knowledge",
				Skills:   []string{"Advanced Usage", "Optimization"},
				Projects: []string{"Real-world Clone"},
			},
		},
	}
}
