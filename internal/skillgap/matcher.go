package skillgap

import (
	"strings"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

// AnalyzeGaps lists the skills targetRole requires that userSkills lack,
// core gaps first, and scores how many requirements are already met.
// An unknown role yields no gaps and a score of 0.
func (t *Table) AnalyzeGaps(userSkills []string, targetRole string) models.SkillGapResult {
	req, ok := t.Match(targetRole)
	if !ok {
		return models.SkillGapResult{MissingSkills: []models.MissingSkill{}, MatchScore: 0}
	}

	have := make(map[string]bool, len(userSkills))
	for _, s := range userSkills {
		have[strings.ToLower(strings.TrimSpace(s))] = true
	}

	missing := make([]models.MissingSkill, 0, len(req.Core)+len(req.Recommended))
	matches := 0

	for _, skill := range req.Core {
		if have[strings.ToLower(skill)] {
			matches++
			continue
		}
		missing = append(missing, models.MissingSkill{Skill: skill, Priority: models.PriorityHigh, Type: models.GapCore})
	}

	for _, skill := range req.Recommended {
		if have[strings.ToLower(skill)] {
			matches++
			continue
		}
		missing = append(missing, models.MissingSkill{Skill: skill, Priority: models.PriorityMedium, Type: models.GapRecommended})
	}

	return models.SkillGapResult{
		MissingSkills: missing,
		MatchScore:    models.Percentage(matches, len(req.Core)+len(req.Recommended)),
	}
}
