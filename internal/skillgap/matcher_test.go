package skillgap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

func TestAnalyzeGaps_NoSkillsAIEngineer(t *testing.T) {
	result := DefaultTable().AnalyzeGaps(nil, "AI Engineer")

	assert.Equal(t, 0, result.MatchScore)
	assert.Equal(t, []models.MissingSkill{
		{Skill: "python", Priority: models.PriorityHigh, Type: models.GapCore},
		{Skill: "machine learning", Priority: models.PriorityHigh, Type: models.GapCore},
		{Skill: "mathematics", Priority: models.PriorityHigh, Type: models.GapCore},
		{Skill: "tensorflow", Priority: models.PriorityMedium, Type: models.GapRecommended},
		{Skill: "pytorch", Priority: models.PriorityMedium, Type: models.GapRecommended},
		{Skill: "sql", Priority: models.PriorityMedium, Type: models.GapRecommended},
		{Skill: "git", Priority: models.PriorityMedium, Type: models.GapRecommended},
	}, result.MissingSkills)
}

func TestAnalyzeGaps_MatchScoreRounds(t *testing.T) {
	result := DefaultTable().AnalyzeGaps([]string{"python", "sql"}, "ai engineer")

	assert.Equal(t, 29, result.MatchScore)
	assert.Len(t, result.MissingSkills, 5)
	assert.Equal(t, []string{"machine learning", "mathematics"}, result.HighPriority())
	assert.Equal(t, []string{"tensorflow", "pytorch", "git"}, result.MediumPriority())
}

func TestAnalyzeGaps_CaseInsensitiveSkills(t *testing.T) {
	result := DefaultTable().AnalyzeGaps([]string{"PYTHON", " Machine Learning ", "Mathematics"}, "Senior AI Engineer")

	for _, m := range result.MissingSkills {
		assert.Equal(t, models.PriorityMedium, m.Priority, "core skill %s should be matched", m.Skill)
	}
	assert.Equal(t, 43, result.MatchScore)
}

func TestAnalyzeGaps_UnknownRole(t *testing.T) {
	result := DefaultTable().AnalyzeGaps([]string{"python"}, "Chef")

	assert.Equal(t, 0, result.MatchScore)
	assert.NotNil(t, result.MissingSkills)
	assert.Empty(t, result.MissingSkills)
}

func TestAnalyzeGaps_FirstMatchWins(t *testing.T) {
	table := NewTable([]RoleRequirement{
		{Key: "developer", Core: []string{"Go"}},
		{Key: "backend developer", Core: []string{"SQL"}},
	})

	result := table.AnalyzeGaps(nil, "Senior Backend Developer")

	require.Len(t, result.MissingSkills, 1)
	assert.Equal(t, "Go", result.MissingSkills[0].Skill)
}

func TestAnalyzeGaps_SyntheticTable(t *testing.T) {
	table := NewTable([]RoleRequirement{
		{Key: "Chef", Core: []string{"Knife Skills", "Sauces"}, Recommended: []string{"Pastry"}},
	})

	result := table.AnalyzeGaps([]string{"sauces"}, "sous chef")

	assert.Equal(t, 33, result.MatchScore)
	assert.Equal(t, []models.MissingSkill{
		{Skill: "Knife Skills", Priority: models.PriorityHigh, Type: models.GapCore},
		{Skill: "Pastry", Priority: models.PriorityMedium, Type: models.GapRecommended},
	}, result.MissingSkills)
}

func TestAnalyzeGaps_RoleWithoutRequirements(t *testing.T) {
	table := NewTable([]RoleRequirement{{Key: "generalist"}})

	result := table.AnalyzeGaps([]string{"anything"}, "generalist")

	assert.Equal(t, 0, result.MatchScore)
	assert.Empty(t, result.MissingSkills)
}

func TestDefaultTable_Order(t *testing.T) {
	roles := DefaultTable().Roles()
	require.Len(t, roles, 8)
	assert.Equal(t, "ai engineer", roles[0].Key)
	assert.Equal(t, "devops engineer", roles[7].Key)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	content := `
roles:
  - key: Game Developer
    core: [C++, Unity]
    recommended: [Blender]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadFromFile(path)
	require.NoError(t, err)

	req, ok := table.Match("Indie GAME DEVELOPER")
	require.True(t, ok)
	assert.Equal(t, "game developer", req.Key)
	assert.Equal(t, []string{"C++", "Unity"}, req.Core)
}

func TestParseTable_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":     "roles: []",
		"no key":    "roles:\n  - core: [a]",
		"duplicate": "roles:\n  - key: a\n  - key: A",
		"bad yaml":  "roles: [",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTable([]byte(content))
			assert.Error(t, err)
		})
	}
}
