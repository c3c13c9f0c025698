package models

// Profile is the input a roadmap is generated from. It is never stored on its own.
type Profile struct {
	Education string   `json:"education" validate:"required"`
	Skills    []string `json:"skills"`
	Interests string   `json:"interests"`
	Role      string   `json:"role" validate:"required"`
}

// GapPriority ranks a missing skill
type GapPriority string

const (
	PriorityHigh   GapPriority = "High"
	PriorityMedium GapPriority = "Medium"
)

// GapType tells whether a missing skill is core or recommended for the role
type GapType string

const (
	GapCore        GapType = "Core"
	GapRecommended GapType = "Recommended"
)

// MissingSkill is a skill the role requires that the user did not declare
type MissingSkill struct {
	Skill    string      `json:"skill"`
	Priority GapPriority `json:"priority"`
	Type     GapType     `json:"type"`
}

// SkillGapResult is the outcome of comparing declared skills with a role
type SkillGapResult struct {
	MissingSkills []MissingSkill `json:"missingSkills"`
	MatchScore    int            `json:"matchScore"`
}

// HighPriority returns the names of all High priority gaps
func (r SkillGapResult) HighPriority() []string {
	return r.byPriority(PriorityHigh)
}

// MediumPriority returns the names of all Medium priority gaps
func (r SkillGapResult) MediumPriority() []string {
	return r.byPriority(PriorityMedium)
}

func (r SkillGapResult) byPriority(p GapPriority) []string {
	var names []string
	for _, m := range r.MissingSkills {
		if m.Priority == p {
			names = append(names, m.Skill)
		}
	}
	return names
}

// RuleAnalysis is what the rule engine found in a profile
type RuleAnalysis struct {
	TriggeredRules     []string `json:"triggeredRules"`
	Reasoning          string   `json:"reasoning"`
	PromptAugmentation string   `json:"promptAugmentation"`
}

// Recommendation is a career suggested by the recommendation service
type Recommendation struct {
	Role       string         `json:"role"`
	Confidence float64        `json:"confidence"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// GenerateResult is returned by roadmap generation
type GenerateResult struct {
	Roadmap           *Artifact        `json:"roadmap"`
	TriggeredRules    []string         `json:"triggeredRules"`
	Reasoning         string           `json:"reasoning"`
	MLRecommendations []Recommendation `json:"mlRecommendations"`
	SkillsAnalysis    SkillGapResult   `json:"skillsAnalysis"`
	// Fallback is set when the generative service could not be used
	Fallback bool `json:"fallback"`
}
