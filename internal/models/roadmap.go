package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Phase is one time-boxed segment of a roadmap
type Phase struct {
	Phase    string   `json:"phase"`
	Focus    string   `json:"focus"`
	Skills   []string `json:"skills"`
	Projects []string `json:"projects"`
}

// JobSuggestion is a job title proposed for the target role
type JobSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UserSummary echoes the profile the roadmap was generated for
type UserSummary struct {
	Role          string `json:"role"`
	Education     string `json:"education"`
	CurrentSkills string `json:"currentSkills"`
	Interests     string `json:"interests"`
}

// SkillNames is a list of skill names. When decoding it also accepts
// objects carrying the name under "skill" or "name".
type SkillNames []string

// UnmarshalJSON implements json.Unmarshaler
func (s *SkillNames) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	names := make(SkillNames, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			names = append(names, name)
			continue
		}

		var obj struct {
			Skill string `json:"skill"`
			Name  string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return err
		}
		switch {
		case obj.Skill != "":
			names = append(names, obj.Skill)
		case obj.Name != "":
			names = append(names, obj.Name)
		}
	}

	*s = names
	return nil
}

// SkillsAnalysis compares the skills a role requires with the ones the user has
type SkillsAnalysis struct {
	RequiredSkills  SkillNames `json:"requiredSkills"`
	ExistingSkills  SkillNames `json:"existingSkills"`
	MissingSkills   SkillNames `json:"missingSkills"`
	MatchPercentage int        `json:"matchPercentage"`
}

// Artifact is the generated roadmap content, before or after it is saved
type Artifact struct {
	UserSummary    UserSummary     `json:"userSummary"`
	JobSuggestions []JobSuggestion `json:"jobSuggestions"`
	SkillsAnalysis SkillsAnalysis  `json:"skillsAnalysis"`
	Roadmap        []Phase         `json:"roadmap"`
}

// ChecklistItem is one trackable skill of a roadmap
type ChecklistItem struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// Progress is the skill checklist of a roadmap with its aggregates.
// CompletedSkills and Percentage are always derived from Skills.
type Progress struct {
	TotalSkills     int             `json:"totalSkills"`
	CompletedSkills int             `json:"completedSkills"`
	Percentage      int             `json:"percentage"`
	Skills          []ChecklistItem `json:"skills"`
	LastUpdated     *time.Time      `json:"lastUpdated,omitempty"`
}

// NewProgress builds an untouched checklist from skill names.
// Blank names and exact duplicates are dropped, order is kept.
func NewProgress(names []string, now time.Time) Progress {
	seen := make(map[string]bool, len(names))
	items := make([]ChecklistItem, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		items = append(items, ChecklistItem{Name: name})
	}

	p := Progress{Skills: items, LastUpdated: &now}
	p.Reconcile()
	return p
}

// Reconcile recomputes TotalSkills, CompletedSkills and Percentage from Skills
func (p *Progress) Reconcile() {
	completed := 0
	for _, s := range p.Skills {
		if s.Completed {
			completed++
		}
	}
	p.TotalSkills = len(p.Skills)
	p.CompletedSkills = completed
	p.Percentage = Percentage(completed, len(p.Skills))
}

// Toggle sets the completion flag of a skill, appending it when it is not
// on the checklist yet, and stamps LastUpdated.
func (p *Progress) Toggle(name string, completed bool, now time.Time) {
	found := false
	for i := range p.Skills {
		if p.Skills[i].Name == name {
			p.Skills[i].Completed = completed
			found = true
			break
		}
	}
	if !found {
		p.Skills = append(p.Skills, ChecklistItem{Name: name, Completed: completed})
	}

	p.Reconcile()
	p.LastUpdated = &now
}

// Percentage returns round(100*completed/total), or 0 for an empty checklist
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(100*float64(completed)/float64(total) + 0.5))
}

// Roadmap is a saved learning plan owned by one user
type Roadmap struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Artifact
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"createdAt"`
}

// Role is the target role, derived from the user summary
func (r *Roadmap) Role() string {
	return r.UserSummary.Role
}

// Education is derived from the user summary
func (r *Roadmap) Education() string {
	return r.UserSummary.Education
}

// MarshalJSON adds the derived role and education fields
func (r Roadmap) MarshalJSON() ([]byte, error) {
	type plain Roadmap
	return json.Marshal(struct {
		plain
		Role      string `json:"role"`
		Education string `json:"education"`
	}{plain(r), r.Role(), r.Education()})
}

// RoadmapFilters defines filters for listing roadmaps
type RoadmapFilters struct {
	UserID string
	// OrderByCreated lists newest first by creation time only
	OrderByCreated bool
	Limit          int
}
