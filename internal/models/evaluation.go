package models

import "time"

// EvaluationStatus is the coarse progress label of a roadmap
type EvaluationStatus string

const (
	StatusJustStarted    EvaluationStatus = "Just Started"
	StatusOnTrack        EvaluationStatus = "On Track"
	StatusNeedsAttention EvaluationStatus = "Needs Attention"
	StatusStalled        EvaluationStatus = "Stalled"
)

// Evaluation is derived from a roadmap's progress and cached one-to-one with it
type Evaluation struct {
	RoadmapID            string           `json:"roadmapId"`
	CompletionRate       int              `json:"completionRate"`
	TotalSkills          int              `json:"totalSkills"`
	CompletedSkillsCount int              `json:"completedSkillsCount"`
	Status               EvaluationStatus `json:"status"`
	LastUpdated          time.Time        `json:"lastUpdated"`
}

// DatasetRow is one exported evaluation outcome
type DatasetRow struct {
	Role                string           `json:"role"`
	Education           string           `json:"education"`
	StartSkills         string           `json:"startSkills"`
	FinalCompletionRate int              `json:"finalCompletionRate"`
	Outcome             EvaluationStatus `json:"outcome"`
}
