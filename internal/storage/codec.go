package storage

import (
	"encoding/json"
	"fmt"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

// roadmapColumns holds the JSON encoded parts of a roadmap
type roadmapColumns struct {
	UserSummary    []byte
	JobSuggestions []byte
	SkillsAnalysis []byte
	Phases         []byte
	Progress       []byte
}

func encodeRoadmap(rm *models.Roadmap) (*roadmapColumns, error) {
	var cols roadmapColumns
	var err error

	if cols.UserSummary, err = json.Marshal(rm.UserSummary); err != nil {
		return nil, fmt.Errorf("failed to marshal user summary: %w", err)
	}
	if cols.JobSuggestions, err = json.Marshal(nonNil(rm.JobSuggestions)); err != nil {
		return nil, fmt.Errorf("failed to marshal job suggestions: %w", err)
	}
	if cols.SkillsAnalysis, err = json.Marshal(rm.SkillsAnalysis); err != nil {
		return nil, fmt.Errorf("failed to marshal skills analysis: %w", err)
	}
	if cols.Phases, err = json.Marshal(nonNil(rm.Roadmap)); err != nil {
		return nil, fmt.Errorf("failed to marshal phases: %w", err)
	}
	if cols.Progress, err = encodeProgress(rm.Progress); err != nil {
		return nil, err
	}

	return &cols, nil
}

func encodeProgress(p models.Progress) ([]byte, error) {
	p.Skills = nonNil(p.Skills)
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal progress: %w", err)
	}
	return data, nil
}

func decodeRoadmap(rm *models.Roadmap, cols *roadmapColumns) error {
	if err := json.Unmarshal(cols.UserSummary, &rm.UserSummary); err != nil {
		return fmt.Errorf("failed to unmarshal user summary: %w", err)
	}
	if err := json.Unmarshal(cols.JobSuggestions, &rm.JobSuggestions); err != nil {
		return fmt.Errorf("failed to unmarshal job suggestions: %w", err)
	}
	if err := json.Unmarshal(cols.SkillsAnalysis, &rm.SkillsAnalysis); err != nil {
		return fmt.Errorf("failed to unmarshal skills analysis: %w", err)
	}
	if err := json.Unmarshal(cols.Phases, &rm.Roadmap); err != nil {
		return fmt.Errorf("failed to unmarshal phases: %w", err)
	}

	// Stored aggregates are returned as written; callers reconcile when needed
	if err := json.Unmarshal(cols.Progress, &rm.Progress); err != nil {
		return fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	rm.Progress.Skills = nonNil(rm.Progress.Skills)

	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
