package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/terra-clan/roadmap-engine/internal/llm"
	"github.com/terra-clan/roadmap-engine/internal/models"
)

// ErrNoSkills is returned by an extractor that found nothing
var ErrNoSkills = errors.New("no skills extracted")

// Extractor derives a flat, de-duplicated skill checklist from an artifact
type Extractor interface {
	Extract(ctx context.Context, a *models.Artifact) ([]string, error)
}

// AIExtractor asks the generative model for the skill list
type AIExtractor struct {
	model llm.Client
}

// NewAIExtractor creates an extractor backed by the generative model
func NewAIExtractor(model llm.Client) *AIExtractor {
	return &AIExtractor{model: model}
}

// Extract implements Extractor
func (e *AIExtractor) Extract(ctx context.Context, a *models.Artifact) ([]string, error) {
	prompt, err := extractPrompt(a)
	if err != nil {
		return nil, err
	}

	raw, err := e.model.GenerateJSON(ctx, llm.Request{
		System:      extractSystem,
		Prompt:      prompt,
		Temperature: extractTemperature,
	})
	if err != nil {
		return nil, err
	}

	skills, err := parseSkillList(raw)
	if err != nil {
		return nil, err
	}
	if len(skills) == 0 {
		return nil, ErrNoSkills
	}
	return skills, nil
}

// parseSkillList accepts a bare array, an object with a "skills" or
// "extractedSkills" array, or any other object whose values are flattened.
func parseSkillList(raw string) ([]string, error) {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse skill list: %w", err)
	}

	switch v := parsed.(type) {
	case []any:
		return uniqueStrings(v), nil
	case map[string]any:
		for _, key := range []string{"skills", "extractedSkills"} {
			if list, ok := v[key].([]any); ok {
				return uniqueStrings(list), nil
			}
		}

		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var flat []any
		for _, k := range keys {
			if list, ok := v[k].([]any); ok {
				flat = append(flat, list...)
			} else {
				flat = append(flat, v[k])
			}
		}
		return uniqueStrings(flat), nil
	default:
		return nil, fmt.Errorf("unexpected skill list type %T", parsed)
	}
}

// uniqueStrings keeps the non-blank strings of items, first occurrence wins
func uniqueStrings(items []any) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// HeuristicExtractor unions the required and missing skills of the analysis
// with every phase's skills. It never calls out.
type HeuristicExtractor struct{}

// Extract implements Extractor
func (HeuristicExtractor) Extract(_ context.Context, a *models.Artifact) ([]string, error) {
	var all []any
	for _, s := range a.SkillsAnalysis.RequiredSkills {
		all = append(all, s)
	}
	for _, s := range a.SkillsAnalysis.MissingSkills {
		all = append(all, s)
	}
	for _, phase := range a.Roadmap {
		for _, s := range phase.Skills {
			all = append(all, s)
		}
	}

	skills := uniqueStrings(all)
	if len(skills) == 0 {
		return nil, ErrNoSkills
	}
	return skills, nil
}

// ChainExtractor tries extractors in order and returns the first non-empty result
type ChainExtractor []Extractor

// NewDefaultExtractor tries the generative model first and falls back to the heuristic
func NewDefaultExtractor(model llm.Client) ChainExtractor {
	return ChainExtractor{NewAIExtractor(model), HeuristicExtractor{}}
}

// Extract implements Extractor
func (c ChainExtractor) Extract(ctx context.Context, a *models.Artifact) ([]string, error) {
	var errs []error
	for i, e := range c {
		skills, err := e.Extract(ctx, a)
		if err == nil && len(skills) > 0 {
			return skills, nil
		}
		if err == nil {
			err = ErrNoSkills
		}
		slog.Warn("skill extraction step failed", "step", i, "extractor", fmt.Sprintf("%T", e), "error", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}
