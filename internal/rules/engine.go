// Package rules inspects a profile and decides how the roadmap prompt must be
// steered before it is sent to the generative model.
package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

// Rule labels reported in RuleAnalysis.TriggeredRules
const (
	RuleMissingPython    = "Missing Core Language (Python)"
	RuleCSFundamentals   = "CS Fundamentals Recommended"
	RuleMissingWebBasics = "Missing Web Basics"
	RuleStackPython      = "Stack Preference: Python"
	RuleStackJavaScript  = "Stack Preference: JavaScript"
)

// facts is the normalized view of a profile the rules run against
type facts struct {
	role      string
	roleLower string
	education string
	skills    []string
}

func (f facts) has(skill string) bool {
	return slices.Contains(f.skills, skill)
}

func (f facts) roleMentions(words ...string) bool {
	for _, w := range words {
		if strings.Contains(f.roleLower, w) {
			return true
		}
	}
	return false
}

// outcome is what a fired rule contributes
type outcome struct {
	label     string
	reasoning string
	clause    string
}

// rule returns ok=false when it does not fire
type rule func(f facts) (outcome, bool)

var nonTraditionalEducation = []string{"high school", "self-taught", "non-technical"}

// defaultRules run in this order; the order only affects how the prompt
// augmentation is concatenated.
var defaultRules = []rule{
	missingPython,
	csFundamentals,
	missingWebBasics,
	stackPreference,
}

func missingPython(f facts) (outcome, bool) {
	if !f.roleMentions("ai", "data", "machine learning") || f.has("python") {
		return outcome{}, false
	}
	return outcome{
		label:     RuleMissingPython,
		reasoning: fmt.Sprintf("The target role %q heavily relies on Python, which was not listed in your current skills.", f.role),
		clause:    " IMPORTANT: The user is missing Python. The roadmap MUST start with Python fundamentals for Data Science/AI. ",
	}, true
}

func csFundamentals(f facts) (outcome, bool) {
	if !slices.Contains(nonTraditionalEducation, f.education) {
		return outcome{}, false
	}
	return outcome{
		label:     RuleCSFundamentals,
		reasoning: "Since you are starting from a non-traditional academic background, strong CS fundamentals (Algorithms, Data Structures) are critical.",
		clause:    " ADDITION: Include specific modules on CS Fundamentals (Data Structures & Algorithms) in the early phases. ",
	}, true
}

func missingWebBasics(f facts) (outcome, bool) {
	if !f.roleMentions("web", "frontend", "full stack") {
		return outcome{}, false
	}
	if f.has("javascript") || f.has("react") || f.has("html") {
		return outcome{}, false
	}
	return outcome{
		label:     RuleMissingWebBasics,
		reasoning: "Targeting Web Development requires HTML/CSS/JS. These are prioritized.",
		clause:    " PRIORITY: Start with robust HTML/CSS/JavaScript deep dives before frameworks. ",
	}, true
}

// stackPreference fires at most once: python is checked before javascript
func stackPreference(f facts) (outcome, bool) {
	switch {
	case f.has("python"):
		return outcome{
			label:     RuleStackPython,
			reasoning: "User has existing Python skills. Roadmap will focus on Python-based web frameworks (Django/Flask).",
			clause:    " CONSTRAINT: The user knows Python. STRICTLY generate a roadmap for a Python Full Stack Developer using Django or Flask. Do NOT suggest MERN stack unless explicitly requested. ",
		}, true
	case f.has("javascript"):
		return outcome{
			label:     RuleStackJavaScript,
			reasoning: "User has existing JavaScript skills. Roadmap will focus on the MERN stack.",
			clause:    " CONSTRAINT: The user knows JavaScript. Generate a roadmap for the MERN Stack (MongoDB, Express, React, Node.js). ",
		}, true
	}
	return outcome{}, false
}

// AnalyzeProfile runs every rule against the profile. It never fails; a
// profile that triggers nothing yields empty results.
func AnalyzeProfile(p models.Profile) models.RuleAnalysis {
	f := facts{
		role:      p.Role,
		roleLower: strings.ToLower(p.Role),
		education: strings.ToLower(strings.TrimSpace(p.Education)),
		skills:    make([]string, 0, len(p.Skills)),
	}
	for _, s := range p.Skills {
		f.skills = append(f.skills, strings.ToLower(strings.TrimSpace(s)))
	}

	analysis := models.RuleAnalysis{TriggeredRules: []string{}}
	var reasoning []string
	var augmentation strings.Builder

	for _, r := range defaultRules {
		out, ok := r(f)
		if !ok {
			continue
		}
		analysis.TriggeredRules = append(analysis.TriggeredRules, out.label)
		reasoning = append(reasoning, out.reasoning)
		augmentation.WriteString(out.clause)
	}

	analysis.Reasoning = strings.Join(reasoning, " ")
	analysis.PromptAugmentation = augmentation.String()
	return analysis
}
