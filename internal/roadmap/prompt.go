package roadmap

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

const (
	generateSystem = "You are a helpful AI assistant that outputs strictly valid JSON."
	extractSystem  = "You output strictly valid JSON arrays of strings."

	generateTemperature = 0.5
	extractTemperature  = 0.3

	// maxExtractInput bounds the roadmap JSON sent for skill extraction
	maxExtractInput = 15000
)

// augmentPrompt folds rule directives, recommendations and skill gaps into
// the text appended to the roadmap prompt.
func augmentPrompt(analysis models.RuleAnalysis, recs []models.Recommendation, gaps models.SkillGapResult) string {
	var b strings.Builder
	b.WriteString(analysis.PromptAugmentation)

	if len(recs) > 0 {
		parts := make([]string, 0, len(recs))
		for _, r := range recs {
			parts = append(parts, fmt.Sprintf("%s (%.0f%%)", r.Role, r.Confidence*100))
		}
		fmt.Fprintf(&b, "\n    ML Model Suggestion: The user's profile statistically aligns with: %s. Consider this in the roadmap if relevant.",
			strings.Join(parts, ", "))
	}

	if len(gaps.MissingSkills) > 0 {
		fmt.Fprintf(&b, `
    SKILL GAP ANALYSIS:
    - CRITICAL MISSING SKILLS: %s
    - RECOMMENDED SKILLS: %s

    ADAPTIVE INSTRUCTION: prioritize the 'CRITICAL MISSING SKILLS' in the early phases of the roadmap. Ensure these specific gaps are addressed immediately.`,
			joinOrNone(gaps.HighPriority()), joinOrNone(gaps.MediumPriority()))
	}

	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

// roadmapPrompt is the full generation prompt for a profile
func roadmapPrompt(p models.Profile, augmentation string) string {
	skills := strings.Join(p.Skills, ", ")

	return fmt.Sprintf(`
    You are an expert career counselor AI. Your task is to generate a personalized career roadmap for a user targeting the role of %[1]q.

    User Profile:
    - Education: %[2]s
    - Current Skills: %[3]s
    - Interests: %[4]s

    %[5]s

    STRICT REQUIREMENT:
    Return pure JSON only. No markdown, no "Here is the JSON", no backticks.
    The valid JSON object must strictly follow this structure:

    {
      "userSummary": {
        "role": %[1]q,
        "education": %[2]q,
        "currentSkills": %[3]q,
        "interests": %[4]q
      },
      "jobSuggestions": [
        { "title": "Job Title 1", "description": "1-line description of what they do." },
        { "title": "Job Title 2", "description": "1-line description of what they do." }
      ],
      "skillsAnalysis": {
        "requiredSkills": ["Skill A", "Skill B", "Skill C"],
        "existingSkills": ["Skill A"],
        "missingSkills": ["Skill B", "Skill C"],
        "matchPercentage": 33
      },
      "roadmap": [
        {
          "phase": "Months 1-2: Foundations",
          "focus": "Core concepts and basics",
          "skills": ["Skill A", "Skill B"],
          "projects": ["Project Idea 1"]
        },
        {
          "phase": "Months 3-4: Advanced",
          "focus": "Deep dive and complex topics",
          "skills": ["Skill C", "Skill D"],
          "projects": ["Project Idea 2"]
        }
      ]
    }
    matchPercentage is an integer between 0 and 100.
    `, p.Role, p.Education, skills, p.Interests, augmentation)
}

// extractionInput is the part of an artifact skills are extracted from
type extractionInput struct {
	SkillsAnalysis models.SkillsAnalysis `json:"skillsAnalysis"`
	Roadmap        []models.Phase        `json:"roadmap"`
}

// extractPrompt asks for a flat skill list. The embedded roadmap JSON is cut
// at maxExtractInput bytes, on a rune boundary.
func extractPrompt(a *models.Artifact) (string, error) {
	data, err := json.Marshal(extractionInput{SkillsAnalysis: a.SkillsAnalysis, Roadmap: a.Roadmap})
	if err != nil {
		return "", fmt.Errorf("failed to marshal roadmap: %w", err)
	}
	if len(data) > maxExtractInput {
		cut := maxExtractInput
		for cut > 0 && !utf8.RuneStart(data[cut]) {
			cut--
		}
		data = data[:cut]
	}

	return fmt.Sprintf(`
    You are an expert technical recruiter and career coach.
    Analyze the following career roadmap JSON and extract a simplified, flat list of distinct technical and soft skills mentioned.

    Roadmap Data:
    %s

    Rules:
    1. Return ONLY a JSON array of strings. Example: ["React", "Node.js", "Leadership"].
    2. Extract skills from the "roadmap" phases, "focus" areas, and "projects".
    3. Normalize names (e.g., "Intro to Python" -> "Python").
    4. De-duplicate.
    5. No markdown, no "Here is the list". Pure JSON array.
    `, data), nil
}
