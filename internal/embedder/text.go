package embedder

import (
	"strings"

	"github.com/dshills/impactmatch/pkg/types"
)

// MaxTextLength bounds the canonical text sent to a provider, in runes
const MaxTextLength = 8000

// SkillLabeler resolves skill slugs to display labels
type SkillLabeler interface {
	SkillLabel(slug string) string
}

// SeekerText builds the canonical embedding text for a seeker. It returns ""
// when the profile carries nothing worth embedding.
func SeekerText(s *types.SeekerProfile, labels SkillLabeler) string {
	if s == nil {
		return ""
	}

	var parts []string
	if statement := strings.TrimSpace(s.ImpactStatement); statement != "" {
		parts = append(parts, statement)
	}
	if len(s.ImpactAreas) > 0 {
		names := make([]string, 0, len(s.ImpactAreas))
		for _, area := range s.ImpactAreas {
			names = append(names, area.Name)
		}
		parts = append(parts, "Impact areas: "+strings.Join(names, ", "))
	}
	if len(s.Skills) > 0 {
		skills := make([]string, 0, len(s.Skills))
		for _, slug := range s.Skills {
			if labels != nil {
				skills = append(skills, labels.SkillLabel(slug))
			} else {
				skills = append(skills, slug)
			}
		}
		parts = append(parts, "Skills: "+strings.Join(skills, ", "))
	}
	if s.WorkStyle != "" {
		parts = append(parts, "Work style: "+string(s.WorkStyle))
	}

	return truncate(strings.Join(parts, " "))
}

// JobText builds the canonical embedding text for a job
func JobText(j *types.Job) string {
	if j == nil {
		return ""
	}

	parts := []string{j.Title, j.Description}
	if j.Requirements != "" {
		parts = append(parts, j.Requirements)
	}
	if j.Impact != "" {
		parts = append(parts, j.Impact)
	}

	text := strings.Join(parts, " ")
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return truncate(text)
}

func truncate(text string) string {
	if len(text) <= MaxTextLength {
		return text
	}
	runes := []rune(text)
	if len(runes) <= MaxTextLength {
		return text
	}
	return string(runes[:MaxTextLength])
}
