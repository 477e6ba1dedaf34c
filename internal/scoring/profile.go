package scoring

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/dshills/impactmatch/internal/heuristics"
	"github.com/dshills/impactmatch/pkg/types"
)

// Profile sub-score weights
const (
	impactAreaWeight  = 0.27
	skillsWeight      = 0.33
	experienceWeight  = 0.17
	workStyleWeight   = 0.13
	preferencesWeight = 0.10
)

// Profile compares structured seeker and job data: impact area, skills,
// experience, work style and preferences
type Profile struct {
	tables *heuristics.Tables
}

// NewProfile creates the profile strategy
func NewProfile(tables *heuristics.Tables) *Profile {
	return &Profile{tables: tables}
}

func (p *Profile) Name() string { return "profile" }

// Score returns the weighted profile score with reasons in sub-score order
// and the job's missing skills as gaps
func (p *Profile) Score(seeker *types.SeekerProfile, job *types.Job) Result {
	var reasons []string

	impactArea := p.impactArea(seeker, job, &reasons)
	skills, gaps := p.skills(seeker, job, &reasons)
	experience := p.experience(seeker, job, &reasons)
	workStyle := p.workStyle(seeker, job, &reasons)
	preferences := p.preferences(seeker, job, &reasons)

	score := impactArea*impactAreaWeight +
		skills*skillsWeight +
		experience*experienceWeight +
		workStyle*workStyleWeight +
		preferences*preferencesWeight

	return Result{
		Score:   score,
		Reasons: reasons,
		Gaps:    gaps,
		Profile: &types.ProfileBreakdown{
			ImpactArea:  Round1(impactArea),
			Skills:      Round1(skills),
			Experience:  Round1(experience),
			WorkStyle:   Round1(workStyle),
			Preferences: Round1(preferences),
		},
	}
}

func (p *Profile) impactArea(seeker *types.SeekerProfile, job *types.Job, reasons *[]string) float64 {
	if job.Category == nil || len(seeker.ImpactAreas) == 0 {
		return NeutralScore
	}
	for _, area := range seeker.ImpactAreas {
		if sameCategory(area, *job.Category) {
			*reasons = append(*reasons, fmt.Sprintf("Matches your %s focus", job.Category.Name))
			return 100
		}
	}
	return 35
}

// sameCategory compares by id when both sides are persisted, otherwise by slug
func sameCategory(a, b types.Category) bool {
	if a.ID > 0 && b.ID > 0 {
		return a.ID == b.ID
	}
	return a.Slug != "" && a.Slug == b.Slug
}

func (p *Profile) skills(seeker *types.SeekerProfile, job *types.Job, reasons *[]string) (float64, []string) {
	if len(seeker.Skills) == 0 {
		return NeutralScore, nil
	}
	jobSkills := uniqueStrings(job.Skills)
	if len(jobSkills) == 0 {
		return p.skillsFromText(seeker, job, reasons), nil
	}

	have := seeker.SkillSet()
	overlap := 0
	var gaps []string
	for _, slug := range jobSkills {
		if _, ok := have[slug]; ok {
			overlap++
			continue
		}
		if len(gaps) < MaxGaps {
			gaps = append(gaps, p.tables.SkillLabel(slug))
		}
	}

	score := math.Max(35, float64(overlap)/float64(len(jobSkills))*100)
	if overlap >= 3 {
		score = math.Min(100, score+10)
	}
	if overlap > 0 {
		*reasons = append(*reasons, fmt.Sprintf("%d of %d required skills match", overlap, len(jobSkills)))
	}
	return score, gaps
}

// skillsFromText counts seeker skills mentioned in a job that lists none
func (p *Profile) skillsFromText(seeker *types.SeekerProfile, job *types.Job, reasons *[]string) float64 {
	text := strings.ToLower(job.Title + " " + job.Description + " " + job.Requirements)

	hits := 0
	for _, slug := range uniqueStrings(seeker.Skills) {
		if skill, ok := p.tables.Skill(slug); ok && strings.Contains(text, strings.ToLower(skill.Label)) {
			hits++
		} else if strings.Contains(text, strings.ReplaceAll(slug, "-", " ")) {
			hits++
		}
	}

	switch {
	case hits >= 5:
		*reasons = append(*reasons, "Multiple skills mentioned in job")
		return 85
	case hits >= 3:
		*reasons = append(*reasons, "Some skills found in job description")
		return 70
	case hits >= 1:
		return 55
	default:
		return 40
	}
}

func (p *Profile) experience(seeker *types.SeekerProfile, job *types.Job, reasons *[]string) float64 {
	if seeker.ExperienceLevel == "" {
		return NeutralScore
	}
	level := InferJobLevel(p.tables, job)
	if level == "" {
		return 60
	}
	for _, compatible := range p.tables.CompatibleLevels(string(seeker.ExperienceLevel)) {
		if compatible == level {
			*reasons = append(*reasons, "Experience level matches")
			return 100
		}
	}
	return 30
}

// InferJobLevel returns the first level whose keywords appear in the title or
// the start of the description, or "" when none do
func InferJobLevel(tables *heuristics.Tables, job *types.Job) string {
	description := job.Description
	if n := tables.LevelInference.DescriptionPrefix; n > 0 && len(description) > n {
		description = description[:n]
	}
	text := strings.ToLower(job.Title + " " + description)

	for _, level := range tables.LevelInference.Levels {
		for _, keyword := range level.Keywords {
			if strings.Contains(text, keyword) {
				return level.Level
			}
		}
	}
	return ""
}

func (p *Profile) workStyle(seeker *types.SeekerProfile, job *types.Job, reasons *[]string) float64 {
	if seeker.WorkStyle == "" {
		return NeutralScore
	}
	keywords := p.tables.WorkStyleKeywords[string(seeker.WorkStyle)]
	if len(keywords) == 0 {
		return NeutralScore
	}

	words := wordSet(job.Title + " " + job.Description)
	hits := 0
	for _, kw := range uniqueStrings(keywords) {
		if _, ok := words[kw]; ok {
			hits++
		}
	}

	switch {
	case hits >= 5:
		*reasons = append(*reasons, "Great fit for your work style")
		return 100
	case hits >= 3:
		*reasons = append(*reasons, "Aligns with your work style")
		return 80
	case hits >= 1:
		return 60
	default:
		return 30
	}
}

// wordSet lowercases text and splits it into letter runs of at least two
// characters, so short keywords like "ux" and "hr" can match
func wordSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) >= 2 {
			set[f] = struct{}{}
		}
	}
	return set
}

func (p *Profile) preferences(seeker *types.SeekerProfile, job *types.Job, reasons *[]string) float64 {
	score := NeutralScore

	if len(seeker.JobTypes) > 0 && job.JobType != "" && seeker.AcceptsJobType(job.JobType) {
		score += 25
	}

	if seeker.SalaryMin != nil && job.SalaryMin != nil && job.SalaryMax != nil {
		seekerMax := math.Inf(1)
		if seeker.SalaryMax != nil {
			seekerMax = float64(*seeker.SalaryMax)
		}
		if float64(*job.SalaryMin) <= seekerMax && *job.SalaryMax >= *seeker.SalaryMin {
			score += 25
			*reasons = append(*reasons, "Salary in your range")
		}
	}

	return math.Min(100, score)
}

// uniqueStrings drops duplicates and keeps first-seen order
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
