package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/dshills/impactmatch/internal/heuristics"
	"github.com/dshills/impactmatch/pkg/types"
)

// Impact potential component weights
const (
	orgCredibilityWeight = 0.40
	roleLeverageWeight   = 0.30
	skillScarcityWeight  = 0.30
)

// Impact estimates the counterfactual impact of a placement from
// organization credibility, role leverage and skill scarcity
type Impact struct {
	tables *heuristics.Tables
}

// NewImpact creates the impact potential strategy
func NewImpact(tables *heuristics.Tables) *Impact {
	return &Impact{tables: tables}
}

func (i *Impact) Name() string { return "impact" }

// Score returns the impact potential on 0-100 with its tier. Reasons are
// ordered organization, role, scarcity.
func (i *Impact) Score(seeker *types.SeekerProfile, job *types.Job) Result {
	org, orgReasons := i.OrgCredibility(job.Organization)
	role, roleReasons := i.RoleLeverage(job.Title)
	scarcity, scarcityReasons := i.SkillScarcity(seeker.Skills, job.Skills)

	potential := org*orgCredibilityWeight + role*roleLeverageWeight + scarcity*skillScarcityWeight

	reasons := make([]string, 0, len(orgReasons)+len(roleReasons)+len(scarcityReasons))
	reasons = append(reasons, orgReasons...)
	reasons = append(reasons, roleReasons...)
	reasons = append(reasons, scarcityReasons...)

	return Result{
		Score:   potential * 100,
		Reasons: reasons,
		Impact: &types.ImpactBreakdown{
			OrgCredibility: math.Round(org*1000) / 1000,
			RoleLeverage:   math.Round(role*1000) / 1000,
			SkillScarcity:  math.Round(scarcity*1000) / 1000,
		},
		Tier: TierFor(potential),
	}
}

// OrgCredibility sums verified third-party and transparency signals and
// normalizes to 0-1. A job without an organization scores 0.
func (i *Impact) OrgCredibility(org *types.Organization) (float64, []string) {
	if org == nil {
		return 0, nil
	}
	t := i.tables.OrgCredibility
	points := 0.0
	var reasons []string

	if org.IsGiveWellTopCharity {
		points += t.GiveWellTopCharity
		reasons = append(reasons, "GiveWell Top Charity (rigorous impact evaluation)")
	}
	if org.Is80kRecommended {
		points += t.EightyKRecommended
		reasons = append(reasons, "Recommended by 80,000 Hours")
	}
	if org.IsBCorpCertified {
		bcorp, tiered := bcorpPoints(t.BCorp, org.BCorpScore)
		points += bcorp
		if tiered {
			reasons = append(reasons, fmt.Sprintf("B Corp Certified (Score: %d)", *org.BCorpScore))
		} else {
			reasons = append(reasons, "B Corp Certified")
		}
	}
	if org.HasPublicImpactReport {
		points += t.PublicImpactReport
		reasons = append(reasons, "Publishes impact reports")
	}
	if org.HasPublicFinancials {
		points += t.PublicFinancials
		reasons = append(reasons, "Transparent financials")
	}
	if org.ImpactStatement != "" {
		points += t.ImpactStatement
	}
	if org.ImpactMetricName != "" && org.ImpactMetricValue != "" {
		points += t.ImpactMetric
	}

	if t.MaxPoints <= 0 {
		return 0, reasons
	}
	return math.Min(points/t.MaxPoints, 1), reasons
}

// bcorpPoints picks the first tier the score reaches; tiers are ordered by
// descending min_score
func bcorpPoints(b heuristics.BCorpPoints, score *int) (float64, bool) {
	if score != nil && *score > 0 {
		for _, tier := range b.Tiers {
			if *score >= tier.MinScore {
				return tier.Points, true
			}
		}
	}
	return b.Base, false
}

// RoleLeverage takes the highest-scoring title keyword, or the default points
// when none match, and normalizes by the maximum
func (i *Impact) RoleLeverage(title string) (float64, []string) {
	t := i.tables.RoleLeverage
	if strings.TrimSpace(title) == "" {
		return t.EmptyTitleScore, nil
	}
	lower := strings.ToLower(title)

	best := 0.0
	matched := false
	for _, kw := range t.Keywords {
		if kw.Points > best && strings.Contains(lower, kw.Keyword) {
			best = kw.Points
			matched = true
		}
	}
	if !matched {
		best = t.DefaultPoints
	}

	var reasons []string
	switch {
	case matched && best >= t.HighReasonPoints:
		reasons = append(reasons, "Senior-level role with high organizational leverage")
	case matched && best >= t.ModerateReasonPoints:
		reasons = append(reasons, "Mid-senior role with moderate organizational leverage")
	}

	if t.MaxPoints <= 0 {
		return 0, reasons
	}
	return math.Min(best/t.MaxPoints, 1), reasons
}

// SkillScarcity averages the scarcity multipliers of the skills both sides
// share and maps the average onto 0-1
func (i *Impact) SkillScarcity(seekerSkills, jobSkills []string) (float64, []string) {
	t := i.tables.ScarceSkills
	if len(seekerSkills) == 0 || len(jobSkills) == 0 {
		return t.MissingScore, nil
	}

	have := make(map[string]struct{}, len(seekerSkills))
	for _, s := range seekerSkills {
		have[normalizeSkill(s)] = struct{}{}
	}
	var overlap []string
	seen := make(map[string]struct{}, len(jobSkills))
	for _, s := range jobSkills {
		n := normalizeSkill(s)
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := have[n]; ok {
			overlap = append(overlap, n)
		}
	}
	if len(overlap) == 0 {
		return t.NoOverlapScore, nil
	}

	total := 0.0
	var scarce []string
	for _, skill := range overlap {
		multiplier := t.Baseline
		if m, ok := scarcityMultiplier(t.Multipliers, skill); ok {
			multiplier = math.Max(multiplier, m)
			if m >= t.ReasonThreshold {
				scarce = append(scarce, skill)
			}
		}
		total += multiplier
	}
	avg := total / float64(len(overlap))
	score := math.Max(0, math.Min((avg-0.5)/1.0, 1))

	var reasons []string
	if len(scarce) > 0 {
		if len(scarce) > 3 {
			scarce = scarce[:3]
		}
		reasons = append(reasons, fmt.Sprintf("Your skills (%s) are in high demand for impact roles", strings.Join(scarce, ", ")))
	}
	return score, reasons
}

// scarcityMultiplier returns the first entry that contains, or is contained
// by, the skill
func scarcityMultiplier(entries []heuristics.ScarceSkill, skill string) (float64, bool) {
	for _, e := range entries {
		if strings.Contains(skill, e.Skill) || strings.Contains(e.Skill, skill) {
			return e.Multiplier, true
		}
	}
	return 0, false
}

// normalizeSkill lowercases a slug and turns hyphens into spaces so
// "machine-learning" meets the "machine learning" entry
func normalizeSkill(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", " ")
}
