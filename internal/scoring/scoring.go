package scoring

import (
	"math"

	"github.com/dshills/impactmatch/pkg/types"
)

// Component weights of the final score
const (
	SemanticWeight = 0.35
	LexicalWeight  = 0.15
	ProfileWeight  = 0.30
	ImpactWeight   = 0.20
)

// NeutralScore is returned by every component that lacks the data to judge
const NeutralScore = 50.0

// Limits on explanation lists
const (
	MaxReasons = 5
	MaxGaps    = 5
)

// Semantic reason thresholds
const (
	StrongSemanticThreshold = 80.0
	GoodSemanticThreshold   = 65.0
)

// Strategy scores one facet of a seeker/job pair. Implementations are pure
// and safe for concurrent use.
type Strategy interface {
	Name() string
	Score(seeker *types.SeekerProfile, job *types.Job) Result
}

// Result is a strategy's verdict on a pair
type Result struct {
	Score   float64 // 0-100
	Reasons []string
	Gaps    []string

	// Component details; nil for strategies that do not produce them
	Profile *types.ProfileBreakdown
	Impact  *types.ImpactBreakdown
	Tier    types.Tier
}

// SemanticScore converts a cosine distance to 0-100. ok=false means there was
// no vector to compare and yields the neutral score.
func SemanticScore(distance float64, ok bool) float64 {
	if !ok {
		return NeutralScore
	}
	return clamp((1 - distance) * 100)
}

// TierFor classifies a 0-1 impact potential
func TierFor(potential float64) types.Tier {
	switch {
	case potential >= 0.75:
		return types.TierExceptional
	case potential >= 0.55:
		return types.TierHigh
	case potential >= 0.35:
		return types.TierModerate
	default:
		return types.TierStandard
	}
}

// Combine merges component results into a MatchResult. The final score uses
// the unrounded component values.
func Combine(seekerID, jobID int64, semantic float64, lexical, profile, impact Result) *types.MatchResult {
	score := semantic*SemanticWeight +
		lexical.Score*LexicalWeight +
		profile.Score*ProfileWeight +
		impact.Score*ImpactWeight

	reasons := make([]string, 0, MaxReasons)
	switch {
	case semantic >= StrongSemanticThreshold:
		reasons = append(reasons, "Strong semantic match with your profile")
	case semantic >= GoodSemanticThreshold:
		reasons = append(reasons, "Good relevance to your background")
	}
	reasons = append(reasons, lexical.Reasons...)
	reasons = append(reasons, profile.Reasons...)
	reasons = append(reasons, impact.Reasons...)

	gaps := append([]string{}, profile.Gaps...)

	result := &types.MatchResult{
		SeekerID: seekerID,
		JobID:    jobID,
		Score:    Round1(clamp(score)),
		Breakdown: types.Breakdown{
			Semantic: Round1(semantic),
			Lexical:  Round1(lexical.Score),
			Profile:  Round1(profile.Score),
			Impact:   Round1(impact.Score),
		},
		Tier:          impact.Tier,
		Reasons:       truncate(reasons, MaxReasons),
		Gaps:          truncate(gaps, MaxGaps),
		ImpactReasons: append([]string{}, impact.Reasons...),
	}
	if profile.Profile != nil {
		result.Profile = *profile.Profile
	}
	if impact.Impact != nil {
		result.Impact = *impact.Impact
	}
	if result.Tier == "" {
		result.Tier = types.TierStandard
	}
	return result
}

// Round1 rounds half away from zero to one decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func truncate(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}
