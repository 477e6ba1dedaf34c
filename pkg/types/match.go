package types

// Tier is the impact-potential classification of a match
type Tier string

const (
	TierExceptional Tier = "exceptional"
	TierHigh        Tier = "high"
	TierModerate    Tier = "moderate"
	TierStandard    Tier = "standard"
)

// Breakdown holds the four weighted signals of a match, each in [0,100]
type Breakdown struct {
	Semantic float64 `json:"semantic"`
	Lexical  float64 `json:"lexical"`
	Profile  float64 `json:"profile"`
	Impact   float64 `json:"impact"`
}

// ProfileBreakdown holds the five profile sub-scores, each in [0,100]
type ProfileBreakdown struct {
	ImpactArea  float64 `json:"impact_area"`
	Skills      float64 `json:"skills"`
	Experience  float64 `json:"experience"`
	WorkStyle   float64 `json:"work_style"`
	Preferences float64 `json:"preferences"`
}

// ImpactBreakdown holds the impact-potential components, each in [0,1]
type ImpactBreakdown struct {
	OrgCredibility float64 `json:"org_credibility"`
	RoleLeverage   float64 `json:"role_leverage"`
	SkillScarcity  float64 `json:"skill_scarcity"`
}

// MatchResult is the explained score of one seeker/job pair
type MatchResult struct {
	SeekerID int64 `json:"seeker_id"`
	JobID    int64 `json:"job_id"`

	Score     float64          `json:"score"`
	Breakdown Breakdown        `json:"breakdown"`
	Profile   ProfileBreakdown `json:"profile_breakdown"`
	Impact    ImpactBreakdown  `json:"impact_breakdown"`
	Tier      Tier             `json:"tier"`

	Reasons       []string `json:"reasons"`
	Gaps          []string `json:"gaps"`
	ImpactReasons []string `json:"impact_reasons"`
}

// Validate checks that every score is within its documented bounds
func (m *MatchResult) Validate() error {
	for _, v := range []float64{m.Score, m.Breakdown.Semantic, m.Breakdown.Lexical, m.Breakdown.Profile, m.Breakdown.Impact} {
		if v < 0 || v > 100 {
			return ErrInvalidScore
		}
	}
	return nil
}

// CandidateMatch pairs a seeker with its match against a job
type CandidateMatch struct {
	Seeker *SeekerProfile
	Match  *MatchResult
}
