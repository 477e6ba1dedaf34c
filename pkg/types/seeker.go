package types

import (
	"fmt"
	"strings"
	"time"
)

// WorkStyle is the kind of work a seeker wants to do
type WorkStyle string

const (
	WorkStyleBuilder    WorkStyle = "builder"
	WorkStyleStrategist WorkStyle = "strategist"
	WorkStyleOperator   WorkStyle = "operator"
	WorkStyleDirect     WorkStyle = "direct"
	WorkStyleResearcher WorkStyle = "researcher"
)

// ExperienceLevel is the seeker's self-declared career stage
type ExperienceLevel string

const (
	ExperienceEarly         ExperienceLevel = "early"
	ExperienceMid           ExperienceLevel = "mid"
	ExperienceSenior        ExperienceLevel = "senior"
	ExperienceLeadership    ExperienceLevel = "leadership"
	ExperienceCareerChanger ExperienceLevel = "career_changer"
)

// RemotePreference captures where the seeker is willing to work
type RemotePreference string

const (
	RemoteFully    RemotePreference = "remote"
	RemoteHybrid   RemotePreference = "hybrid"
	RemoteOnsite   RemotePreference = "onsite"
	RemoteFlexible RemotePreference = "flexible"
)

// Visibility controls whether a seeker appears in candidate searches
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityMatching Visibility = "matching"
	VisibilityHidden   Visibility = "hidden"
)

// SeekerProfile is a job seeker's matching profile built by the onboarding wizard
type SeekerProfile struct {
	// Identification
	ID int64

	// Structured matching data
	Skills           []string   // Skill taxonomy slugs
	ImpactAreas      []Category // Selected impact areas
	WorkStyle        WorkStyle
	ExperienceLevel  ExperienceLevel
	RemotePreference RemotePreference
	SalaryMin        *int
	SalaryMax        *int
	JobTypes         []JobType

	// Free text
	ImpactStatement     string
	LocationPreferences []string
	AssessmentAnswers   map[string]string

	// Search visibility
	Visibility        Visibility
	IsActivelyLooking bool
	WizardCompleted   bool

	// Vector search
	Embedding     []float32 // Unit vector or nil
	EmbeddingHash string    // Hash of the text that produced Embedding

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasEmbedding reports whether a vector is attached to the profile
func (s *SeekerProfile) HasEmbedding() bool {
	return len(s.Embedding) > 0
}

// SkillSet returns the seeker's skills as a set
func (s *SeekerProfile) SkillSet() map[string]struct{} {
	return toSet(s.Skills)
}

// HasImpactArea reports whether the seeker selected the given category
func (s *SeekerProfile) HasImpactArea(categoryID int64) bool {
	for _, area := range s.ImpactAreas {
		if area.ID == categoryID {
			return true
		}
	}
	return false
}

// AcceptsJobType reports whether the job type is in the seeker's accepted types
func (s *SeekerProfile) AcceptsJobType(jt JobType) bool {
	for _, t := range s.JobTypes {
		if t == jt {
			return true
		}
	}
	return false
}

// IsDiscoverable reports whether the seeker may appear in candidate searches
func (s *SeekerProfile) IsDiscoverable() bool {
	if !s.IsActivelyLooking {
		return false
	}
	return s.Visibility == VisibilityPublic || s.Visibility == VisibilityMatching
}

// Completeness computes the 0-100 profile completeness score
func (s *SeekerProfile) Completeness() int {
	score := 0

	if len(s.ImpactAreas) > 0 {
		score += 20
	}
	if s.WorkStyle != "" {
		score += 15
	}
	if s.ExperienceLevel != "" {
		score += 15
	}

	switch {
	case len(s.Skills) >= 3:
		score += 20
	case len(s.Skills) >= 1:
		score += 10
	}

	if s.RemotePreference != "" {
		score += 5
	}
	if s.SalaryMin != nil || s.SalaryMax != nil {
		score += 5
	}

	statement := strings.TrimSpace(s.ImpactStatement)
	switch {
	case len(statement) >= 50:
		score += 15
	case statement != "":
		score += 7
	}

	if len(s.AssessmentAnswers) > 0 {
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return score
}

// Validate checks enum fields and identity. Missing optional data is not an error.
func (s *SeekerProfile) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSeeker, ErrInvalidSeekerID)
	}

	switch s.WorkStyle {
	case "", WorkStyleBuilder, WorkStyleStrategist, WorkStyleOperator, WorkStyleDirect, WorkStyleResearcher:
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidSeeker, ErrInvalidWorkStyle, s.WorkStyle)
	}

	switch s.ExperienceLevel {
	case "", ExperienceEarly, ExperienceMid, ExperienceSenior, ExperienceLeadership, ExperienceCareerChanger:
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidSeeker, ErrInvalidExperience, s.ExperienceLevel)
	}

	switch s.Visibility {
	case "", VisibilityPublic, VisibilityMatching, VisibilityHidden:
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidSeeker, ErrInvalidVisibility, s.Visibility)
	}

	if s.SalaryMin != nil && s.SalaryMax != nil && *s.SalaryMin > *s.SalaryMax {
		return fmt.Errorf("%w: %w", ErrInvalidSeeker, ErrInvalidSalaryRange)
	}

	return nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
