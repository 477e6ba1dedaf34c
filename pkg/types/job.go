package types

import (
	"fmt"
	"strings"
	"time"
)

// JobType is the employment arrangement of a job posting
type JobType string

const (
	JobTypeFullTime  JobType = "full-time"
	JobTypePartTime  JobType = "part-time"
	JobTypeContract  JobType = "contract"
	JobTypeFreelance JobType = "freelance"
)

// Category is an impact area (cause or domain) used for thematic matching
type Category struct {
	ID   int64
	Slug string
	Name string
}

// Organization carries the third-party credibility signals of an employer
type Organization struct {
	ID   int64
	Name string

	// Verified endorsements
	IsGiveWellTopCharity bool
	Is80kRecommended     bool
	IsBCorpCertified     bool
	BCorpScore           *int

	// Transparency
	HasPublicImpactReport bool
	HasPublicFinancials   bool

	// Profile
	ImpactStatement   string
	ImpactMetricName  string
	ImpactMetricValue string
}

// Job is a posting in the catalogue
type Job struct {
	// Identification
	ID           int64
	Title        string
	Organization *Organization // Nullable
	Category     *Category     // Nullable

	// Content
	Description  string
	Requirements string
	Impact       string
	Location     string
	JobType      JobType
	SalaryMin    *int
	SalaryMax    *int
	Skills       []string // Skill taxonomy slugs, may be empty

	// Vector search
	Embedding     []float32
	EmbeddingHash string

	// Lifecycle
	IsActive  bool
	PostedAt  time.Time
	ExpiresAt *time.Time
	UpdatedAt time.Time
}

// HasEmbedding reports whether a vector is attached to the job
func (j *Job) HasEmbedding() bool {
	return len(j.Embedding) > 0
}

// HasSearchText reports whether the job has any text for the lexical index
func (j *Job) HasSearchText() bool {
	for _, field := range []string{j.Title, j.Description, j.Impact, j.Requirements} {
		if strings.TrimSpace(field) != "" {
			return true
		}
	}
	return false
}

// SkillSet returns the job's skills as a set
func (j *Job) SkillSet() map[string]struct{} {
	return toSet(j.Skills)
}

// CategoryID returns the category identifier or 0 when uncategorized
func (j *Job) CategoryID() int64 {
	if j.Category == nil {
		return 0
	}
	return j.Category.ID
}

// Validate checks identity and enum fields
func (j *Job) Validate() error {
	if j.ID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrInvalidJobID)
	}
	if strings.TrimSpace(j.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyJobTitle)
	}

	switch j.JobType {
	case "", JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeFreelance:
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidJob, ErrInvalidJobType, j.JobType)
	}

	if j.SalaryMin != nil && j.SalaryMax != nil && *j.SalaryMin > *j.SalaryMax {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrInvalidSalaryRange)
	}

	return nil
}
