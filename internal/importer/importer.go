package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dshills/impactmatch/internal/heuristics"
	"github.com/dshills/impactmatch/internal/indexer"
	"github.com/dshills/impactmatch/internal/storage"
	"github.com/dshills/impactmatch/pkg/types"
)

// ErrInvalidCatalog is returned for malformed or inconsistent catalogue files
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the on-disk fixture format
type Catalog struct {
	Categories    []CategoryRecord     `yaml:"categories"`
	Organizations []OrganizationRecord `yaml:"organizations"`
	Jobs          []JobRecord          `yaml:"jobs"`
	Seekers       []SeekerRecord       `yaml:"seekers"`
}

// CategoryRecord is an impact area
type CategoryRecord struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

// OrganizationRecord is an employer. Key links jobs to it within the file.
type OrganizationRecord struct {
	Key                string `yaml:"key"`
	Name               string `yaml:"name"`
	GiveWellTopCharity bool   `yaml:"givewell_top_charity"`
	EightyKRecommended bool   `yaml:"eighty_k_recommended"`
	BCorpCertified     bool   `yaml:"bcorp_certified"`
	BCorpScore         *int   `yaml:"bcorp_score"`
	PublicImpactReport bool   `yaml:"public_impact_report"`
	PublicFinancials   bool   `yaml:"public_financials"`
	ImpactStatement    string `yaml:"impact_statement"`
	ImpactMetricName   string `yaml:"impact_metric_name"`
	ImpactMetricValue  string `yaml:"impact_metric_value"`
}

// JobRecord is a job posting
type JobRecord struct {
	ID           int64      `yaml:"id"`
	Title        string     `yaml:"title"`
	Organization string     `yaml:"organization"` // OrganizationRecord.Key
	Source       string     `yaml:"source"`       // Job board the posting came from
	Category     string     `yaml:"category"`     // Category slug
	Description  string     `yaml:"description"`
	Requirements string     `yaml:"requirements"`
	Impact       string     `yaml:"impact"`
	Location     string     `yaml:"location"`
	JobType      string     `yaml:"job_type"`
	SalaryMin    *int       `yaml:"salary_min"`
	SalaryMax    *int       `yaml:"salary_max"`
	Skills       []string   `yaml:"skills"`
	Active       *bool      `yaml:"active"` // Defaults to true
	PostedAt     *time.Time `yaml:"posted_at"`
	ExpiresAt    *time.Time `yaml:"expires_at"`
}

// SeekerRecord is a seeker profile
type SeekerRecord struct {
	ID                  int64             `yaml:"id"`
	Skills              []string          `yaml:"skills"`
	ImpactAreas         []string          `yaml:"impact_areas"` // Category slugs
	WorkStyle           string            `yaml:"work_style"`
	ExperienceLevel     string            `yaml:"experience_level"`
	RemotePreference    string            `yaml:"remote_preference"`
	SalaryMin           *int              `yaml:"salary_min"`
	SalaryMax           *int              `yaml:"salary_max"`
	JobTypes            []string          `yaml:"job_types"`
	ImpactStatement     string            `yaml:"impact_statement"`
	LocationPreferences []string          `yaml:"location_preferences"`
	AssessmentAnswers   map[string]string `yaml:"assessment_answers"`
	Visibility          string            `yaml:"visibility"`
	ActivelyLooking     bool              `yaml:"actively_looking"`
	WizardCompleted     bool              `yaml:"wizard_completed"`
}

// Enqueuer receives embedding work for imported entities
type Enqueuer interface {
	Enqueue(ctx context.Context, kind indexer.Kind, id int64) error
}

// Result counts what an import wrote
type Result struct {
	Categories    int     `json:"categories"`
	Organizations int     `json:"organizations"`
	Jobs          int     `json:"jobs"`
	Seekers       int     `json:"seekers"`
	Enqueued      int     `json:"enqueued"`
	JobIDs        []int64 `json:"job_ids"`
	SeekerIDs     []int64 `json:"seeker_ids"`
}

// Load decodes a catalogue. Unknown fields are rejected.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return &c, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return &c, nil
}

// LoadFile decodes a catalogue file
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Importer writes catalogues to a store
type Importer struct {
	store    storage.Store
	enqueuer Enqueuer
	tables   *heuristics.Tables
	logger   *zap.Logger
}

// Option configures an Importer
type Option func(*Importer)

// WithTables enables import-time enrichment: free-text skills are resolved to
// taxonomy slugs and organization endorsements are detected from names and
// job sources.
func WithTables(t *heuristics.Tables) Option {
	return func(im *Importer) { im.tables = t }
}

// New creates an Importer. enqueuer may be nil, in which case embeddings are
// left to the next backfill.
func New(store storage.Store, enqueuer Enqueuer, logger *zap.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	im := &Importer{store: store, enqueuer: enqueuer, logger: logger}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import writes the whole catalogue in one transaction, then enqueues
// embedding tasks for every job and seeker. Enqueue failures are logged and do
// not undo the import.
func (im *Importer) Import(ctx context.Context, c *Catalog) (*Result, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrInvalidCatalog)
	}
	orgs, jobs, seekers, err := c.build(im.tables)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	err = storage.WithTx(ctx, im.store, func(tx storage.Tx) error {
		for _, rec := range c.Categories {
			cat := types.Category{Slug: rec.Slug, Name: rec.Name}
			if err := tx.UpsertCategory(ctx, &cat); err != nil {
				return err
			}
			res.Categories++
		}
		for _, org := range orgs {
			if err := tx.UpsertOrganization(ctx, org); err != nil {
				return err
			}
			res.Organizations++
		}
		for _, job := range jobs {
			if err := tx.UpsertJob(ctx, job); err != nil {
				return fmt.Errorf("job %q: %w", job.Title, err)
			}
			res.Jobs++
			res.JobIDs = append(res.JobIDs, job.ID)
		}
		for i, seeker := range seekers {
			if err := tx.UpsertSeeker(ctx, seeker); err != nil {
				return fmt.Errorf("seeker #%d: %w", i+1, err)
			}
			res.Seekers++
			res.SeekerIDs = append(res.SeekerIDs, seeker.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	if im.enqueuer != nil {
		im.enqueue(ctx, indexer.KindJob, res.JobIDs, res)
		im.enqueue(ctx, indexer.KindSeeker, res.SeekerIDs, res)
	}

	im.logger.Info("catalog imported",
		zap.Int("categories", res.Categories),
		zap.Int("organizations", res.Organizations),
		zap.Int("jobs", res.Jobs),
		zap.Int("seekers", res.Seekers),
		zap.Int("enqueued", res.Enqueued))
	return res, nil
}

func (im *Importer) enqueue(ctx context.Context, kind indexer.Kind, ids []int64, res *Result) {
	for _, id := range ids {
		if err := im.enqueuer.Enqueue(ctx, kind, id); err != nil {
			im.logger.Warn("failed to enqueue embedding",
				zap.String("kind", string(kind)),
				zap.Int64("entity_id", id),
				zap.Error(err))
			continue
		}
		res.Enqueued++
	}
}

// build converts records to domain types and validates them. Organization
// keys must resolve within the file. tables, when set, enriches the records.
func (c *Catalog) build(tables *heuristics.Tables) ([]*types.Organization, []*types.Job, []*types.SeekerProfile, error) {
	orgs := make([]*types.Organization, 0, len(c.Organizations))
	byKey := make(map[string]*types.Organization, len(c.Organizations))
	for _, rec := range c.Organizations {
		if rec.Name == "" {
			return nil, nil, nil, fmt.Errorf("%w: organization without name", ErrInvalidCatalog)
		}
		org := &types.Organization{
			Name:                  rec.Name,
			IsGiveWellTopCharity:  rec.GiveWellTopCharity,
			Is80kRecommended:      rec.EightyKRecommended,
			IsBCorpCertified:      rec.BCorpCertified,
			BCorpScore:            rec.BCorpScore,
			HasPublicImpactReport: rec.PublicImpactReport,
			HasPublicFinancials:   rec.PublicFinancials,
			ImpactStatement:       rec.ImpactStatement,
			ImpactMetricName:      rec.ImpactMetricName,
			ImpactMetricValue:     rec.ImpactMetricValue,
		}
		if tables != nil && !org.IsGiveWellTopCharity {
			org.IsGiveWellTopCharity = tables.IsGiveWellTopCharity(rec.Name)
		}
		key := rec.Key
		if key == "" {
			key = rec.Name
		}
		if _, dup := byKey[key]; dup {
			return nil, nil, nil, fmt.Errorf("%w: duplicate organization key %q", ErrInvalidCatalog, key)
		}
		byKey[key] = org
		orgs = append(orgs, org)
	}

	jobs := make([]*types.Job, 0, len(c.Jobs))
	for i, rec := range c.Jobs {
		job := &types.Job{
			ID:           rec.ID,
			Title:        rec.Title,
			Description:  rec.Description,
			Requirements: rec.Requirements,
			Impact:       rec.Impact,
			Location:     rec.Location,
			JobType:      types.JobType(rec.JobType),
			SalaryMin:    rec.SalaryMin,
			SalaryMax:    rec.SalaryMax,
			Skills:       resolveSkills(tables, rec.Skills),
			IsActive:     rec.Active == nil || *rec.Active,
			ExpiresAt:    rec.ExpiresAt,
		}
		if rec.PostedAt != nil {
			job.PostedAt = *rec.PostedAt
		}
		if rec.Organization != "" {
			org, ok := byKey[rec.Organization]
			if !ok {
				return nil, nil, nil, fmt.Errorf("%w: job #%d references unknown organization %q", ErrInvalidCatalog, i+1, rec.Organization)
			}
			job.Organization = org
			if tables != nil && tables.IsEightyKSource(rec.Source) {
				org.Is80kRecommended = true
			}
		}
		if rec.Category != "" {
			job.Category = &types.Category{Slug: rec.Category}
		}
		if err := validateJob(job); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: job #%d: %w", ErrInvalidCatalog, i+1, err)
		}
		jobs = append(jobs, job)
	}

	seekers := make([]*types.SeekerProfile, 0, len(c.Seekers))
	for i, rec := range c.Seekers {
		seeker := &types.SeekerProfile{
			ID:                  rec.ID,
			Skills:              resolveSkills(tables, rec.Skills),
			WorkStyle:           types.WorkStyle(rec.WorkStyle),
			ExperienceLevel:     types.ExperienceLevel(rec.ExperienceLevel),
			RemotePreference:    types.RemotePreference(rec.RemotePreference),
			SalaryMin:           rec.SalaryMin,
			SalaryMax:           rec.SalaryMax,
			ImpactStatement:     rec.ImpactStatement,
			LocationPreferences: rec.LocationPreferences,
			AssessmentAnswers:   rec.AssessmentAnswers,
			Visibility:          types.Visibility(rec.Visibility),
			IsActivelyLooking:   rec.ActivelyLooking,
			WizardCompleted:     rec.WizardCompleted,
		}
		for _, jt := range rec.JobTypes {
			seeker.JobTypes = append(seeker.JobTypes, types.JobType(jt))
		}
		for _, slug := range rec.ImpactAreas {
			seeker.ImpactAreas = append(seeker.ImpactAreas, types.Category{Slug: slug})
		}
		if err := validateSeeker(seeker); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: seeker #%d: %w", ErrInvalidCatalog, i+1, err)
		}
		seekers = append(seekers, seeker)
	}
	return orgs, jobs, seekers, nil
}

// resolveSkills maps free-text skills to taxonomy slugs, dropping duplicates.
// Unresolved entries are kept as written.
func resolveSkills(tables *heuristics.Tables, raw []string) []string {
	if tables == nil || len(raw) == 0 {
		return raw
	}
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, s := range raw {
		if slug, ok := tables.ResolveSkill(s); ok {
			s = slug
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// validateJob runs the entity checks that do not need a stored id
func validateJob(job *types.Job) error {
	probe := *job
	if probe.ID == 0 {
		probe.ID = 1
	}
	return probe.Validate()
}

func validateSeeker(seeker *types.SeekerProfile) error {
	probe := *seeker
	if probe.ID == 0 {
		probe.ID = 1
	}
	return probe.Validate()
}
