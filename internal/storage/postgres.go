package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/impactmatch/pkg/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// PostgresStore implements Store on Postgres with pgvector HNSW indexes and a
// generated tsvector column for lexical ranking
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, applies migrations and registers the vector type
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required")
	}

	// The vector extension has to exist before its codec can be registered,
	// so migrations run on a short-lived pool first
	bootstrap, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := bootstrap.Ping(ctx); err != nil {
		bootstrap.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if err := ApplyPostgresMigrations(ctx, bootstrap); err != nil {
		bootstrap.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	bootstrap.Close()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres DSN: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Pool exposes the connection pool for migration commands
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// BeginTx starts a write transaction
func (s *PostgresStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{ctx: ctx, tx: tx}, nil
}

// pgQuerier is implemented by *pgxpool.Pool and pgx.Tx
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgTx wraps a pgx transaction. Commit and Rollback reuse the context the
// transaction was started with.
type pgTx struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t *pgTx) Commit() error   { return t.tx.Commit(t.ctx) }
func (t *pgTx) Rollback() error { return t.tx.Rollback(t.ctx) }

func (t *pgTx) UpsertCategory(ctx context.Context, c *types.Category) error {
	return pgUpsertCategory(ctx, t.tx, c)
}

func (t *pgTx) UpsertOrganization(ctx context.Context, org *types.Organization) error {
	return pgUpsertOrganization(ctx, t.tx, org)
}

func (t *pgTx) UpsertJob(ctx context.Context, job *types.Job) error {
	return pgUpsertJob(ctx, t.tx, job)
}

func (t *pgTx) UpsertSeeker(ctx context.Context, seeker *types.SeekerProfile) error {
	return pgUpsertSeeker(ctx, t.tx, seeker)
}

func (t *pgTx) SetJobEmbedding(ctx context.Context, jobID int64, vector []float32, hash string) error {
	return pgSetEmbedding(ctx, t.tx, "jobs", jobID, vector, hash)
}

func (t *pgTx) SetSeekerEmbedding(ctx context.Context, seekerID int64, vector []float32, hash string) error {
	return pgSetEmbedding(ctx, t.tx, "seekers", seekerID, vector, hash)
}

func (t *pgTx) SaveMatches(ctx context.Context, matches []*types.MatchResult) error {
	return pgSaveMatches(ctx, t.tx, matches)
}

// Writes on the store itself

func (s *PostgresStore) UpsertCategory(ctx context.Context, c *types.Category) error {
	return pgUpsertCategory(ctx, s.pool, c)
}

func (s *PostgresStore) UpsertOrganization(ctx context.Context, org *types.Organization) error {
	return pgUpsertOrganization(ctx, s.pool, org)
}

func (s *PostgresStore) UpsertJob(ctx context.Context, job *types.Job) error {
	return pgUpsertJob(ctx, s.pool, job)
}

func (s *PostgresStore) UpsertSeeker(ctx context.Context, seeker *types.SeekerProfile) error {
	return WithTx(ctx, s, func(tx Tx) error {
		return tx.UpsertSeeker(ctx, seeker)
	})
}

func (s *PostgresStore) SetJobEmbedding(ctx context.Context, jobID int64, vector []float32, hash string) error {
	return pgSetEmbedding(ctx, s.pool, "jobs", jobID, vector, hash)
}

func (s *PostgresStore) SetSeekerEmbedding(ctx context.Context, seekerID int64, vector []float32, hash string) error {
	return pgSetEmbedding(ctx, s.pool, "seekers", seekerID, vector, hash)
}

func (s *PostgresStore) SaveMatches(ctx context.Context, matches []*types.MatchResult) error {
	return WithTx(ctx, s, func(tx Tx) error {
		return tx.SaveMatches(ctx, matches)
	})
}

// syncSequence moves a serial sequence past explicitly inserted ids
func syncSequence(ctx context.Context, q pgQuerier, table string) error {
	_, err := q.Exec(ctx, fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), GREATEST((SELECT MAX(id) FROM %[1]s), 1))", table))
	if err != nil {
		return fmt.Errorf("failed to sync %s id sequence: %w", table, err)
	}
	return nil
}

func pgUpsertCategory(ctx context.Context, q pgQuerier, c *types.Category) error {
	if c == nil || c.Slug == "" {
		return errors.New("category slug is required")
	}
	name := c.Name
	if name == "" {
		name = c.Slug
	}
	var err error
	if c.ID > 0 {
		err = q.QueryRow(ctx, `
			INSERT INTO categories (id, slug, name) VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, c.ID, c.Slug, name).Scan(&c.ID)
		if err == nil {
			err = syncSequence(ctx, q, "categories")
		}
	} else {
		err = q.QueryRow(ctx, `
			INSERT INTO categories (slug, name) VALUES ($1, $2)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, c.Slug, name).Scan(&c.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert category %s: %w", c.Slug, err)
	}
	c.Name = name
	return nil
}

func pgUpsertOrganization(ctx context.Context, q pgQuerier, org *types.Organization) error {
	if org == nil || strings.TrimSpace(org.Name) == "" {
		return errors.New("organization name is required")
	}
	const columns = `name, is_givewell_top_charity, is_80k_recommended, is_bcorp_certified,
		bcorp_score, has_public_impact_report, has_public_financials, impact_statement,
		impact_metric_name, impact_metric_value`
	args := []any{org.Name, org.IsGiveWellTopCharity, org.Is80kRecommended, org.IsBCorpCertified,
		nullInt(org.BCorpScore), org.HasPublicImpactReport, org.HasPublicFinancials, org.ImpactStatement,
		org.ImpactMetricName, org.ImpactMetricValue}

	if org.ID == 0 {
		err := q.QueryRow(ctx, `INSERT INTO organizations (`+columns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`, args...).Scan(&org.ID)
		if err != nil {
			return fmt.Errorf("failed to insert organization: %w", err)
		}
		return nil
	}

	_, err := q.Exec(ctx, `INSERT INTO organizations (id, `+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			is_givewell_top_charity = EXCLUDED.is_givewell_top_charity,
			is_80k_recommended = EXCLUDED.is_80k_recommended,
			is_bcorp_certified = EXCLUDED.is_bcorp_certified,
			bcorp_score = EXCLUDED.bcorp_score,
			has_public_impact_report = EXCLUDED.has_public_impact_report,
			has_public_financials = EXCLUDED.has_public_financials,
			impact_statement = EXCLUDED.impact_statement,
			impact_metric_name = EXCLUDED.impact_metric_name,
			impact_metric_value = EXCLUDED.impact_metric_value
	`, append([]any{org.ID}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to upsert organization: %w", err)
	}
	return syncSequence(ctx, q, "organizations")
}

func pgResolveCategory(ctx context.Context, q pgQuerier, c *types.Category) error {
	if c.ID != 0 || c.Slug == "" {
		return nil
	}
	err := q.QueryRow(ctx, "SELECT id, name FROM categories WHERE slug = $1", c.Slug).Scan(&c.ID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("category %q: %w", c.Slug, ErrNotFound)
	}
	return err
}

func pgUpsertJob(ctx context.Context, q pgQuerier, job *types.Job) error {
	if job == nil {
		return types.ErrInvalidJob
	}
	if strings.TrimSpace(job.Title) == "" {
		return fmt.Errorf("%w: %w", types.ErrInvalidJob, types.ErrEmptyJobTitle)
	}

	var orgID, categoryID any
	if job.Organization != nil && job.Organization.ID > 0 {
		orgID = job.Organization.ID
	}
	if job.Category != nil {
		if err := pgResolveCategory(ctx, q, job.Category); err != nil {
			return err
		}
		if job.Category.ID > 0 {
			categoryID = job.Category.ID
		}
	}

	now := time.Now().UTC()
	if job.PostedAt.IsZero() {
		job.PostedAt = now
	}
	job.UpdatedAt = now

	const columns = `title, organization_id, category_id, description, requirements, impact,
		location, job_type, salary_min, salary_max, skills, is_active, posted_at, expires_at, updated_at`
	args := []any{job.Title, orgID, categoryID, job.Description, job.Requirements, job.Impact,
		job.Location, string(job.JobType), nullInt(job.SalaryMin), nullInt(job.SalaryMax),
		nonNilStrings(job.Skills), job.IsActive, job.PostedAt, nullTime(job.ExpiresAt), job.UpdatedAt}

	if job.ID == 0 {
		err := q.QueryRow(ctx, `INSERT INTO jobs (`+columns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`,
			args...).Scan(&job.ID)
		if err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}
		return nil
	}

	_, err := q.Exec(ctx, `INSERT INTO jobs (id, `+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			organization_id = EXCLUDED.organization_id,
			category_id = EXCLUDED.category_id,
			description = EXCLUDED.description,
			requirements = EXCLUDED.requirements,
			impact = EXCLUDED.impact,
			location = EXCLUDED.location,
			job_type = EXCLUDED.job_type,
			salary_min = EXCLUDED.salary_min,
			salary_max = EXCLUDED.salary_max,
			skills = EXCLUDED.skills,
			is_active = EXCLUDED.is_active,
			posted_at = EXCLUDED.posted_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`, append([]any{job.ID}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}
	return syncSequence(ctx, q, "jobs")
}

func pgUpsertSeeker(ctx context.Context, q pgQuerier, seeker *types.SeekerProfile) error {
	if seeker == nil {
		return types.ErrInvalidSeeker
	}
	answers := seeker.AssessmentAnswers
	if answers == nil {
		answers = map[string]string{}
	}
	visibility := seeker.Visibility
	if visibility == "" {
		visibility = types.VisibilityMatching
	}
	jobTypes := make([]string, 0, len(seeker.JobTypes))
	for _, jt := range seeker.JobTypes {
		jobTypes = append(jobTypes, string(jt))
	}

	now := time.Now().UTC()
	if seeker.CreatedAt.IsZero() {
		seeker.CreatedAt = now
	}
	seeker.UpdatedAt = now

	const columns = `skills, work_style, experience_level, remote_preference, salary_min,
		salary_max, job_types, impact_statement, location_preferences, assessment_answers, visibility,
		is_actively_looking, wizard_completed, created_at, updated_at`
	args := []any{nonNilStrings(seeker.Skills), string(seeker.WorkStyle), string(seeker.ExperienceLevel),
		string(seeker.RemotePreference), nullInt(seeker.SalaryMin), nullInt(seeker.SalaryMax), jobTypes,
		seeker.ImpactStatement, nonNilStrings(seeker.LocationPreferences), answers, string(visibility),
		seeker.IsActivelyLooking, seeker.WizardCompleted, seeker.CreatedAt, seeker.UpdatedAt}

	if seeker.ID == 0 {
		err := q.QueryRow(ctx, `INSERT INTO seekers (`+columns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`,
			args...).Scan(&seeker.ID)
		if err != nil {
			return fmt.Errorf("failed to insert seeker: %w", err)
		}
	} else {
		_, err := q.Exec(ctx, `INSERT INTO seekers (id, `+columns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (id) DO UPDATE SET
				skills = EXCLUDED.skills,
				work_style = EXCLUDED.work_style,
				experience_level = EXCLUDED.experience_level,
				remote_preference = EXCLUDED.remote_preference,
				salary_min = EXCLUDED.salary_min,
				salary_max = EXCLUDED.salary_max,
				job_types = EXCLUDED.job_types,
				impact_statement = EXCLUDED.impact_statement,
				location_preferences = EXCLUDED.location_preferences,
				assessment_answers = EXCLUDED.assessment_answers,
				visibility = EXCLUDED.visibility,
				is_actively_looking = EXCLUDED.is_actively_looking,
				wizard_completed = EXCLUDED.wizard_completed,
				updated_at = EXCLUDED.updated_at
		`, append([]any{seeker.ID}, args...)...)
		if err != nil {
			return fmt.Errorf("failed to upsert seeker: %w", err)
		}
		if err := syncSequence(ctx, q, "seekers"); err != nil {
			return err
		}
	}
	seeker.Visibility = visibility

	if _, err := q.Exec(ctx, "DELETE FROM seeker_impact_areas WHERE seeker_id = $1", seeker.ID); err != nil {
		return fmt.Errorf("failed to clear impact areas: %w", err)
	}
	for i := range seeker.ImpactAreas {
		area := &seeker.ImpactAreas[i]
		if err := pgResolveCategory(ctx, q, area); err != nil {
			return fmt.Errorf("impact area: %w", err)
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO seeker_impact_areas (seeker_id, category_id, position) VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, seeker.ID, area.ID, i); err != nil {
			return fmt.Errorf("failed to insert impact area: %w", err)
		}
	}
	return nil
}

func pgSetEmbedding(ctx context.Context, q pgQuerier, table string, id int64, vector []float32, hash string) error {
	if err := checkDimension(vector); err != nil {
		return err
	}
	var value any
	if vector != nil {
		value = pgvector.NewVector(vector)
	} else {
		hash = ""
	}

	tag, err := q.Exec(ctx, "UPDATE "+table+" SET embedding = $1, embedding_hash = $2 WHERE id = $3", value, hash, id)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func pgSaveMatches(ctx context.Context, q pgQuerier, matches []*types.MatchResult) error {
	now := time.Now().UTC()
	for _, m := range matches {
		row, err := newMatchRow(m)
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, `
			INSERT INTO job_matches (seeker_id, job_id, score, tier, breakdown, reasons, gaps, impact_reasons, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (seeker_id, job_id) DO UPDATE SET
				score = EXCLUDED.score,
				tier = EXCLUDED.tier,
				breakdown = EXCLUDED.breakdown,
				reasons = EXCLUDED.reasons,
				gaps = EXCLUDED.gaps,
				impact_reasons = EXCLUDED.impact_reasons,
				computed_at = EXCLUDED.computed_at
		`, m.SeekerID, m.JobID, m.Score, string(m.Tier), row.breakdown, row.reasons, row.gaps, row.impactReasons, now)
		if err != nil {
			return fmt.Errorf("failed to save match %d/%d: %w", m.SeekerID, m.JobID, err)
		}
	}
	return nil
}

// Reads

// Embeddings are read back as real[] so NULL maps to a nil slice
const pgJobSelect = `
	SELECT j.id, j.title, j.description, j.requirements, j.impact, j.location, j.job_type,
		j.salary_min, j.salary_max, j.skills, j.embedding::real[], j.embedding_hash, j.is_active,
		j.posted_at, j.expires_at, j.updated_at,
		c.id, c.slug, c.name,
		o.id, o.name, o.is_givewell_top_charity, o.is_80k_recommended, o.is_bcorp_certified,
		o.bcorp_score, o.has_public_impact_report, o.has_public_financials, o.impact_statement,
		o.impact_metric_name, o.impact_metric_value
`

const pgSeekerColumns = `
	SELECT s.id, s.skills, s.work_style, s.experience_level, s.remote_preference, s.salary_min,
		s.salary_max, s.job_types, s.impact_statement, s.location_preferences, s.assessment_answers,
		s.visibility, s.is_actively_looking, s.wizard_completed, s.embedding::real[], s.embedding_hash,
		s.created_at, s.updated_at`

const pgSeekerSelect = pgSeekerColumns + " FROM seekers s"

const pgDiscoverableSeekers = ` WHERE s.is_actively_looking AND s.visibility IN ('public', 'matching')`

func scanPGJob(row pgx.Row, extra ...any) (*types.Job, error) {
	var (
		job                  types.Job
		salaryMin, salaryMax *int32
		jobType              string

		catID                                          *int64
		catSlug, catName                               *string
		orgID, bcorpScore                              *int64
		orgName, orgStatement, orgMetricName, orgValue *string
		giveWell, eightyK, bcorp, report, financials   *bool
	)

	dest := []any{
		&job.ID, &job.Title, &job.Description, &job.Requirements, &job.Impact, &job.Location, &jobType,
		&salaryMin, &salaryMax, &job.Skills, &job.Embedding, &job.EmbeddingHash, &job.IsActive,
		&job.PostedAt, &job.ExpiresAt, &job.UpdatedAt,
		&catID, &catSlug, &catName,
		&orgID, &orgName, &giveWell, &eightyK, &bcorp,
		&bcorpScore, &report, &financials, &orgStatement,
		&orgMetricName, &orgValue,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	job.JobType = types.JobType(jobType)
	job.SalaryMin = int32Ptr(salaryMin)
	job.SalaryMax = int32Ptr(salaryMax)
	if catID != nil {
		job.Category = &types.Category{ID: *catID, Slug: deref(catSlug), Name: deref(catName)}
	}
	if orgID != nil {
		org := &types.Organization{
			ID:                    *orgID,
			Name:                  deref(orgName),
			IsGiveWellTopCharity:  deref(giveWell),
			Is80kRecommended:      deref(eightyK),
			IsBCorpCertified:      deref(bcorp),
			HasPublicImpactReport: deref(report),
			HasPublicFinancials:   deref(financials),
			ImpactStatement:       deref(orgStatement),
			ImpactMetricName:      deref(orgMetricName),
			ImpactMetricValue:     deref(orgValue),
		}
		if bcorpScore != nil {
			score := int(*bcorpScore)
			org.BCorpScore = &score
		}
		job.Organization = org
	}
	return &job, nil
}

func scanPGSeeker(row pgx.Row, extra ...any) (*types.SeekerProfile, error) {
	var (
		s                                  types.SeekerProfile
		jobTypes                           []string
		workStyle, experience, remote, vis string
		salaryMin, salaryMax               *int32
	)
	dest := []any{&s.ID, &s.Skills, &workStyle, &experience, &remote, &salaryMin, &salaryMax,
		&jobTypes, &s.ImpactStatement, &s.LocationPreferences, &s.AssessmentAnswers, &vis,
		&s.IsActivelyLooking, &s.WizardCompleted, &s.Embedding, &s.EmbeddingHash, &s.CreatedAt, &s.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	s.WorkStyle = types.WorkStyle(workStyle)
	s.ExperienceLevel = types.ExperienceLevel(experience)
	s.RemotePreference = types.RemotePreference(remote)
	s.Visibility = types.Visibility(vis)
	s.SalaryMin = int32Ptr(salaryMin)
	s.SalaryMax = int32Ptr(salaryMax)
	for _, jt := range jobTypes {
		s.JobTypes = append(s.JobTypes, types.JobType(jt))
	}
	return &s, nil
}

func (s *PostgresStore) GetCategory(ctx context.Context, slug string) (*types.Category, error) {
	var c types.Category
	err := s.pool.QueryRow(ctx, "SELECT id, slug, name FROM categories WHERE slug = $1", slug).
		Scan(&c.ID, &c.Slug, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]types.Category, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, slug, name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []types.Category
	for rows.Next() {
		var c types.Category
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetJob(ctx context.Context, id int64) (*types.Job, error) {
	job, err := scanPGJob(s.pool.QueryRow(ctx, pgJobSelect+jobFrom+" WHERE j.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) GetSeeker(ctx context.Context, id int64) (*types.SeekerProfile, error) {
	seeker, err := scanPGSeeker(s.pool.QueryRow(ctx, pgSeekerSelect+" WHERE s.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seeker: %w", err)
	}
	if err := s.loadImpactAreas(ctx, []*types.SeekerProfile{seeker}); err != nil {
		return nil, err
	}
	return seeker, nil
}

func (s *PostgresStore) queryJobs(ctx context.Context, query string, args ...any) ([]*types.Job, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*types.Job
	for rows.Next() {
		job, err := scanPGJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) querySeekers(ctx context.Context, query string, args ...any) ([]*types.SeekerProfile, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query seekers: %w", err)
	}
	defer rows.Close()

	var seekers []*types.SeekerProfile
	for rows.Next() {
		seeker, err := scanPGSeeker(rows)
		if err != nil {
			return nil, err
		}
		seekers = append(seekers, seeker)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := s.loadImpactAreas(ctx, seekers); err != nil {
		return nil, err
	}
	return seekers, nil
}

func (s *PostgresStore) loadImpactAreas(ctx context.Context, seekers []*types.SeekerProfile) error {
	if len(seekers) == 0 {
		return nil
	}
	byID := make(map[int64]*types.SeekerProfile, len(seekers))
	ids := make([]int64, 0, len(seekers))
	for _, sk := range seekers {
		byID[sk.ID] = sk
		ids = append(ids, sk.ID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT sia.seeker_id, c.id, c.slug, c.name
		FROM seeker_impact_areas sia
		INNER JOIN categories c ON c.id = sia.category_id
		WHERE sia.seeker_id = ANY($1)
		ORDER BY sia.seeker_id, sia.position
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load impact areas: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seekerID int64
		var c types.Category
		if err := rows.Scan(&seekerID, &c.ID, &c.Slug, &c.Name); err != nil {
			return err
		}
		if sk, ok := byID[seekerID]; ok {
			sk.ImpactAreas = append(sk.ImpactAreas, c)
		}
	}
	return rows.Err()
}

// NearestJobs orders by the <=> operator so the HNSW index serves the query
func (s *PostgresStore) NearestJobs(ctx context.Context, vector []float32, limit int) ([]ScoredJob, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, nil
	}
	if err := checkDimension(vector); err != nil {
		return nil, err
	}

	query := pgJobSelect + ", j.embedding <=> $1 AS distance" + jobFrom +
		" WHERE j.is_active AND j.embedding IS NOT NULL ORDER BY j.embedding <=> $1, j.id LIMIT $2"
	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer rows.Close()

	results := make([]ScoredJob, 0, limit)
	for rows.Next() {
		var distance float64
		job, err := scanPGJob(rows, &distance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, ScoredJob{Job: job, Distance: distance})
	}
	return results, rows.Err()
}

func (s *PostgresStore) NearestSeekers(ctx context.Context, vector []float32, limit int) ([]ScoredSeeker, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, nil
	}
	if err := checkDimension(vector); err != nil {
		return nil, err
	}

	query := pgSeekerColumns + ", s.embedding <=> $1 AS distance FROM seekers s" + pgDiscoverableSeekers +
		" AND s.embedding IS NOT NULL ORDER BY s.embedding <=> $1, s.id LIMIT $2"
	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer rows.Close()

	var seekers []*types.SeekerProfile
	var distances []float64
	for rows.Next() {
		var distance float64
		seeker, err := scanPGSeeker(rows, &distance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		seekers = append(seekers, seeker)
		distances = append(distances, distance)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := s.loadImpactAreas(ctx, seekers); err != nil {
		return nil, err
	}
	results := make([]ScoredSeeker, len(seekers))
	for i := range seekers {
		results[i] = ScoredSeeker{Seeker: seekers[i], Distance: distances[i]}
	}
	return results, nil
}

// LexicalRanks ranks jobs with ts_rank over the A/B/C/D weighted search vector
func (s *PostgresStore) LexicalRanks(ctx context.Context, terms []string, jobIDs []int64) (map[int64]float64, error) {
	ranks := make(map[int64]float64)
	query := websearchExpression(terms)
	if query == "" || len(jobIDs) == 0 {
		return ranks, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, ts_rank(search_vector, websearch_to_tsquery('english', $1))
		FROM jobs
		WHERE id = ANY($2) AND search_vector @@ websearch_to_tsquery('english', $1)
	`, query, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to execute text search: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var rank float32
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, err
		}
		ranks[id] = float64(rank)
	}
	return ranks, rows.Err()
}

func (s *PostgresStore) RecentJobs(ctx context.Context, limit int) ([]*types.Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.queryJobs(ctx, pgJobSelect+jobFrom+" WHERE j.is_active ORDER BY j.posted_at DESC, j.id DESC LIMIT $1", limit)
}

func (s *PostgresStore) RecentSeekers(ctx context.Context, limit int) ([]*types.SeekerProfile, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.querySeekers(ctx, pgSeekerSelect+pgDiscoverableSeekers+" ORDER BY s.updated_at DESC, s.id DESC LIMIT $1", limit)
}

func (s *PostgresStore) ListEmbeddableJobs(ctx context.Context) ([]*types.Job, error) {
	return s.queryJobs(ctx, pgJobSelect+jobFrom+" WHERE j.is_active ORDER BY j.id")
}

func (s *PostgresStore) ListEmbeddableSeekers(ctx context.Context) ([]*types.SeekerProfile, error) {
	return s.querySeekers(ctx, pgSeekerSelect+" WHERE s.wizard_completed ORDER BY s.id")
}

func (s *PostgresStore) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{Driver: DriverPostgres, BuildMode: "pgvector"}

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM organizations),
			(SELECT COUNT(*) FROM jobs),
			(SELECT COUNT(*) FROM jobs WHERE is_active),
			(SELECT COUNT(*) FROM jobs WHERE embedding IS NOT NULL),
			(SELECT COUNT(*) FROM seekers),
			(SELECT COUNT(*) FROM seekers WHERE embedding IS NOT NULL),
			(SELECT COUNT(*) FROM job_matches)
	`).Scan(&status.Categories, &status.Organizations, &status.Jobs, &status.ActiveJobs,
		&status.EmbeddedJobs, &status.Seekers, &status.EmbeddedSeekers, &status.CachedMatches)
	if err != nil {
		return nil, fmt.Errorf("failed to collect status: %w", err)
	}

	version, err := pgSchemaVersion(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()
	return status, nil
}

func int32Ptr(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
