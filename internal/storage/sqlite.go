package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dshills/impactmatch/pkg/types"
)

// SQLiteStore implements Store on SQLite with an FTS5 lexical index
type SQLiteStore struct {
	db *sql.DB

	// set when vec_distance_cosine turned out to be unavailable at runtime
	vecDisabled atomic.Bool
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer; this also keeps :memory: databases
	// on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) a SQLite store and applies migrations
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for migration commands
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a write transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

func (t *sqliteTx) UpsertCategory(ctx context.Context, c *types.Category) error {
	return upsertCategory(ctx, t.tx, c)
}

func (t *sqliteTx) UpsertOrganization(ctx context.Context, org *types.Organization) error {
	return upsertOrganization(ctx, t.tx, org)
}

func (t *sqliteTx) UpsertJob(ctx context.Context, job *types.Job) error {
	return upsertJob(ctx, t.tx, job)
}

func (t *sqliteTx) UpsertSeeker(ctx context.Context, seeker *types.SeekerProfile) error {
	return upsertSeeker(ctx, t.tx, seeker)
}

func (t *sqliteTx) SetJobEmbedding(ctx context.Context, jobID int64, vector []float32, hash string) error {
	return setEmbedding(ctx, t.tx, "jobs", jobID, vector, hash)
}

func (t *sqliteTx) SetSeekerEmbedding(ctx context.Context, seekerID int64, vector []float32, hash string) error {
	return setEmbedding(ctx, t.tx, "seekers", seekerID, vector, hash)
}

func (t *sqliteTx) SaveMatches(ctx context.Context, matches []*types.MatchResult) error {
	return saveMatches(ctx, t.tx, matches)
}

// Writes on the store itself

func (s *SQLiteStore) UpsertCategory(ctx context.Context, c *types.Category) error {
	return upsertCategory(ctx, s.db, c)
}

func (s *SQLiteStore) UpsertOrganization(ctx context.Context, org *types.Organization) error {
	return upsertOrganization(ctx, s.db, org)
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *types.Job) error {
	return upsertJob(ctx, s.db, job)
}

// UpsertSeeker writes the profile row and its impact areas atomically
func (s *SQLiteStore) UpsertSeeker(ctx context.Context, seeker *types.SeekerProfile) error {
	return WithTx(ctx, s, func(tx Tx) error {
		return tx.UpsertSeeker(ctx, seeker)
	})
}

func (s *SQLiteStore) SetJobEmbedding(ctx context.Context, jobID int64, vector []float32, hash string) error {
	return setEmbedding(ctx, s.db, "jobs", jobID, vector, hash)
}

func (s *SQLiteStore) SetSeekerEmbedding(ctx context.Context, seekerID int64, vector []float32, hash string) error {
	return setEmbedding(ctx, s.db, "seekers", seekerID, vector, hash)
}

func (s *SQLiteStore) SaveMatches(ctx context.Context, matches []*types.MatchResult) error {
	return WithTx(ctx, s, func(tx Tx) error {
		return tx.SaveMatches(ctx, matches)
	})
}

func upsertCategory(ctx context.Context, q querier, c *types.Category) error {
	if c == nil || c.Slug == "" {
		return errors.New("category slug is required")
	}
	name := c.Name
	if name == "" {
		name = c.Slug
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO categories (id, slug, name) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET name = excluded.name
	`, nullID(c.ID), c.Slug, name)
	if err != nil {
		return fmt.Errorf("failed to upsert category %s: %w", c.Slug, err)
	}
	if err := q.QueryRowContext(ctx, "SELECT id FROM categories WHERE slug = ?", c.Slug).Scan(&c.ID); err != nil {
		return fmt.Errorf("failed to read category id: %w", err)
	}
	c.Name = name
	return nil
}

func upsertOrganization(ctx context.Context, q querier, org *types.Organization) error {
	if org == nil || strings.TrimSpace(org.Name) == "" {
		return errors.New("organization name is required")
	}
	result, err := q.ExecContext(ctx, `
		INSERT INTO organizations (id, name, is_givewell_top_charity, is_80k_recommended, is_bcorp_certified,
			bcorp_score, has_public_impact_report, has_public_financials, impact_statement,
			impact_metric_name, impact_metric_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_givewell_top_charity = excluded.is_givewell_top_charity,
			is_80k_recommended = excluded.is_80k_recommended,
			is_bcorp_certified = excluded.is_bcorp_certified,
			bcorp_score = excluded.bcorp_score,
			has_public_impact_report = excluded.has_public_impact_report,
			has_public_financials = excluded.has_public_financials,
			impact_statement = excluded.impact_statement,
			impact_metric_name = excluded.impact_metric_name,
			impact_metric_value = excluded.impact_metric_value
	`, nullID(org.ID), org.Name, org.IsGiveWellTopCharity, org.Is80kRecommended, org.IsBCorpCertified,
		nullInt(org.BCorpScore), org.HasPublicImpactReport, org.HasPublicFinancials, org.ImpactStatement,
		org.ImpactMetricName, org.ImpactMetricValue)
	if err != nil {
		return fmt.Errorf("failed to upsert organization: %w", err)
	}
	if org.ID == 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		org.ID = id
	}
	return nil
}

func upsertJob(ctx context.Context, q querier, job *types.Job) error {
	if job == nil {
		return types.ErrInvalidJob
	}
	if strings.TrimSpace(job.Title) == "" {
		return fmt.Errorf("%w: %w", types.ErrInvalidJob, types.ErrEmptyJobTitle)
	}

	var orgID, categoryID interface{}
	if job.Organization != nil && job.Organization.ID > 0 {
		orgID = job.Organization.ID
	}
	if job.Category != nil {
		if job.Category.ID == 0 && job.Category.Slug != "" {
			if err := q.QueryRowContext(ctx, "SELECT id, name FROM categories WHERE slug = ?", job.Category.Slug).
				Scan(&job.Category.ID, &job.Category.Name); err != nil {
				return fmt.Errorf("category %q: %w", job.Category.Slug, ErrNotFound)
			}
		}
		if job.Category.ID > 0 {
			categoryID = job.Category.ID
		}
	}

	skills, err := encodeJSON(nonNilStrings(job.Skills))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if job.PostedAt.IsZero() {
		job.PostedAt = now
	}
	job.UpdatedAt = now

	result, err := q.ExecContext(ctx, `
		INSERT INTO jobs (id, title, organization_id, category_id, description, requirements, impact,
			location, job_type, salary_min, salary_max, skills, is_active, posted_at, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			organization_id = excluded.organization_id,
			category_id = excluded.category_id,
			description = excluded.description,
			requirements = excluded.requirements,
			impact = excluded.impact,
			location = excluded.location,
			job_type = excluded.job_type,
			salary_min = excluded.salary_min,
			salary_max = excluded.salary_max,
			skills = excluded.skills,
			is_active = excluded.is_active,
			posted_at = excluded.posted_at,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, nullID(job.ID), job.Title, orgID, categoryID, job.Description, job.Requirements, job.Impact,
		job.Location, string(job.JobType), nullInt(job.SalaryMin), nullInt(job.SalaryMax), skills,
		job.IsActive, job.PostedAt, nullTime(job.ExpiresAt), job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}
	if job.ID == 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		job.ID = id
	}
	return nil
}

func upsertSeeker(ctx context.Context, q querier, seeker *types.SeekerProfile) error {
	if seeker == nil {
		return types.ErrInvalidSeeker
	}

	skills, err := encodeJSON(nonNilStrings(seeker.Skills))
	if err != nil {
		return err
	}
	jobTypes, err := encodeJSON(nonNilJobTypes(seeker.JobTypes))
	if err != nil {
		return err
	}
	locations, err := encodeJSON(nonNilStrings(seeker.LocationPreferences))
	if err != nil {
		return err
	}
	answers := seeker.AssessmentAnswers
	if answers == nil {
		answers = map[string]string{}
	}
	answersJSON, err := encodeJSON(answers)
	if err != nil {
		return err
	}
	visibility := seeker.Visibility
	if visibility == "" {
		visibility = types.VisibilityMatching
	}

	now := time.Now().UTC()
	if seeker.CreatedAt.IsZero() {
		seeker.CreatedAt = now
	}
	seeker.UpdatedAt = now

	result, err := q.ExecContext(ctx, `
		INSERT INTO seekers (id, skills, work_style, experience_level, remote_preference, salary_min,
			salary_max, job_types, impact_statement, location_preferences, assessment_answers, visibility,
			is_actively_looking, wizard_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			skills = excluded.skills,
			work_style = excluded.work_style,
			experience_level = excluded.experience_level,
			remote_preference = excluded.remote_preference,
			salary_min = excluded.salary_min,
			salary_max = excluded.salary_max,
			job_types = excluded.job_types,
			impact_statement = excluded.impact_statement,
			location_preferences = excluded.location_preferences,
			assessment_answers = excluded.assessment_answers,
			visibility = excluded.visibility,
			is_actively_looking = excluded.is_actively_looking,
			wizard_completed = excluded.wizard_completed,
			updated_at = excluded.updated_at
	`, nullID(seeker.ID), skills, string(seeker.WorkStyle), string(seeker.ExperienceLevel),
		string(seeker.RemotePreference), nullInt(seeker.SalaryMin), nullInt(seeker.SalaryMax), jobTypes,
		seeker.ImpactStatement, locations, answersJSON, string(visibility), seeker.IsActivelyLooking,
		seeker.WizardCompleted, seeker.CreatedAt, seeker.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert seeker: %w", err)
	}
	if seeker.ID == 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		seeker.ID = id
	}
	seeker.Visibility = visibility

	if _, err := q.ExecContext(ctx, "DELETE FROM seeker_impact_areas WHERE seeker_id = ?", seeker.ID); err != nil {
		return fmt.Errorf("failed to clear impact areas: %w", err)
	}
	for i := range seeker.ImpactAreas {
		area := &seeker.ImpactAreas[i]
		if area.ID == 0 {
			if err := q.QueryRowContext(ctx, "SELECT id, name FROM categories WHERE slug = ?", area.Slug).
				Scan(&area.ID, &area.Name); err != nil {
				return fmt.Errorf("impact area %q: %w", area.Slug, ErrNotFound)
			}
		}
		if _, err := q.ExecContext(ctx,
			"INSERT OR IGNORE INTO seeker_impact_areas (seeker_id, category_id, position) VALUES (?, ?, ?)",
			seeker.ID, area.ID, i); err != nil {
			return fmt.Errorf("failed to insert impact area: %w", err)
		}
	}
	return nil
}

func setEmbedding(ctx context.Context, q querier, table string, id int64, vector []float32, hash string) error {
	if err := checkDimension(vector); err != nil {
		return err
	}
	var blob interface{}
	if vector != nil {
		blob = serializeVector(vector)
	} else {
		hash = ""
	}

	// table is one of two constants chosen by the caller
	result, err := q.ExecContext(ctx,
		"UPDATE "+table+" SET embedding = ?, embedding_hash = ? WHERE id = ?", blob, hash, id)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func saveMatches(ctx context.Context, q querier, matches []*types.MatchResult) error {
	now := time.Now().UTC()
	for _, m := range matches {
		row, err := newMatchRow(m)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO job_matches (seeker_id, job_id, score, tier, breakdown, reasons, gaps, impact_reasons, computed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(seeker_id, job_id) DO UPDATE SET
				score = excluded.score,
				tier = excluded.tier,
				breakdown = excluded.breakdown,
				reasons = excluded.reasons,
				gaps = excluded.gaps,
				impact_reasons = excluded.impact_reasons,
				computed_at = excluded.computed_at
		`, m.SeekerID, m.JobID, m.Score, string(m.Tier), row.breakdown, row.reasons, row.gaps, row.impactReasons, now)
		if err != nil {
			return fmt.Errorf("failed to save match %d/%d: %w", m.SeekerID, m.JobID, err)
		}
	}
	return nil
}

// Reads

const jobSelect = `
	SELECT j.id, j.title, j.description, j.requirements, j.impact, j.location, j.job_type,
		j.salary_min, j.salary_max, j.skills, j.embedding, j.embedding_hash, j.is_active,
		j.posted_at, j.expires_at, j.updated_at,
		c.id, c.slug, c.name,
		o.id, o.name, o.is_givewell_top_charity, o.is_80k_recommended, o.is_bcorp_certified,
		o.bcorp_score, o.has_public_impact_report, o.has_public_financials, o.impact_statement,
		o.impact_metric_name, o.impact_metric_value
`

const jobFrom = `
	FROM jobs j
	LEFT JOIN categories c ON c.id = j.category_id
	LEFT JOIN organizations o ON o.id = j.organization_id
`

const seekerSelect = `
	SELECT s.id, s.skills, s.work_style, s.experience_level, s.remote_preference, s.salary_min,
		s.salary_max, s.job_types, s.impact_statement, s.location_preferences, s.assessment_answers,
		s.visibility, s.is_actively_looking, s.wizard_completed, s.embedding, s.embedding_hash,
		s.created_at, s.updated_at
	FROM seekers s
`

const discoverableSeekers = ` WHERE s.is_actively_looking = 1 AND s.visibility IN ('public', 'matching')`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner, extra ...interface{}) (*types.Job, error) {
	var (
		job                  types.Job
		salaryMin, salaryMax sql.NullInt64
		skills               string
		embedding            []byte
		jobType              string
		expiresAt            sql.NullTime

		catID         sql.NullInt64
		catSlug       sql.NullString
		catName       sql.NullString
		orgID         sql.NullInt64
		orgName       sql.NullString
		giveWell      sql.NullBool
		eightyK       sql.NullBool
		bcorp         sql.NullBool
		bcorpScore    sql.NullInt64
		impactReport  sql.NullBool
		financials    sql.NullBool
		orgStatement  sql.NullString
		orgMetricName sql.NullString
		orgMetricVal  sql.NullString
	)

	dest := []interface{}{
		&job.ID, &job.Title, &job.Description, &job.Requirements, &job.Impact, &job.Location, &jobType,
		&salaryMin, &salaryMax, &skills, &embedding, &job.EmbeddingHash, &job.IsActive,
		&job.PostedAt, &expiresAt, &job.UpdatedAt,
		&catID, &catSlug, &catName,
		&orgID, &orgName, &giveWell, &eightyK, &bcorp,
		&bcorpScore, &impactReport, &financials, &orgStatement,
		&orgMetricName, &orgMetricVal,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	job.JobType = types.JobType(jobType)
	job.SalaryMin = intPtr(salaryMin)
	job.SalaryMax = intPtr(salaryMax)
	if err := decodeJSON(skills, &job.Skills); err != nil {
		return nil, fmt.Errorf("job %d skills: %w", job.ID, err)
	}
	if len(embedding) > 0 {
		job.Embedding = deserializeVector(embedding)
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		job.ExpiresAt = &t
	}
	if catID.Valid {
		job.Category = &types.Category{ID: catID.Int64, Slug: catSlug.String, Name: catName.String}
	}
	if orgID.Valid {
		job.Organization = &types.Organization{
			ID:                    orgID.Int64,
			Name:                  orgName.String,
			IsGiveWellTopCharity:  giveWell.Bool,
			Is80kRecommended:      eightyK.Bool,
			IsBCorpCertified:      bcorp.Bool,
			BCorpScore:            intPtr(bcorpScore),
			HasPublicImpactReport: impactReport.Bool,
			HasPublicFinancials:   financials.Bool,
			ImpactStatement:       orgStatement.String,
			ImpactMetricName:      orgMetricName.String,
			ImpactMetricValue:     orgMetricVal.String,
		}
	}
	return &job, nil
}

func scanSeeker(row rowScanner) (*types.SeekerProfile, error) {
	var (
		s                                    types.SeekerProfile
		skills, jobTypes, locations, answers string
		workStyle, experience, remote, vis   string
		salaryMin, salaryMax                 sql.NullInt64
		embedding                            []byte
	)
	if err := row.Scan(&s.ID, &skills, &workStyle, &experience, &remote, &salaryMin, &salaryMax,
		&jobTypes, &s.ImpactStatement, &locations, &answers, &vis, &s.IsActivelyLooking,
		&s.WizardCompleted, &embedding, &s.EmbeddingHash, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}

	s.WorkStyle = types.WorkStyle(workStyle)
	s.ExperienceLevel = types.ExperienceLevel(experience)
	s.RemotePreference = types.RemotePreference(remote)
	s.Visibility = types.Visibility(vis)
	s.SalaryMin = intPtr(salaryMin)
	s.SalaryMax = intPtr(salaryMax)
	if len(embedding) > 0 {
		s.Embedding = deserializeVector(embedding)
	}
	if err := decodeJSON(skills, &s.Skills); err != nil {
		return nil, fmt.Errorf("seeker %d skills: %w", s.ID, err)
	}
	if err := decodeJSON(jobTypes, &s.JobTypes); err != nil {
		return nil, fmt.Errorf("seeker %d job types: %w", s.ID, err)
	}
	if err := decodeJSON(locations, &s.LocationPreferences); err != nil {
		return nil, fmt.Errorf("seeker %d locations: %w", s.ID, err)
	}
	if err := decodeJSON(answers, &s.AssessmentAnswers); err != nil {
		return nil, fmt.Errorf("seeker %d answers: %w", s.ID, err)
	}
	return &s, nil
}

func (s *SQLiteStore) GetCategory(ctx context.Context, slug string) (*types.Category, error) {
	var c types.Category
	err := s.db.QueryRowContext(ctx, "SELECT id, slug, name FROM categories WHERE slug = ?", slug).
		Scan(&c.ID, &c.Slug, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]types.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, slug, name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

func (s *SQLiteStore) GetJob(ctx context.Context, id int64) (*types.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, jobSelect+jobFrom+" WHERE j.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *SQLiteStore) GetSeeker(ctx context.Context, id int64) (*types.SeekerProfile, error) {
	seeker, err := scanSeeker(s.db.QueryRowContext(ctx, seekerSelect+" WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLiteStore) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*types.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// querySeekers collects rows before loading impact areas; the pool has a
// single connection so the second query cannot run while rows are open
func (s *SQLiteStore) querySeekers(ctx context.Context, query string, args ...interface{}) ([]*types.SeekerProfile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query seekers: %w", err)
	}

	var seekers []*types.SeekerProfile
	for rows.Next() {
		seeker, err := scanSeeker(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		seekers = append(seekers, seeker)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if err := s.loadImpactAreas(ctx, seekers); err != nil {
		return nil, err
	}
	return seekers, nil
}

func (s *SQLiteStore) loadImpactAreas(ctx context.Context, seekers []*types.SeekerProfile) error {
	if len(seekers) == 0 {
		return nil
	}
	byID := make(map[int64]*types.SeekerProfile, len(seekers))
	args := make([]interface{}, 0, len(seekers))
	for _, sk := range seekers {
		byID[sk.ID] = sk
		args = append(args, sk.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sia.seeker_id, c.id, c.slug, c.name
		FROM seeker_impact_areas sia
		INNER JOIN categories c ON c.id = sia.category_id
		WHERE sia.seeker_id IN (`+placeholders(len(args))+`)
		ORDER BY sia.seeker_id, sia.position
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to load impact areas: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

func (s *SQLiteStore) RecentJobs(ctx context.Context, limit int) ([]*types.Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.queryJobs(ctx, jobSelect+jobFrom+" WHERE j.is_active = 1 ORDER BY j.posted_at DESC, j.id DESC LIMIT ?", limit)
}

func (s *SQLiteStore) RecentSeekers(ctx context.Context, limit int) ([]*types.SeekerProfile, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.querySeekers(ctx, seekerSelect+discoverableSeekers+" ORDER BY s.updated_at DESC, s.id DESC LIMIT ?", limit)
}

func (s *SQLiteStore) ListEmbeddableJobs(ctx context.Context) ([]*types.Job, error) {
	return s.queryJobs(ctx, jobSelect+jobFrom+" WHERE j.is_active = 1 ORDER BY j.id")
}

func (s *SQLiteStore) ListEmbeddableSeekers(ctx context.Context) ([]*types.SeekerProfile, error) {
	return s.querySeekers(ctx, seekerSelect+" WHERE s.wizard_completed = 1 ORDER BY s.id")
}

func (s *SQLiteStore) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{Driver: DriverSQLite, BuildMode: BuildMode}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM categories", &status.Categories},
		{"SELECT COUNT(*) FROM organizations", &status.Organizations},
		{"SELECT COUNT(*) FROM jobs", &status.Jobs},
		{"SELECT COUNT(*) FROM jobs WHERE is_active = 1", &status.ActiveJobs},
		{"SELECT COUNT(*) FROM jobs WHERE embedding IS NOT NULL", &status.EmbeddedJobs},
		{"SELECT COUNT(*) FROM seekers", &status.Seekers},
		{"SELECT COUNT(*) FROM seekers WHERE embedding IS NOT NULL", &status.EmbeddedSeekers},
		{"SELECT COUNT(*) FROM job_matches", &status.CachedMatches},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to collect status: %w", err)
		}
	}

	version, err := currentSchemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()
	return status, nil
}

// Encoding helpers

func nullID(id int64) interface{} {
	if id <= 0 {
		return nil
	}
	return id
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func encodeJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(data), nil
}

func decodeJSON(data string, v interface{}) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilJobTypes(v []types.JobType) []types.JobType {
	if v == nil {
		return []types.JobType{}
	}
	return v
}

// matchRow is the serialized form of a MatchResult in job_matches
type matchRow struct {
	breakdown     string
	reasons       string
	gaps          string
	impactReasons string
}

func newMatchRow(m *types.MatchResult) (*matchRow, error) {
	breakdown, err := encodeJSON(struct {
		Components types.Breakdown        `json:"components"`
		Profile    types.ProfileBreakdown `json:"profile"`
		Impact     types.ImpactBreakdown  `json:"impact"`
	}{m.Breakdown, m.Profile, m.Impact})
	if err != nil {
		return nil, err
	}
	reasons, err := encodeJSON(nonNilStrings(m.Reasons))
	if err != nil {
		return nil, err
	}
	gaps, err := encodeJSON(nonNilStrings(m.Gaps))
	if err != nil {
		return nil, err
	}
	impactReasons, err := encodeJSON(nonNilStrings(m.ImpactReasons))
	if err != nil {
		return nil, err
	}
	return &matchRow{breakdown: breakdown, reasons: reasons, gaps: gaps, impactReasons: impactReasons}, nil
}
