package storage

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMigrations contains the Postgres migrations in order. Versions track
// the SQLite schema so both report the same schema_version.
var PostgresMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      pgMigrationV1Up,
		Down:    pgMigrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      pgMigrationV11Up,
		Down:    pgMigrationV11Down,
	},
}

const pgMigrationV1Up = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS categories (
    id BIGSERIAL PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS organizations (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    is_givewell_top_charity BOOLEAN NOT NULL DEFAULT FALSE,
    is_80k_recommended BOOLEAN NOT NULL DEFAULT FALSE,
    is_bcorp_certified BOOLEAN NOT NULL DEFAULT FALSE,
    bcorp_score INTEGER,
    has_public_impact_report BOOLEAN NOT NULL DEFAULT FALSE,
    has_public_financials BOOLEAN NOT NULL DEFAULT FALSE,
    impact_statement TEXT NOT NULL DEFAULT '',
    impact_metric_name TEXT NOT NULL DEFAULT '',
    impact_metric_value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS jobs (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    organization_id BIGINT REFERENCES organizations(id) ON DELETE SET NULL,
    category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL,
    description TEXT NOT NULL DEFAULT '',
    requirements TEXT NOT NULL DEFAULT '',
    impact TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    job_type TEXT NOT NULL DEFAULT '',
    salary_min INTEGER,
    salary_max INTEGER,
    skills TEXT[] NOT NULL DEFAULT '{}',
    embedding vector(384),
    embedding_hash TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    posted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    expires_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    search_vector tsvector GENERATED ALWAYS AS (
        setweight(to_tsvector('english', coalesce(title, '')), 'A') ||
        setweight(to_tsvector('english', coalesce(description, '')), 'B') ||
        setweight(to_tsvector('english', coalesce(impact, '')), 'C') ||
        setweight(to_tsvector('english', coalesce(requirements, '')), 'D')
    ) STORED
);

CREATE INDEX IF NOT EXISTS idx_jobs_active_posted ON jobs(is_active, posted_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_search ON jobs USING gin(search_vector);
CREATE INDEX IF NOT EXISTS idx_jobs_embedding ON jobs USING hnsw (embedding vector_cosine_ops);

CREATE TABLE IF NOT EXISTS seekers (
    id BIGSERIAL PRIMARY KEY,
    skills TEXT[] NOT NULL DEFAULT '{}',
    work_style TEXT NOT NULL DEFAULT '',
    experience_level TEXT NOT NULL DEFAULT '',
    remote_preference TEXT NOT NULL DEFAULT '',
    salary_min INTEGER,
    salary_max INTEGER,
    job_types TEXT[] NOT NULL DEFAULT '{}',
    impact_statement TEXT NOT NULL DEFAULT '',
    location_preferences TEXT[] NOT NULL DEFAULT '{}',
    assessment_answers JSONB NOT NULL DEFAULT '{}',
    visibility TEXT NOT NULL DEFAULT 'matching',
    is_actively_looking BOOLEAN NOT NULL DEFAULT TRUE,
    wizard_completed BOOLEAN NOT NULL DEFAULT FALSE,
    embedding vector(384),
    embedding_hash TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_seekers_discoverable ON seekers(is_actively_looking, visibility, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_seekers_embedding ON seekers USING hnsw (embedding vector_cosine_ops);

CREATE TABLE IF NOT EXISTS seeker_impact_areas (
    seeker_id BIGINT NOT NULL REFERENCES seekers(id) ON DELETE CASCADE,
    category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    position INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (seeker_id, category_id)
);
`

const pgMigrationV1Down = `
DROP TABLE IF EXISTS seeker_impact_areas;
DROP TABLE IF EXISTS seekers;
DROP TABLE IF EXISTS jobs;
DROP TABLE IF EXISTS organizations;
DROP TABLE IF EXISTS categories;
DROP TABLE IF EXISTS schema_version;
`

const pgMigrationV11Up = `
CREATE TABLE IF NOT EXISTS job_matches (
    seeker_id BIGINT NOT NULL REFERENCES seekers(id) ON DELETE CASCADE,
    job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    score DOUBLE PRECISION NOT NULL,
    tier TEXT NOT NULL,
    breakdown JSONB NOT NULL,
    reasons JSONB NOT NULL DEFAULT '[]',
    gaps JSONB NOT NULL DEFAULT '[]',
    impact_reasons JSONB NOT NULL DEFAULT '[]',
    computed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (seeker_id, job_id)
);

CREATE INDEX IF NOT EXISTS idx_job_matches_job ON job_matches(job_id, score DESC);
`

const pgMigrationV11Down = `
DROP TABLE IF EXISTS job_matches;
`

// ApplyPostgresMigrations runs all pending Postgres migrations
func ApplyPostgresMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	current, err := pgSchemaVersion(ctx, pool)
	if err != nil {
		return err
	}

	for _, migration := range PostgresMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}
		if !current.LessThan(migrationVersion) {
			continue
		}

		if _, err := pool.Exec(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		if _, err := pool.Exec(ctx, "INSERT INTO schema_version (version) VALUES ($1)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}
		current = migrationVersion
	}
	return nil
}

// RollbackPostgresMigration rolls back the most recent Postgres migration
func RollbackPostgresMigration(ctx context.Context, pool *pgxpool.Pool) error {
	current, err := pgSchemaVersion(ctx, pool)
	if err != nil {
		return err
	}
	migration, err := findMigration(PostgresMigrations, current)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}
	if migration.Version != "1.0.0" {
		if _, err := pool.Exec(ctx, "DELETE FROM schema_version WHERE version = $1", migration.Version); err != nil {
			return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
		}
	}
	return nil
}

func pgSchemaVersion(ctx context.Context, pool *pgxpool.Pool) (*semver.Version, error) {
	var exists bool
	if err := pool.QueryRow(ctx, "SELECT to_regclass('schema_version') IS NOT NULL").Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}
	if !exists {
		return semver.MustParse("0.0.0"), nil
	}

	rows, err := pool.Query(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return highestVersion(versions)
}
