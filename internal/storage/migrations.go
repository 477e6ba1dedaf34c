package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CurrentSchemaVersion tracks the database schema version
const CurrentSchemaVersion = "1.1.0"

// Migration is a versioned schema change
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains the SQLite migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

const migrationV1Up = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS organizations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    is_givewell_top_charity BOOLEAN NOT NULL DEFAULT 0,
    is_80k_recommended BOOLEAN NOT NULL DEFAULT 0,
    is_bcorp_certified BOOLEAN NOT NULL DEFAULT 0,
    bcorp_score INTEGER,
    has_public_impact_report BOOLEAN NOT NULL DEFAULT 0,
    has_public_financials BOOLEAN NOT NULL DEFAULT 0,
    impact_statement TEXT NOT NULL DEFAULT '',
    impact_metric_name TEXT NOT NULL DEFAULT '',
    impact_metric_value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    organization_id INTEGER,
    category_id INTEGER,
    description TEXT NOT NULL DEFAULT '',
    requirements TEXT NOT NULL DEFAULT '',
    impact TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    job_type TEXT NOT NULL DEFAULT '',
    salary_min INTEGER,
    salary_max INTEGER,
    skills TEXT NOT NULL DEFAULT '[]',
    embedding BLOB,
    embedding_hash TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT 1,
    posted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    expires_at TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (organization_id) REFERENCES organizations(id) ON DELETE SET NULL,
    FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_active_posted ON jobs(is_active, posted_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_category ON jobs(category_id);

-- Column order fixes the bm25 weights: title, description, impact, requirements
CREATE VIRTUAL TABLE IF NOT EXISTS jobs_fts USING fts5(
    title, description, impact, requirements,
    content='jobs',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS jobs_ai AFTER INSERT ON jobs BEGIN
    INSERT INTO jobs_fts(rowid, title, description, impact, requirements)
    VALUES (new.id, new.title, new.description, new.impact, new.requirements);
END;

CREATE TRIGGER IF NOT EXISTS jobs_ad AFTER DELETE ON jobs BEGIN
    INSERT INTO jobs_fts(jobs_fts, rowid, title, description, impact, requirements)
    VALUES ('delete', old.id, old.title, old.description, old.impact, old.requirements);
END;

CREATE TRIGGER IF NOT EXISTS jobs_au AFTER UPDATE OF title, description, impact, requirements ON jobs BEGIN
    INSERT INTO jobs_fts(jobs_fts, rowid, title, description, impact, requirements)
    VALUES ('delete', old.id, old.title, old.description, old.impact, old.requirements);
    INSERT INTO jobs_fts(rowid, title, description, impact, requirements)
    VALUES (new.id, new.title, new.description, new.impact, new.requirements);
END;

CREATE TABLE IF NOT EXISTS seekers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    skills TEXT NOT NULL DEFAULT '[]',
    work_style TEXT NOT NULL DEFAULT '',
    experience_level TEXT NOT NULL DEFAULT '',
    remote_preference TEXT NOT NULL DEFAULT '',
    salary_min INTEGER,
    salary_max INTEGER,
    job_types TEXT NOT NULL DEFAULT '[]',
    impact_statement TEXT NOT NULL DEFAULT '',
    location_preferences TEXT NOT NULL DEFAULT '[]',
    assessment_answers TEXT NOT NULL DEFAULT '{}',
    visibility TEXT NOT NULL DEFAULT 'matching',
    is_actively_looking BOOLEAN NOT NULL DEFAULT 1,
    wizard_completed BOOLEAN NOT NULL DEFAULT 0,
    embedding BLOB,
    embedding_hash TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_seekers_discoverable ON seekers(is_actively_looking, visibility, updated_at DESC);

CREATE TABLE IF NOT EXISTS seeker_impact_areas (
    seeker_id INTEGER NOT NULL,
    category_id INTEGER NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (seeker_id, category_id),
    FOREIGN KEY (seeker_id) REFERENCES seekers(id) ON DELETE CASCADE,
    FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
);
`

const migrationV1Down = `
DROP TRIGGER IF EXISTS jobs_au;
DROP TRIGGER IF EXISTS jobs_ad;
DROP TRIGGER IF EXISTS jobs_ai;

DROP TABLE IF EXISTS seeker_impact_areas;
DROP TABLE IF EXISTS seekers;
DROP TABLE IF EXISTS jobs_fts;
DROP TABLE IF EXISTS jobs;
DROP TABLE IF EXISTS organizations;
DROP TABLE IF EXISTS categories;
DROP TABLE IF EXISTS schema_version;
`

const migrationV11Up = `
CREATE TABLE IF NOT EXISTS job_matches (
    seeker_id INTEGER NOT NULL,
    job_id INTEGER NOT NULL,
    score REAL NOT NULL,
    tier TEXT NOT NULL,
    breakdown TEXT NOT NULL,
    reasons TEXT NOT NULL DEFAULT '[]',
    gaps TEXT NOT NULL DEFAULT '[]',
    impact_reasons TEXT NOT NULL DEFAULT '[]',
    computed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (seeker_id, job_id),
    FOREIGN KEY (seeker_id) REFERENCES seekers(id) ON DELETE CASCADE,
    FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_job_matches_job ON job_matches(job_id, score DESC);
`

const migrationV11Down = `
DROP TABLE IF EXISTS job_matches;
`

// ApplyMigrations runs all pending SQLite migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	current, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}
		if !current.LessThan(migrationVersion) {
			continue
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}
		current = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent SQLite migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := currentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return errors.New("no migrations to rollback")
	}

	migration, err := findMigration(AllMigrations, current)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}
	// The 1.0.0 down script drops schema_version itself
	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil && migration.Version != "1.0.0" {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}
	return nil
}

func currentSchemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

// highestVersion picks the greatest applied version; applied_at has one
// second resolution so it cannot order migrations applied together
func highestVersion(versions []string) (*semver.Version, error) {
	highest := semver.MustParse("0.0.0")
	for _, s := range versions {
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", s, err)
		}
		if v.GreaterThan(highest) {
			highest = v
		}
	}
	return highest, nil
}

func findMigration(all []Migration, version *semver.Version) (*Migration, error) {
	for i := range all {
		v, err := semver.NewVersion(all[i].Version)
		if err != nil {
			return nil, err
		}
		if v.Equal(version) {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("migration %s not found", version)
}
