package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/impactmatch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrUnknownDriver is returned by Open for an unsupported driver name
	ErrUnknownDriver = errors.New("unknown storage driver")
	// ErrDimensionMismatch is returned when a vector has the wrong size
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// VectorDimension is the size of every stored embedding
const VectorDimension = 384

// Writer holds the mutating operations shared by stores and transactions
type Writer interface {
	UpsertCategory(ctx context.Context, c *types.Category) error
	UpsertOrganization(ctx context.Context, org *types.Organization) error
	UpsertJob(ctx context.Context, job *types.Job) error
	UpsertSeeker(ctx context.Context, seeker *types.SeekerProfile) error

	// SetJobEmbedding stores a job vector together with the hash of the text it
	// was computed from. A nil vector clears the embedding.
	SetJobEmbedding(ctx context.Context, jobID int64, vector []float32, hash string) error
	SetSeekerEmbedding(ctx context.Context, seekerID int64, vector []float32, hash string) error

	// SaveMatches writes computed results to the match cache table
	SaveMatches(ctx context.Context, matches []*types.MatchResult) error
}

// Store is the profile/job store consumed by the matching engine
type Store interface {
	Writer

	GetCategory(ctx context.Context, slug string) (*types.Category, error)
	ListCategories(ctx context.Context) ([]types.Category, error)
	GetJob(ctx context.Context, id int64) (*types.Job, error)
	GetSeeker(ctx context.Context, id int64) (*types.SeekerProfile, error)

	// NearestJobs returns active embedded jobs ordered by cosine distance
	NearestJobs(ctx context.Context, vector []float32, limit int) ([]ScoredJob, error)
	// RecentJobs returns active jobs, newest posting first
	RecentJobs(ctx context.Context, limit int) ([]*types.Job, error)
	// NearestSeekers returns discoverable embedded seekers ordered by cosine distance
	NearestSeekers(ctx context.Context, vector []float32, limit int) ([]ScoredSeeker, error)
	// RecentSeekers returns discoverable seekers, most recently updated first
	RecentSeekers(ctx context.Context, limit int) ([]*types.SeekerProfile, error)

	// LexicalRanks ranks the given jobs against OR-combined search terms.
	// Jobs that match no term are absent from the result.
	LexicalRanks(ctx context.Context, terms []string, jobIDs []int64) (map[int64]float64, error)

	// ListEmbeddableJobs returns active jobs for embedding maintenance
	ListEmbeddableJobs(ctx context.Context) ([]*types.Job, error)
	// ListEmbeddableSeekers returns seekers who completed onboarding
	ListEmbeddableSeekers(ctx context.Context) ([]*types.SeekerProfile, error)

	GetStatus(ctx context.Context) (*Status, error)

	BeginTx(ctx context.Context) (Tx, error)
	Close() error
}

// Tx is a write transaction
type Tx interface {
	Writer
	Commit() error
	Rollback() error
}

// ScoredJob is a retrieval hit
type ScoredJob struct {
	Job      *types.Job
	Distance float64 // Cosine distance, 0 is identical
}

// ScoredSeeker is a retrieval hit in the reverse direction
type ScoredSeeker struct {
	Seeker   *types.SeekerProfile
	Distance float64
}

// Status summarizes store contents
type Status struct {
	Driver          string `json:"driver"`
	BuildMode       string `json:"build_mode"`
	SchemaVersion   string `json:"schema_version"`
	Categories      int    `json:"categories"`
	Organizations   int    `json:"organizations"`
	Jobs            int    `json:"jobs"`
	ActiveJobs      int    `json:"active_jobs"`
	EmbeddedJobs    int    `json:"embedded_jobs"`
	Seekers         int    `json:"seekers"`
	EmbeddedSeekers int    `json:"embedded_seekers"`
	CachedMatches   int    `json:"cached_matches"`
}

// Config selects a store implementation
type Config struct {
	Driver string // sqlite or postgres
	Path   string // SQLite file path or :memory:
	DSN    string // Postgres connection string
}

// Driver names
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open creates the configured store and applies pending migrations
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return NewSQLiteStore(ctx, cfg.Path)
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// WithTx runs fn inside a transaction, committing on success
func WithTx(ctx context.Context, s Store, fn func(Tx) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func checkDimension(vector []float32) error {
	if vector != nil && len(vector) != VectorDimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), VectorDimension)
	}
	return nil
}
