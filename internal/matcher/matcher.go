package matcher

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/impactmatch/internal/heuristics"
	"github.com/dshills/impactmatch/internal/retrieval"
	"github.com/dshills/impactmatch/internal/scoring"
	"github.com/dshills/impactmatch/internal/storage"
	"github.com/dshills/impactmatch/pkg/types"
)

// Result limits
const (
	DefaultResultLimit          = 25
	MaxResultLimit              = 100
	DefaultCandidateResultLimit = 50
	MaxCandidateResultLimit     = 200

	// Reverse retrieval over-fetches so that ranking has room to reorder
	candidateOverfetch = 3
)

var (
	// ErrSeekerNotFound is returned when a seeker id does not resolve
	ErrSeekerNotFound = errors.New("seeker not found")
	// ErrJobNotFound is returned when a job id does not resolve
	ErrJobNotFound = errors.New("job not found")
)

// Config tunes the matcher
type Config struct {
	Workers        int  // Concurrent scoring workers (default: runtime.NumCPU())
	PersistMatches bool // Write ranked results to the match table
}

// Matcher ranks jobs for seekers and seekers for jobs. Scores are always
// computed live; persisted matches are written for downstream readers only.
type Matcher struct {
	store     storage.Store
	retriever *retrieval.Retriever
	tables    *heuristics.Tables
	profile   scoring.Strategy
	impact    scoring.Strategy
	logger    *zap.Logger

	workers int
	persist bool
}

// New creates a Matcher
func New(store storage.Store, retriever *retrieval.Retriever, tables *heuristics.Tables, logger *zap.Logger, cfg Config) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Matcher{
		store:     store,
		retriever: retriever,
		tables:    tables,
		profile:   scoring.NewProfile(tables),
		impact:    scoring.NewImpact(tables),
		logger:    logger,
		workers:   cfg.Workers,
		persist:   cfg.PersistMatches,
	}
}

// ComputeMatch scores one seeker/job pair. The semantic score comes from the
// stored embeddings when both sides have one and is neutral otherwise.
func (m *Matcher) ComputeMatch(ctx context.Context, seeker *types.SeekerProfile, job *types.Job) (*types.MatchResult, error) {
	if err := checkSeeker(seeker); err != nil {
		return nil, err
	}
	if err := checkJob(job); err != nil {
		return nil, err
	}

	distance, ok := pairDistance(seeker, job)
	lexical := m.lexicalFor(ctx, seeker, []int64{job.ID})
	return m.score(seeker, job, scoring.SemanticScore(distance, ok), lexical), nil
}

// GetMatches ranks retrieved jobs for a seeker and returns at most limit
// results ordered by descending score. Equal scores keep retrieval order.
func (m *Matcher) GetMatches(ctx context.Context, seeker *types.SeekerProfile, limit int) ([]*types.MatchResult, error) {
	if err := checkSeeker(seeker); err != nil {
		return nil, err
	}
	limit = boundLimit(limit, DefaultResultLimit, MaxResultLimit)
	start := time.Now()

	set, err := m.retriever.JobsForSeeker(ctx, seeker, m.retriever.CandidateLimit())
	if err != nil {
		return nil, fmt.Errorf("retrieve jobs for seeker %d: %w", seeker.ID, err)
	}

	ids := make([]int64, len(set.Candidates))
	for i, c := range set.Candidates {
		ids[i] = c.Job.ID
	}
	lexical := m.lexicalFor(ctx, seeker, ids)

	results := make([]*types.MatchResult, len(set.Candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, c := range set.Candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = m.score(seeker, c.Job, scoring.SemanticScore(c.Distance, c.HasDistance), lexical)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	m.save(ctx, results)
	m.logger.Info("matches computed",
		zap.Int64("seeker_id", seeker.ID),
		zap.String("retrieval", string(set.Mode)),
		zap.Int("candidates", len(set.Candidates)),
		zap.Int("returned", len(results)),
		zap.Duration("duration", time.Since(start)))
	return results, nil
}

// GetCandidatesForJob ranks discoverable seekers for a job and returns at
// most limit pairs ordered by descending score
func (m *Matcher) GetCandidatesForJob(ctx context.Context, job *types.Job, limit int) ([]types.CandidateMatch, error) {
	if err := checkJob(job); err != nil {
		return nil, err
	}
	limit = boundLimit(limit, DefaultCandidateResultLimit, MaxCandidateResultLimit)
	start := time.Now()

	set, err := m.retriever.SeekersForJob(ctx, job, limit*candidateOverfetch)
	if err != nil {
		return nil, fmt.Errorf("retrieve seekers for job %d: %w", job.ID, err)
	}

	// Lexical terms belong to the seeker, so each candidate needs its own
	// rank lookup; the worker limit bounds those queries too
	candidates := make([]types.CandidateMatch, len(set.Candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, c := range set.Candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lexical := m.lexicalFor(gctx, c.Seeker, []int64{job.ID})
			candidates[i] = types.CandidateMatch{
				Seeker: c.Seeker,
				Match:  m.score(c.Seeker, job, scoring.SemanticScore(c.Distance, c.HasDistance), lexical),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Match.Score > candidates[j].Match.Score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	matches := make([]*types.MatchResult, len(candidates))
	for i, c := range candidates {
		matches[i] = c.Match
	}
	m.save(ctx, matches)
	m.logger.Info("candidates computed",
		zap.Int64("job_id", job.ID),
		zap.String("retrieval", string(set.Mode)),
		zap.Int("candidates", len(set.Candidates)),
		zap.Int("returned", len(candidates)),
		zap.Duration("duration", time.Since(start)))
	return candidates, nil
}

// ComputeMatchByID loads both entities and scores them
func (m *Matcher) ComputeMatchByID(ctx context.Context, seekerID, jobID int64) (*types.MatchResult, error) {
	seeker, err := m.loadSeeker(ctx, seekerID)
	if err != nil {
		return nil, err
	}
	job, err := m.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return m.ComputeMatch(ctx, seeker, job)
}

// GetMatchesByID loads the seeker and ranks jobs for it
func (m *Matcher) GetMatchesByID(ctx context.Context, seekerID int64, limit int) ([]*types.MatchResult, error) {
	seeker, err := m.loadSeeker(ctx, seekerID)
	if err != nil {
		return nil, err
	}
	return m.GetMatches(ctx, seeker, limit)
}

// GetCandidatesByJobID loads the job and ranks seekers for it
func (m *Matcher) GetCandidatesByJobID(ctx context.Context, jobID int64, limit int) ([]types.CandidateMatch, error) {
	job, err := m.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return m.GetCandidatesForJob(ctx, job, limit)
}

func (m *Matcher) score(seeker *types.SeekerProfile, job *types.Job, semantic float64, lexical scoring.Strategy) *types.MatchResult {
	return scoring.Combine(seeker.ID, job.ID, semantic,
		lexical.Score(seeker, job),
		m.profile.Score(seeker, job),
		m.impact.Score(seeker, job))
}

// lexicalFor fetches ranks for the seeker's terms once per request. A failed
// query degrades to the neutral lexical score.
func (m *Matcher) lexicalFor(ctx context.Context, seeker *types.SeekerProfile, jobIDs []int64) *scoring.Lexical {
	terms := scoring.LexicalTerms(m.tables, seeker)
	if len(terms) == 0 || len(jobIDs) == 0 {
		return scoring.NewLexical(terms, nil)
	}
	ranks, err := m.store.LexicalRanks(ctx, terms, jobIDs)
	if err != nil {
		m.logger.Warn("lexical ranking failed, using neutral score",
			zap.Int64("seeker_id", seeker.ID),
			zap.Int("jobs", len(jobIDs)),
			zap.Error(err))
		ranks = nil
	}
	return scoring.NewLexical(terms, ranks)
}

func (m *Matcher) save(ctx context.Context, matches []*types.MatchResult) {
	if !m.persist || len(matches) == 0 {
		return
	}
	if err := m.store.SaveMatches(ctx, matches); err != nil {
		m.logger.Warn("failed to persist matches", zap.Int("matches", len(matches)), zap.Error(err))
	}
}

func (m *Matcher) loadSeeker(ctx context.Context, id int64) (*types.SeekerProfile, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidSeeker, types.ErrInvalidSeekerID)
	}
	seeker, err := m.store.GetSeeker(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrSeekerNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load seeker %d: %w", id, err)
	}
	return seeker, nil
}

func (m *Matcher) loadJob(ctx context.Context, id int64) (*types.Job, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidJob, types.ErrInvalidJobID)
	}
	job, err := m.store.GetJob(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load job %d: %w", id, err)
	}
	return job, nil
}

func checkSeeker(seeker *types.SeekerProfile) error {
	if seeker == nil {
		return types.ErrInvalidSeeker
	}
	if seeker.ID <= 0 {
		return fmt.Errorf("%w: %w", types.ErrInvalidSeeker, types.ErrInvalidSeekerID)
	}
	return nil
}

func checkJob(job *types.Job) error {
	if job == nil {
		return types.ErrInvalidJob
	}
	if job.ID <= 0 {
		return fmt.Errorf("%w: %w", types.ErrInvalidJob, types.ErrInvalidJobID)
	}
	return nil
}

// pairDistance returns the cosine distance between two stored embeddings
func pairDistance(seeker *types.SeekerProfile, job *types.Job) (float64, bool) {
	if !seeker.HasEmbedding() || !job.HasEmbedding() || len(seeker.Embedding) != len(job.Embedding) {
		return 0, false
	}
	return storage.CosineDistance(seeker.Embedding, job.Embedding), true
}

func boundLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
