package retrieval

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/dshills/impactmatch/internal/embedder"
	"github.com/dshills/impactmatch/internal/storage"
	"github.com/dshills/impactmatch/pkg/types"
)

// Mode records how a candidate set was produced
type Mode string

const (
	ModeANN     Mode = "ann"     // Cosine nearest neighbours
	ModeRecency Mode = "recency" // Newest first, no semantic signal
)

// Defaults
const (
	DefaultCandidateLimit = 150
	defaultVectorCacheTTL = 10 * time.Minute
	vectorCacheSize       = 512
)

// JobCandidate is a job retrieved for a seeker
type JobCandidate struct {
	Job         *types.Job
	Distance    float64
	HasDistance bool // false for recency fallback hits
}

// SeekerCandidate is a seeker retrieved for a job
type SeekerCandidate struct {
	Seeker      *types.SeekerProfile
	Distance    float64
	HasDistance bool
}

// JobSet is the outcome of a forward retrieval
type JobSet struct {
	Candidates []JobCandidate
	Mode       Mode
	Duration   time.Duration
}

// SeekerSet is the outcome of a reverse retrieval
type SeekerSet struct {
	Candidates []SeekerCandidate
	Mode       Mode
	Duration   time.Duration
}

// vectorEntry caches an on-the-fly job embedding
type vectorEntry struct {
	vector    []float32
	expiresAt time.Time
}

// Retriever finds candidates by vector similarity and falls back to recency
// when there is nothing to compare
type Retriever struct {
	store      storage.Store
	embeddings *embedder.Service
	logger     *zap.Logger
	limit      int

	vectors  *lru.Cache[string, *vectorEntry]
	vectorMu sync.RWMutex
	ttl      time.Duration
}

// Option configures a Retriever
type Option func(*Retriever)

// WithCandidateLimit caps every retrieval
func WithCandidateLimit(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithVectorCacheTTL sets how long on-the-fly job embeddings are reused
func WithVectorCacheTTL(ttl time.Duration) Option {
	return func(r *Retriever) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// New creates a Retriever. embeddings may be nil, in which case jobs without
// a stored vector go straight to the recency fallback.
func New(store storage.Store, embeddings *embedder.Service, opts ...Option) *Retriever {
	cache, err := lru.New[string, *vectorEntry](vectorCacheSize)
	if err != nil {
		// Only fails for a non-positive size
		panic(fmt.Sprintf("failed to create vector cache: %v", err))
	}

	r := &Retriever{
		store:      store,
		embeddings: embeddings,
		logger:     zap.NewNop(),
		limit:      DefaultCandidateLimit,
		vectors:    cache,
		ttl:        defaultVectorCacheTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CandidateLimit returns the configured cap
func (r *Retriever) CandidateLimit() int {
	return r.limit
}

func (r *Retriever) bound(limit int) int {
	if limit <= 0 || limit > r.limit {
		return r.limit
	}
	return limit
}

// JobsForSeeker returns active jobs nearest to the seeker's embedding. A
// seeker without an embedding, a failed vector query, or an empty vector
// result all fall back to the newest active jobs.
func (r *Retriever) JobsForSeeker(ctx context.Context, seeker *types.SeekerProfile, limit int) (*JobSet, error) {
	if seeker == nil {
		return nil, types.ErrInvalidSeeker
	}
	start := time.Now()
	limit = r.bound(limit)

	if seeker.HasEmbedding() {
		hits, err := r.store.NearestJobs(ctx, seeker.Embedding, limit)
		switch {
		case err != nil:
			r.logger.Warn("vector search failed, using recency fallback",
				zap.Int64("seeker_id", seeker.ID),
				zap.Error(err))
		case len(hits) == 0:
			r.logger.Debug("no embedded jobs, using recency fallback", zap.Int64("seeker_id", seeker.ID))
		default:
			set := &JobSet{Candidates: make([]JobCandidate, len(hits)), Mode: ModeANN}
			for i, h := range hits {
				set.Candidates[i] = JobCandidate{Job: h.Job, Distance: h.Distance, HasDistance: true}
			}
			set.Duration = time.Since(start)
			return set, nil
		}
	} else {
		r.logger.Debug("seeker has no embedding, using recency fallback", zap.Int64("seeker_id", seeker.ID))
	}

	jobs, err := r.store.RecentJobs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}
	set := &JobSet{Candidates: make([]JobCandidate, len(jobs)), Mode: ModeRecency}
	for i, job := range jobs {
		set.Candidates[i] = JobCandidate{Job: job}
	}
	set.Duration = time.Since(start)
	return set, nil
}

// SeekersForJob returns discoverable seekers nearest to the job. A job
// without a stored vector is embedded on the fly; when that yields nothing
// the most recently updated discoverable seekers are returned instead.
func (r *Retriever) SeekersForJob(ctx context.Context, job *types.Job, limit int) (*SeekerSet, error) {
	if job == nil {
		return nil, types.ErrInvalidJob
	}
	start := time.Now()
	limit = r.bound(limit)

	if vector := r.JobVector(ctx, job); len(vector) > 0 {
		hits, err := r.store.NearestSeekers(ctx, vector, limit)
		switch {
		case err != nil:
			r.logger.Warn("vector search failed, using recency fallback",
				zap.Int64("job_id", job.ID),
				zap.Error(err))
		case len(hits) == 0:
			r.logger.Debug("no embedded seekers, using recency fallback", zap.Int64("job_id", job.ID))
		default:
			set := &SeekerSet{Candidates: make([]SeekerCandidate, len(hits)), Mode: ModeANN}
			for i, h := range hits {
				set.Candidates[i] = SeekerCandidate{Seeker: h.Seeker, Distance: h.Distance, HasDistance: true}
			}
			set.Duration = time.Since(start)
			return set, nil
		}
	}

	seekers, err := r.store.RecentSeekers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent seekers: %w", err)
	}
	set := &SeekerSet{Candidates: make([]SeekerCandidate, len(seekers)), Mode: ModeRecency}
	for i, sk := range seekers {
		set.Candidates[i] = SeekerCandidate{Seeker: sk}
	}
	set.Duration = time.Since(start)
	return set, nil
}

// JobVector returns the job's stored embedding, or embeds it on the fly.
// Provider failures are logged and yield nil.
func (r *Retriever) JobVector(ctx context.Context, job *types.Job) []float32 {
	if job.HasEmbedding() {
		return job.Embedding
	}
	if r.embeddings == nil {
		return nil
	}
	text := embedder.JobText(job)
	if text == "" {
		return nil
	}

	key := fmt.Sprintf("%d:%s", job.ID, r.embeddings.ContentHash(text))
	if v, ok := r.cachedVector(key); ok {
		return v
	}

	emb, err := r.embeddings.EmbedJob(ctx, job)
	if err != nil {
		r.logger.Warn("on-the-fly job embedding failed",
			zap.Int64("job_id", job.ID),
			zap.Error(err))
		return nil
	}
	if emb == nil {
		return nil
	}

	r.vectorMu.Lock()
	r.vectors.Add(key, &vectorEntry{vector: emb.Vector, expiresAt: time.Now().Add(r.ttl)})
	r.vectorMu.Unlock()
	return emb.Vector
}

func (r *Retriever) cachedVector(key string) ([]float32, bool) {
	r.vectorMu.RLock()
	entry, found := r.vectors.Get(key)
	if !found {
		r.vectorMu.RUnlock()
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		r.vectorMu.RUnlock()

		r.vectorMu.Lock()
		r.vectors.Remove(key)
		r.vectorMu.Unlock()
		return nil, false
	}
	v := entry.vector
	r.vectorMu.RUnlock()
	return v, true
}
