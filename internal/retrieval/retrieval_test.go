package retrieval

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/impactmatch/internal/embedder"
	"github.com/dshills/impactmatch/internal/storage"
	"github.com/dshills/impactmatch/pkg/types"
)

func setupStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func axis(i int) []float32 {
	v := make([]float32, storage.VectorDimension)
	v[i] = 1
	return v
}

// countingEmbedder wraps the local provider and counts single requests
type countingEmbedder struct {
	embedder.Embedder
	calls atomic.Int32
	err   error
}

func (c *countingEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.Embedder.GenerateEmbedding(ctx, req)
}

func newCountingService(t *testing.T, err error) (*embedder.Service, *countingEmbedder) {
	t.Helper()
	local, lerr := embedder.NewLocalProvider(nil)
	require.NoError(t, lerr)
	counting := &countingEmbedder{Embedder: local, err: err}
	return embedder.NewService(counting, nil, nil), counting
}

// failingStore fails every vector query
type failingStore struct {
	storage.Store
}

func (f failingStore) NearestJobs(context.Context, []float32, int) ([]storage.ScoredJob, error) {
	return nil, errors.New("index unavailable")
}

func (f failingStore) NearestSeekers(context.Context, []float32, int) ([]storage.ScoredSeeker, error) {
	return nil, errors.New("index unavailable")
}

func seedJobs(t *testing.T, store storage.Store) []*types.Job {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	jobs := []*types.Job{
		{Title: "Climate Data Analyst", IsActive: true, PostedAt: base},
		{Title: "Program Manager", IsActive: true, PostedAt: base.Add(time.Hour)},
		{Title: "Field Officer", IsActive: true, PostedAt: base.Add(2 * time.Hour)},
		{Title: "Closed Role", IsActive: false, PostedAt: base.Add(3 * time.Hour)},
	}
	for i, job := range jobs {
		require.NoError(t, store.UpsertJob(ctx, job))
		if i < 2 || i == 3 {
			require.NoError(t, store.SetJobEmbedding(ctx, job.ID, axis(i), "h"))
		}
	}
	return jobs
}

func TestJobsForSeeker_ANN(t *testing.T) {
	store := setupStore(t)
	jobs := seedJobs(t, store)
	r := New(store, nil)

	seeker := &types.SeekerProfile{ID: 1, Embedding: axis(1)}
	set, err := r.JobsForSeeker(context.Background(), seeker, 10)
	require.NoError(t, err)

	assert.Equal(t, ModeANN, set.Mode)
	require.Len(t, set.Candidates, 2, "inactive and unembedded jobs are excluded")
	assert.Equal(t, jobs[1].ID, set.Candidates[0].Job.ID)
	assert.True(t, set.Candidates[0].HasDistance)
	assert.InDelta(t, 0, set.Candidates[0].Distance, 1e-6)
	assert.InDelta(t, 1, set.Candidates[1].Distance, 1e-6)
}

func TestJobsForSeeker_RecencyFallback(t *testing.T) {
	tests := []struct {
		name   string
		store  func(storage.Store) storage.Store
		seeker *types.SeekerProfile
	}{
		{
			name:   "seeker without embedding",
			store:  func(s storage.Store) storage.Store { return s },
			seeker: &types.SeekerProfile{ID: 1},
		},
		{
			name:   "vector query fails",
			store:  func(s storage.Store) storage.Store { return failingStore{Store: s} },
			seeker: &types.SeekerProfile{ID: 1, Embedding: axis(0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := setupStore(t)
			jobs := seedJobs(t, base)
			r := New(tt.store(base), nil)

			set, err := r.JobsForSeeker(context.Background(), tt.seeker, 10)
			require.NoError(t, err)
			assert.Equal(t, ModeRecency, set.Mode)
			require.Len(t, set.Candidates, 3)
			// newest active first
			assert.Equal(t, jobs[2].ID, set.Candidates[0].Job.ID)
			assert.Equal(t, jobs[1].ID, set.Candidates[1].Job.ID)
			assert.Equal(t, jobs[0].ID, set.Candidates[2].Job.ID)
			for _, c := range set.Candidates {
				assert.False(t, c.HasDistance)
			}
		})
	}
}

func TestJobsForSeeker_EmptyIndexFallsBack(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertJob(ctx, &types.Job{Title: "Unembedded", IsActive: true}))

	r := New(store, nil)
	set, err := r.JobsForSeeker(ctx, &types.SeekerProfile{ID: 1, Embedding: axis(0)}, 5)
	require.NoError(t, err)
	assert.Equal(t, ModeRecency, set.Mode)
	assert.Len(t, set.Candidates, 1)
}

func TestJobsForSeeker_Limits(t *testing.T) {
	store := setupStore(t)
	seedJobs(t, store)
	r := New(store, nil, WithCandidateLimit(1))
	assert.Equal(t, 1, r.CandidateLimit())

	set, err := r.JobsForSeeker(context.Background(), &types.SeekerProfile{ID: 1}, 50)
	require.NoError(t, err)
	assert.Len(t, set.Candidates, 1)

	_, err = r.JobsForSeeker(context.Background(), nil, 10)
	assert.ErrorIs(t, err, types.ErrInvalidSeeker)
}

func seedSeekers(t *testing.T, store storage.Store) []*types.SeekerProfile {
	t.Helper()
	ctx := context.Background()
	seekers := []*types.SeekerProfile{
		{Visibility: types.VisibilityPublic, IsActivelyLooking: true, WizardCompleted: true},
		{Visibility: types.VisibilityMatching, IsActivelyLooking: true, WizardCompleted: true},
		{Visibility: types.VisibilityHidden, IsActivelyLooking: true, WizardCompleted: true},
		{Visibility: types.VisibilityPublic, IsActivelyLooking: false, WizardCompleted: true},
	}
	for i, sk := range seekers {
		require.NoError(t, store.UpsertSeeker(ctx, sk))
		require.NoError(t, store.SetSeekerEmbedding(ctx, sk.ID, axis(i), "h"))
	}
	return seekers
}

func TestSeekersForJob_StoredVector(t *testing.T) {
	store := setupStore(t)
	seekers := seedSeekers(t, store)
	r := New(store, nil)

	set, err := r.SeekersForJob(context.Background(), &types.Job{ID: 9, Title: "Analyst", Embedding: axis(1)}, 10)
	require.NoError(t, err)
	assert.Equal(t, ModeANN, set.Mode)
	require.Len(t, set.Candidates, 2, "hidden and inactive seekers are excluded")
	assert.Equal(t, seekers[1].ID, set.Candidates[0].Seeker.ID)
	assert.Equal(t, seekers[0].ID, set.Candidates[1].Seeker.ID)
}

func TestSeekersForJob_EmbedsOnTheFly(t *testing.T) {
	store := setupStore(t)
	seedSeekers(t, store)
	svc, counting := newCountingService(t, nil)
	r := New(store, svc)

	job := &types.Job{ID: 9, Title: "Climate Data Analyst", Description: "Model emissions."}
	set, err := r.SeekersForJob(context.Background(), job, 10)
	require.NoError(t, err)
	assert.Equal(t, ModeANN, set.Mode)
	assert.Len(t, set.Candidates, 2)

	// Second call reuses the cached vector
	_, err = r.SeekersForJob(context.Background(), job, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), counting.calls.Load())

	// Edited text misses the cache
	job.Description = "Model land use."
	_ = r.JobVector(context.Background(), job)
	assert.Equal(t, int32(2), counting.calls.Load())
}

func TestSeekersForJob_ProviderFailureFallsBack(t *testing.T) {
	store := setupStore(t)
	seedSeekers(t, store)
	svc, _ := newCountingService(t, errors.New("provider down"))
	r := New(store, svc)

	set, err := r.SeekersForJob(context.Background(), &types.Job{ID: 9, Title: "Analyst"}, 10)
	require.NoError(t, err)
	assert.Equal(t, ModeRecency, set.Mode)
	assert.Len(t, set.Candidates, 2)
	for _, c := range set.Candidates {
		assert.True(t, c.Seeker.IsDiscoverable())
		assert.False(t, c.HasDistance)
	}
}

func TestSeekersForJob_NoTextNoProvider(t *testing.T) {
	store := setupStore(t)
	seedSeekers(t, store)

	r := New(store, nil)
	set, err := r.SeekersForJob(context.Background(), &types.Job{ID: 9, Title: "Analyst"}, 10)
	require.NoError(t, err)
	assert.Equal(t, ModeRecency, set.Mode)

	_, err = r.SeekersForJob(context.Background(), nil, 10)
	assert.ErrorIs(t, err, types.ErrInvalidJob)
}

func TestJobVector_Expiry(t *testing.T) {
	svc, counting := newCountingService(t, nil)
	r := New(setupStore(t), svc, WithVectorCacheTTL(time.Nanosecond))

	job := &types.Job{ID: 1, Title: "Analyst"}
	require.NotEmpty(t, r.JobVector(context.Background(), job))
	time.Sleep(time.Millisecond)
	require.NotEmpty(t, r.JobVector(context.Background(), job))
	assert.Equal(t, int32(2), counting.calls.Load())
}
