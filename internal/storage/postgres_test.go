package storage

import (
	"context"
	"os"
	"testing"

	"github.com/dshills/impactmatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostgresStore connects to IMPACTMATCH_TEST_POSTGRES_DSN and empties
// every table. The database needs the pgvector extension available.
func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("IMPACTMATCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IMPACTMATCH_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Pool().Exec(ctx,
		"TRUNCATE job_matches, seeker_impact_areas, seekers, jobs, organizations, categories RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return store
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()
	seedCategories(t, store)

	org := &types.Organization{Name: "Malaria Consortium", IsGiveWellTopCharity: true}
	require.NoError(t, store.UpsertOrganization(ctx, org))

	job := &types.Job{
		Title:        "Program Officer",
		Organization: org,
		Category:     &types.Category{Slug: "global-health"},
		Skills:       []string{"program-management"},
		IsActive:     true,
	}
	require.NoError(t, store.UpsertJob(ctx, job))
	require.NoError(t, store.SetJobEmbedding(ctx, job.ID, axisVector(0, 0, 0), "h1"))

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"program-management"}, got.Skills)
	assert.Equal(t, "h1", got.EmbeddingHash)
	assert.Len(t, got.Embedding, VectorDimension)
	require.NotNil(t, got.Organization)
	assert.True(t, got.Organization.IsGiveWellTopCharity)

	seeker := &types.SeekerProfile{
		Skills:            []string{"python"},
		ImpactAreas:       []types.Category{{Slug: "climate"}},
		JobTypes:          []types.JobType{types.JobTypeContract},
		IsActivelyLooking: true,
		WizardCompleted:   true,
	}
	require.NoError(t, store.UpsertSeeker(ctx, seeker))
	require.NoError(t, store.SetSeekerEmbedding(ctx, seeker.ID, axisVector(0, 1, 0.5), "h2"))

	gotSeeker, err := store.GetSeeker(ctx, seeker.ID)
	require.NoError(t, err)
	assert.Equal(t, []types.JobType{types.JobTypeContract}, gotSeeker.JobTypes)
	require.Len(t, gotSeeker.ImpactAreas, 1)
	assert.Equal(t, "climate", gotSeeker.ImpactAreas[0].Slug)

	jobs, err := store.NearestJobs(ctx, axisVector(0, 0, 0), 5)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.InDelta(t, 0.0, jobs[0].Distance, 1e-6)

	seekers, err := store.NearestSeekers(ctx, axisVector(0, 0, 0), 5)
	require.NoError(t, err)
	require.Len(t, seekers, 1)
	assert.Equal(t, seeker.ID, seekers[0].Seeker.ID)
	require.Len(t, seekers[0].Seeker.ImpactAreas, 1)

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.Equal(t, 1, status.EmbeddedJobs)
	assert.Equal(t, 1, status.EmbeddedSeekers)
}

func TestPostgresStore_LexicalRanks(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	titleHit := &types.Job{Title: "Python Engineer", Description: "Work on our platform.", IsActive: true}
	reqHit := &types.Job{Title: "Program Manager", Requirements: "Some python helps", IsActive: true}
	miss := &types.Job{Title: "Field Officer", Description: "Travel to partner sites.", IsActive: true}
	for _, j := range []*types.Job{titleHit, reqHit, miss} {
		require.NoError(t, store.UpsertJob(ctx, j))
	}

	ranks, err := store.LexicalRanks(ctx, []string{"python"}, []int64{titleHit.ID, reqHit.ID, miss.ID})
	require.NoError(t, err)
	assert.NotContains(t, ranks, miss.ID)
	assert.Greater(t, ranks[titleHit.ID], ranks[reqHit.ID])
}

func TestPostgresStore_ExplicitIDs(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertJob(ctx, &types.Job{ID: 10, Title: "Imported", IsActive: true}))

	// Sequence moved past the explicit id
	next := &types.Job{Title: "Created", IsActive: true}
	require.NoError(t, store.UpsertJob(ctx, next))
	assert.Greater(t, next.ID, int64(10))
}
