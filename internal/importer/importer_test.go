package importer

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/impactmatch/internal/heuristics"
	"github.com/dshills/impactmatch/internal/indexer"
	"github.com/dshills/impactmatch/internal/storage"
	"github.com/dshills/impactmatch/pkg/types"
)

type recordingEnqueuer struct {
	mu    sync.Mutex
	tasks []string
	err   error
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, kind indexer.Kind, id int64) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, string(kind)+":"+strconv.FormatInt(id, 10))
	return nil
}

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLoadFile(t *testing.T) {
	c, err := LoadFile("testdata/catalog.yaml")
	require.NoError(t, err)
	assert.Len(t, c.Categories, 2)
	assert.Len(t, c.Organizations, 2)
	assert.Len(t, c.Jobs, 3)
	assert.Len(t, c.Seekers, 2)
	require.NotNil(t, c.Organizations[1].BCorpScore)
	assert.Equal(t, 112, *c.Organizations[1].BCorpScore)
	require.NotNil(t, c.Jobs[2].Active)
	assert.False(t, *c.Jobs[2].Active)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "empty document", input: ""},
		{name: "categories only", input: "categories:\n  - slug: a\n    name: A\n"},
		{name: "unknown field", input: "jobs:\n  - title: X\n    colour: red\n", wantErr: true},
		{name: "malformed", input: "jobs: [", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(strings.NewReader(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidCatalog))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	c, err := LoadFile("testdata/catalog.yaml")
	require.NoError(t, err)

	enq := &recordingEnqueuer{}
	res, err := New(store, enq, nil).Import(ctx, c)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Categories)
	assert.Equal(t, 2, res.Organizations)
	assert.Equal(t, 3, res.Jobs)
	assert.Equal(t, 2, res.Seekers)
	assert.Equal(t, 5, res.Enqueued)
	assert.Equal(t, []int64{101, 102, 103}, res.JobIDs)
	assert.Equal(t, []int64{201, 202}, res.SeekerIDs)
	assert.Equal(t, []string{"job:101", "job:102", "job:103", "seeker:201", "seeker:202"}, enq.tasks)

	job, err := store.GetJob(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, "Senior Data Analyst", job.Title)
	require.NotNil(t, job.Organization)
	assert.Equal(t, "Clearwater Health", job.Organization.Name)
	assert.True(t, job.Organization.IsGiveWellTopCharity)
	require.NotNil(t, job.Category)
	assert.Equal(t, "global-health", job.Category.Slug)
	assert.Equal(t, types.JobTypeFullTime, job.JobType)
	assert.Equal(t, []string{"python", "data-analysis", "sql"}, job.Skills)
	assert.True(t, job.IsActive)

	archived, err := store.GetJob(ctx, 103)
	require.NoError(t, err)
	assert.False(t, archived.IsActive)

	seeker, err := store.GetSeeker(ctx, 202)
	require.NoError(t, err)
	require.Len(t, seeker.ImpactAreas, 2)
	assert.True(t, seeker.IsDiscoverable())

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Jobs)
	assert.Equal(t, 2, status.ActiveJobs)
	assert.Equal(t, 2, status.Seekers)
}

func TestImport_Enrichment(t *testing.T) {
	tables, err := heuristics.Default()
	require.NoError(t, err)

	c := &Catalog{
		Organizations: []OrganizationRecord{
			{Key: "amf", Name: "Against Malaria Foundation"},
			{Key: "ops", Name: "Open Policy Studio"},
			{Key: "local", Name: "Riverside Food Bank"},
		},
		Jobs: []JobRecord{
			{ID: 1, Title: "Operations Lead", Organization: "amf", Skills: []string{"Data Analysis", "SQL", "data-analysis"}},
			{ID: 2, Title: "Policy Fellow", Organization: "ops", Source: "80000hours"},
			{ID: 3, Title: "Volunteer Coordinator", Organization: "local", Source: "idealist"},
		},
		Seekers: []SeekerRecord{
			{ID: 10, Skills: []string{"Python", "Node.js", "underwater basket weaving"}},
		},
	}

	tests := []struct {
		name     string
		opts     []Option
		givewell bool
		eightyK  bool
		skills   []string
	}{
		{
			name:     "with tables",
			opts:     []Option{WithTables(tables)},
			givewell: true,
			eightyK:  true,
			skills:   []string{"data-analysis", "sql"},
		},
		{
			name:   "without tables",
			skills: []string{"Data Analysis", "SQL", "data-analysis"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			_, err := New(store, nil, nil, tt.opts...).Import(ctx, c)
			require.NoError(t, err)

			amf, err := store.GetJob(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.givewell, amf.Organization.IsGiveWellTopCharity)
			assert.Equal(t, tt.skills, amf.Skills)

			fellow, err := store.GetJob(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.eightyK, fellow.Organization.Is80kRecommended)

			coordinator, err := store.GetJob(ctx, 3)
			require.NoError(t, err)
			assert.False(t, coordinator.Organization.IsGiveWellTopCharity)
			assert.False(t, coordinator.Organization.Is80kRecommended)
		})
	}

	t.Run("seeker skills", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		_, err := New(store, nil, nil, WithTables(tables)).Import(ctx, c)
		require.NoError(t, err)

		seeker, err := store.GetSeeker(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"python", "nodejs", "underwater basket weaving"}, seeker.Skills)
	})
}

func TestImport_NoEnqueuer(t *testing.T) {
	c, err := LoadFile("testdata/catalog.yaml")
	require.NoError(t, err)

	res, err := New(newStore(t), nil, nil).Import(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Enqueued)
	assert.Equal(t, 3, res.Jobs)
}

func TestImport_EnqueueFailureKeepsData(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	c, err := LoadFile("testdata/catalog.yaml")
	require.NoError(t, err)

	res, err := New(store, &recordingEnqueuer{err: errors.New("queue full")}, nil).Import(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Enqueued)

	_, err = store.GetSeeker(ctx, 201)
	assert.NoError(t, err)
}

func TestImport_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		catalog *Catalog
	}{
		{
			name:    "unknown organization key",
			catalog: &Catalog{Jobs: []JobRecord{{Title: "Analyst", Organization: "nobody"}}},
		},
		{
			name:    "job without title",
			catalog: &Catalog{Jobs: []JobRecord{{ID: 5}}},
		},
		{
			name:    "bad job type",
			catalog: &Catalog{Jobs: []JobRecord{{Title: "Analyst", JobType: "gig"}}},
		},
		{
			name:    "bad work style",
			catalog: &Catalog{Seekers: []SeekerRecord{{WorkStyle: "wizard"}}},
		},
		{
			name: "duplicate organization key",
			catalog: &Catalog{Organizations: []OrganizationRecord{
				{Key: "a", Name: "A"}, {Key: "a", Name: "B"},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enq := &recordingEnqueuer{}
			_, err := New(newStore(t), enq, nil).Import(context.Background(), tt.catalog)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCatalog))
			assert.Empty(t, enq.tasks)
		})
	}
}

func TestImport_RollsBackOnUnknownSlug(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	c := &Catalog{
		Categories: []CategoryRecord{{Slug: "climate-environment", Name: "Climate"}},
		Jobs:       []JobRecord{{ID: 7, Title: "Analyst", Category: "climate-environment"}},
		Seekers:    []SeekerRecord{{ID: 8, ImpactAreas: []string{"space-exploration"}}},
	}

	enq := &recordingEnqueuer{}
	_, err := New(store, enq, nil).Import(ctx, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Empty(t, enq.tasks)

	_, err = store.GetJob(ctx, 7)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
