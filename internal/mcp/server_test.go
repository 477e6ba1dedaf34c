package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/impactmatch/internal/embedder"
	"github.com/dshills/impactmatch/internal/heuristics"
	"github.com/dshills/impactmatch/internal/importer"
	"github.com/dshills/impactmatch/internal/indexer"
	"github.com/dshills/impactmatch/internal/matcher"
	"github.com/dshills/impactmatch/internal/retrieval"
	"github.com/dshills/impactmatch/internal/storage"
	"github.com/dshills/impactmatch/pkg/types"
)

// newTestServer imports the importer fixture catalogue and embeds it
func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tables, err := heuristics.Default()
	require.NoError(t, err)
	local, err := embedder.NewLocalProvider(nil)
	require.NoError(t, err)
	service := embedder.NewService(local, tables, nil)

	catalog, err := importer.LoadFile("../importer/testdata/catalog.yaml")
	require.NoError(t, err)
	_, err = importer.New(store, nil, nil).Import(ctx, catalog)
	require.NoError(t, err)

	idx := indexer.New(store, service, nil, nil, indexer.Config{Workers: 2})
	_, err = idx.EmbedPending(ctx, indexer.Options{Jobs: true, Seekers: true})
	require.NoError(t, err)

	m := matcher.New(store, retrieval.New(store, service), tables, nil, matcher.Config{Workers: 2, PersistMatches: true})
	s, err := NewServer(Options{Store: store, Matcher: m, Indexer: idx, Embedder: local, Tables: tables})
	require.NoError(t, err)
	return s
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code, mcpErr.Message)
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(Options{})
	assert.Error(t, err)
}

func TestHandleComputeMatch(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleComputeMatch(ctx, callRequest(map[string]interface{}{
		"seeker_id": float64(201),
		"job_id":    float64(101),
	}))
	require.NoError(t, err)

	var match types.MatchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &match))
	assert.Equal(t, int64(201), match.SeekerID)
	assert.Equal(t, int64(101), match.JobID)
	assert.NoError(t, match.Validate())
	assert.Equal(t, 100.0, match.Profile.ImpactArea)
	assert.Equal(t, []string{"SQL"}, match.Gaps)
}

func TestHandleComputeMatch_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{name: "missing seeker", args: map[string]interface{}{"job_id": float64(101)}, code: ErrorCodeInvalidParams},
		{name: "missing job", args: map[string]interface{}{"seeker_id": float64(201)}, code: ErrorCodeInvalidParams},
		{name: "zero id", args: map[string]interface{}{"seeker_id": float64(0), "job_id": float64(101)}, code: ErrorCodeInvalidParams},
		{name: "fractional id", args: map[string]interface{}{"seeker_id": 1.5, "job_id": float64(101)}, code: ErrorCodeInvalidParams},
		{name: "string id", args: map[string]interface{}{"seeker_id": "201", "job_id": float64(101)}, code: ErrorCodeInvalidParams},
		{name: "unknown seeker", args: map[string]interface{}{"seeker_id": float64(999), "job_id": float64(101)}, code: ErrorCodeSeekerNotFound},
		{name: "unknown job", args: map[string]interface{}{"seeker_id": float64(201), "job_id": float64(999)}, code: ErrorCodeJobNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleComputeMatch(ctx, callRequest(tt.args))
			requireCode(t, err, tt.code)
		})
	}
}

func TestHandleComputeMatch_BadArguments(t *testing.T) {
	s := newTestServer(t)
	var req mcp.CallToolRequest
	req.Params.Arguments = []string{"not", "an", "object"}

	_, err := s.handleComputeMatch(context.Background(), req)
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleGetMatches(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleGetMatches(ctx, callRequest(map[string]interface{}{"seeker_id": float64(201)}))
	require.NoError(t, err)

	var response struct {
		SeekerID int64                `json:"seeker_id"`
		Count    int                  `json:"count"`
		Matches  []*types.MatchResult `json:"matches"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, int64(201), response.SeekerID)
	// The archived job is never a candidate
	assert.Equal(t, 2, response.Count)
	require.Len(t, response.Matches, 2)
	assert.GreaterOrEqual(t, response.Matches[0].Score, response.Matches[1].Score)
	for _, m := range response.Matches {
		assert.NotEqual(t, int64(103), m.JobID)
	}

	result, err = s.handleGetMatches(ctx, callRequest(map[string]interface{}{"seeker_id": float64(201), "limit": float64(1)}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, 1, response.Count)

	status, err := s.store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Positive(t, status.CachedMatches)
}

func TestHandleGetMatches_Limits(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	for _, limit := range []float64{0, 101, -3} {
		t.Run(fmt.Sprintf("limit %v", limit), func(t *testing.T) {
			_, err := s.handleGetMatches(ctx, callRequest(map[string]interface{}{"seeker_id": float64(201), "limit": limit}))
			requireCode(t, err, ErrorCodeInvalidParams)
		})
	}

	_, err := s.handleGetMatches(ctx, callRequest(map[string]interface{}{"seeker_id": float64(201), "limit": float64(100)}))
	assert.NoError(t, err)
}

func TestHandleGetCandidates(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleGetCandidates(ctx, callRequest(map[string]interface{}{"job_id": float64(101)}))
	require.NoError(t, err)

	var response struct {
		JobID      int64 `json:"job_id"`
		Count      int   `json:"count"`
		Candidates []struct {
			SeekerID     int64              `json:"seeker_id"`
			Completeness int                `json:"profile_completeness"`
			Match        *types.MatchResult `json:"match"`
		} `json:"candidates"`
	}
	text := resultText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), &response))
	assert.Equal(t, 2, response.Count)
	for _, c := range response.Candidates {
		require.NotNil(t, c.Match)
		assert.Equal(t, c.SeekerID, c.Match.SeekerID)
		assert.Equal(t, int64(101), c.Match.JobID)
		assert.Positive(t, c.Completeness)
	}
	assert.NotContains(t, text, "embedding")

	_, err = s.handleGetCandidates(ctx, callRequest(map[string]interface{}{"job_id": float64(101), "limit": float64(201)}))
	requireCode(t, err, ErrorCodeInvalidParams)

	_, err = s.handleGetCandidates(ctx, callRequest(map[string]interface{}{"job_id": float64(404)}))
	requireCode(t, err, ErrorCodeJobNotFound)
}

func TestHandleEmbedPending(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleEmbedPending(ctx, callRequest(nil))
	require.NoError(t, err)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	// Everything was embedded when the fixture was built
	assert.Equal(t, float64(0), response["jobs_embedded"])
	assert.Equal(t, float64(0), response["seekers_embedded"])
	assert.Equal(t, float64(4), response["skipped"])
	assert.NotEmpty(t, response["run_id"])

	_, err = s.handleEmbedPending(ctx, callRequest(map[string]interface{}{"jobs": false, "seekers": false}))
	requireCode(t, err, ErrorCodeInvalidParams)
}

func TestHandleGetStatus(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleGetStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)

	var response struct {
		Store     storage.Status     `json:"store"`
		Coverage  map[string]float64 `json:"coverage"`
		Embedding struct {
			Provider  string `json:"provider"`
			Dimension int    `json:"dimension"`
		} `json:"embedding"`
		Running           bool   `json:"embedding_run_in_progress"`
		HeuristicsVersion string `json:"heuristics_version"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, 3, response.Store.Jobs)
	assert.Equal(t, 2, response.Store.EmbeddedJobs)
	assert.Equal(t, 1.0, response.Coverage["jobs"])
	assert.Equal(t, 1.0, response.Coverage["seekers"])
	assert.Equal(t, "local", response.Embedding.Provider)
	assert.Equal(t, storage.VectorDimension, response.Embedding.Dimension)
	assert.False(t, response.Running)
	assert.Equal(t, "sqlite", response.Store.Driver)
	assert.NotEmpty(t, response.Store.BuildMode)
	assert.True(t, strings.HasPrefix(response.HeuristicsVersion, "1."))
}

func TestToolError(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "seeker not found", err: fmt.Errorf("%w: 7", matcher.ErrSeekerNotFound), code: ErrorCodeSeekerNotFound},
		{name: "job not found", err: fmt.Errorf("%w: 7", matcher.ErrJobNotFound), code: ErrorCodeJobNotFound},
		{name: "run in progress", err: indexer.ErrRunInProgress, code: ErrorCodeRunInProgress},
		{name: "invalid seeker", err: fmt.Errorf("%w: %w", types.ErrInvalidSeeker, types.ErrInvalidSeekerID), code: ErrorCodeInvalidParams},
		{name: "anything else", err: errors.New("disk full"), code: ErrorCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireCode(t, s.toolError("test", tt.err), tt.code)
		})
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		in   interface{}
		want int64
		ok   bool
	}{
		{float64(42), 42, true},
		{42, 42, true},
		{int64(42), 42, true},
		{json.Number("42"), 42, true},
		{json.Number("4.2"), 0, false},
		{2.5, 0, false},
		{"42", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := toInt64(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}
