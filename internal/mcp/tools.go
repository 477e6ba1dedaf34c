package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/impactmatch/internal/indexer"
	"github.com/dshills/impactmatch/internal/matcher"
	"github.com/dshills/impactmatch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeSeekerNotFound = -32001 // Seeker id does not resolve
	ErrorCodeJobNotFound    = -32002 // Job id does not resolve
	ErrorCodeRunInProgress  = -32003 // Another embedding run holds the lock
)

// handleComputeMatch handles the compute_match tool invocation
func (s *Server) handleComputeMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	seekerID, err := requireID(args, "seeker_id")
	if err != nil {
		return nil, err
	}
	jobID, err := requireID(args, "job_id")
	if err != nil {
		return nil, err
	}

	match, err := s.matcher.ComputeMatchByID(ctx, seekerID, jobID)
	if err != nil {
		return nil, s.toolError("compute_match", err)
	}
	return mcp.NewToolResultText(formatJSON(match)), nil
}

// handleGetMatches handles the get_matches tool invocation
func (s *Server) handleGetMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	seekerID, err := requireID(args, "seeker_id")
	if err != nil {
		return nil, err
	}
	limit, err := limitParam(args, s.resultLimit, matcher.MaxResultLimit)
	if err != nil {
		return nil, err
	}

	matches, err := s.matcher.GetMatchesByID(ctx, seekerID, limit)
	if err != nil {
		return nil, s.toolError("get_matches", err)
	}

	response := map[string]interface{}{
		"seeker_id": seekerID,
		"count":     len(matches),
		"matches":   nonNil(matches),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// candidateView omits the seeker's private profile fields from tool output
type candidateView struct {
	SeekerID     int64              `json:"seeker_id"`
	Completeness int                `json:"profile_completeness"`
	Match        *types.MatchResult `json:"match"`
}

// handleGetCandidates handles the get_candidates_for_job tool invocation
func (s *Server) handleGetCandidates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	jobID, err := requireID(args, "job_id")
	if err != nil {
		return nil, err
	}
	limit, err := limitParam(args, s.candidateResultLimit, matcher.MaxCandidateResultLimit)
	if err != nil {
		return nil, err
	}

	candidates, err := s.matcher.GetCandidatesByJobID(ctx, jobID, limit)
	if err != nil {
		return nil, s.toolError("get_candidates_for_job", err)
	}

	views := make([]candidateView, 0, len(candidates))
	for _, c := range candidates {
		views = append(views, candidateView{
			SeekerID:     c.Seeker.ID,
			Completeness: c.Seeker.Completeness(),
			Match:        c.Match,
		})
	}
	response := map[string]interface{}{
		"job_id":     jobID,
		"count":      len(views),
		"candidates": views,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleEmbedPending handles the embed_pending tool invocation
func (s *Server) handleEmbedPending(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	opts := indexer.Options{
		Jobs:    getBoolDefault(args, "jobs", true),
		Seekers: getBoolDefault(args, "seekers", true),
	}
	if !opts.Jobs && !opts.Seekers {
		return nil, newMCPError(ErrorCodeInvalidParams, "at least one of jobs or seekers must be true", nil)
	}

	stats, err := s.indexer.EmbedPending(ctx, opts)
	if err != nil {
		return nil, s.toolError("embed_pending", err)
	}

	response := map[string]interface{}{
		"run_id":           stats.RunID,
		"jobs_embedded":    stats.JobsEmbedded,
		"seekers_embedded": stats.SeekersEmbedded,
		"skipped":          stats.Skipped,
		"failed":           stats.Failed,
		"duration_ms":      stats.Duration.Milliseconds(),
	}
	if n := len(stats.ErrorMessages); n > 0 {
		if n > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = n
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.store.GetStatus(ctx)
	if err != nil {
		return nil, s.toolError("get_status", err)
	}

	response := map[string]interface{}{
		"store": status,
		"coverage": map[string]interface{}{
			"jobs":    ratio(status.EmbeddedJobs, status.ActiveJobs),
			"seekers": ratio(status.EmbeddedSeekers, status.Seekers),
		},
	}
	if s.embedder != nil {
		response["embedding"] = map[string]interface{}{
			"provider":  s.embedder.Provider(),
			"model":     s.embedder.Model(),
			"dimension": s.embedder.Dimension(),
		}
	}
	if s.tables != nil {
		response["heuristics_version"] = s.tables.Version
	}
	if s.indexer != nil {
		response["embedding_run_in_progress"] = s.indexer.Running()
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// toolError maps engine errors onto MCP error codes
func (s *Server) toolError(tool string, err error) error {
	switch {
	case errors.Is(err, matcher.ErrSeekerNotFound):
		return newMCPError(ErrorCodeSeekerNotFound, "seeker not found", map[string]interface{}{"error": err.Error()})
	case errors.Is(err, matcher.ErrJobNotFound):
		return newMCPError(ErrorCodeJobNotFound, "job not found", map[string]interface{}{"error": err.Error()})
	case errors.Is(err, indexer.ErrRunInProgress):
		return newMCPError(ErrorCodeRunInProgress, "embedding run already in progress", nil)
	case errors.Is(err, types.ErrInvalidSeeker), errors.Is(err, types.ErrInvalidJob):
		return newMCPError(ErrorCodeInvalidParams, "invalid parameters", map[string]interface{}{"error": err.Error()})
	}
	s.logger.Error("tool failed", zap.String("tool", tool), zap.Error(err))
	return newMCPError(ErrorCodeInternalError, tool+" failed", map[string]interface{}{"error": err.Error()})
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// requireID extracts a positive integer id
func requireID(args map[string]interface{}, key string) (int64, error) {
	raw, present := args[key]
	if !present {
		return 0, newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing",
		})
	}
	id, ok := toInt64(raw)
	if !ok || id < 1 {
		return 0, newMCPError(ErrorCodeInvalidParams, key+" must be a positive integer", map[string]interface{}{
			"param": key,
			"value": raw,
		})
	}
	return id, nil
}

// limitParam reads an optional limit and rejects values outside 1..maxLimit
func limitParam(args map[string]interface{}, defaultLimit, maxLimit int) (int, error) {
	raw, present := args["limit"]
	if !present {
		return defaultLimit, nil
	}
	limit, ok := toInt64(raw)
	if !ok || limit < 1 || limit > int64(maxLimit) {
		return 0, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxLimit), map[string]interface{}{
			"param": "limit",
			"value": raw,
		})
	}
	return int(limit), nil
}

// toInt64 accepts JSON numbers that hold whole values
func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

func ratio(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 1000
}

func nonNil(matches []*types.MatchResult) []*types.MatchResult {
	if matches == nil {
		return []*types.MatchResult{}
	}
	return matches
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}
