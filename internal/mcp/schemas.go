package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/impactmatch/internal/matcher"
)

func idProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
		"minimum":     1,
	}
}

// computeMatchTool returns the tool definition for compute_match
func computeMatchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "compute_match",
		Description: "Score one job seeker against one job and explain the score",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"seeker_id": idProperty("Seeker profile id"),
				"job_id":    idProperty("Job id"),
			},
			Required: []string{"seeker_id", "job_id"},
		},
	}
}

// getMatchesTool returns the tool definition for get_matches
func getMatchesTool(defaultLimit int) mcp.Tool {
	return mcp.Tool{
		Name:        "get_matches",
		Description: "Rank active jobs for a job seeker, best first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"seeker_id": idProperty("Seeker profile id"),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of matches to return (1-100)",
					"default":     defaultLimit,
					"minimum":     1,
					"maximum":     matcher.MaxResultLimit,
				},
			},
			Required: []string{"seeker_id"},
		},
	}
}

// getCandidatesTool returns the tool definition for get_candidates_for_job
func getCandidatesTool(defaultLimit int) mcp.Tool {
	return mcp.Tool{
		Name:        "get_candidates_for_job",
		Description: "Rank discoverable job seekers for a job, best first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"job_id": idProperty("Job id"),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of candidates to return (1-200)",
					"default":     defaultLimit,
					"minimum":     1,
					"maximum":     matcher.MaxCandidateResultLimit,
				},
			},
			Required: []string{"job_id"},
		},
	}
}

// embedPendingTool returns the tool definition for embed_pending
func embedPendingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "embed_pending",
		Description: "Embed every active job and onboarded seeker whose vector is missing or stale",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"jobs": map[string]interface{}{
					"type":        "boolean",
					"description": "Include jobs",
					"default":     true,
				},
				"seekers": map[string]interface{}{
					"type":        "boolean",
					"description": "Include seekers",
					"default":     true,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report store contents, embedding coverage and the active embedding provider",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
