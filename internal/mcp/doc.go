// Package mcp implements the Model Context Protocol (MCP) server for impactmatch.
//
// The server exposes the matching engine to an agent host over stdio:
//   - compute_match: score one seeker against one job
//   - get_matches: rank jobs for a seeker
//   - get_candidates_for_job: rank discoverable seekers for a job
//   - embed_pending: backfill missing or stale embeddings
//   - get_status: store contents and embedding coverage
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries protocol messages only; logs go to stderr.
//
// # Tool: compute_match
//
//	Request:
//	{
//	  "name": "compute_match",
//	  "arguments": {"seeker_id": 201, "job_id": 101}
//	}
//
//	Response:
//	{
//	  "seeker_id": 201,
//	  "job_id": 101,
//	  "score": 78.4,
//	  "breakdown": {"semantic": 81.2, "lexical": 50, "profile": 87.1, "impact": 76},
//	  "profile_breakdown": {"impact_area": 100, "skills": 66.7, ...},
//	  "impact_breakdown": {"org_credibility": 0.6, "role_leverage": 0.5, "skill_scarcity": 0.7},
//	  "tier": "exceptional",
//	  "reasons": ["Strong semantic match with your profile", "Matches your Global Health focus", ...],
//	  "gaps": ["SQL"],
//	  "impact_reasons": ["GiveWell Top Charity (rigorous impact evaluation)", ...]
//	}
//
// # Tool: get_matches
//
// Arguments: seeker_id (required), limit (1-100, default 25). The response
// holds the matches ordered by score, highest first.
//
// # Tool: get_candidates_for_job
//
// Arguments: job_id (required), limit (1-200, default 50). Only seekers who
// are actively looking with public or matching visibility are returned. Each
// candidate carries its seeker id, profile completeness and match.
//
// # Tool: embed_pending
//
// Arguments: jobs, seekers (both default true). Returns run statistics. Only
// one run may hold the lock at a time.
//
// # Error Handling
//
// Errors are returned as MCPError values with JSON-RPC codes:
//
//	-32602  invalid parameters (missing id, limit out of range)
//	-32603  internal error
//	-32001  seeker not found
//	-32002  job not found
//	-32003  embedding run already in progress
package mcp
