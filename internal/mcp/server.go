package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/impactmatch/internal/embedder"
	"github.com/dshills/impactmatch/internal/heuristics"
	"github.com/dshills/impactmatch/internal/indexer"
	"github.com/dshills/impactmatch/internal/matcher"
	"github.com/dshills/impactmatch/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "impactmatch"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Options wires the server to the engine. Store and Matcher are required.
type Options struct {
	Store    storage.Store
	Matcher  *matcher.Matcher
	Indexer  *indexer.Indexer   // Optional: embed_pending is unavailable without it
	Embedder embedder.Embedder  // Optional: reported by get_status
	Tables   *heuristics.Tables // Optional: version reported by get_status
	Logger   *zap.Logger

	// Defaults applied when a call omits limit
	ResultLimit          int
	CandidateResultLimit int
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	store    storage.Store
	matcher  *matcher.Matcher
	indexer  *indexer.Indexer
	embedder embedder.Embedder
	tables   *heuristics.Tables
	logger   *zap.Logger

	resultLimit          int
	candidateResultLimit int
}

// NewServer creates a new MCP server instance
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Matcher == nil {
		return nil, errors.New("mcp server requires a store and a matcher")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ResultLimit <= 0 || opts.ResultLimit > matcher.MaxResultLimit {
		opts.ResultLimit = matcher.DefaultResultLimit
	}
	if opts.CandidateResultLimit <= 0 || opts.CandidateResultLimit > matcher.MaxCandidateResultLimit {
		opts.CandidateResultLimit = matcher.DefaultCandidateResultLimit
	}

	s := &Server{
		mcp:                  server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		store:                opts.Store,
		matcher:              opts.Matcher,
		indexer:              opts.Indexer,
		embedder:             opts.Embedder,
		tables:               opts.Tables,
		logger:               opts.Logger,
		resultLimit:          opts.ResultLimit,
		candidateResultLimit: opts.CandidateResultLimit,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return s, nil
}

// Serve runs the MCP protocol on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) registerTools() error {
	s.mcp.AddTool(computeMatchTool(), s.handleComputeMatch)
	s.mcp.AddTool(getMatchesTool(s.resultLimit), s.handleGetMatches)
	s.mcp.AddTool(getCandidatesTool(s.candidateResultLimit), s.handleGetCandidates)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	if s.indexer != nil {
		s.mcp.AddTool(embedPendingTool(), s.handleEmbedPending)
	}
	return nil
}
