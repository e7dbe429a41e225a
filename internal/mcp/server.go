// Package mcp exposes the standup query path to MCP clients over stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/query"
	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// Answerer answers natural-language questions.
type Answerer interface {
	Answer(ctx context.Context, question string) query.Result
}

// IssueLister lists tracker issues.
type IssueLister interface {
	ListIssues(ctx context.Context) ([]standup.Issue, error)
}

// PendingLister lists updates awaiting approval.
type PendingLister interface {
	List(ctx context.Context) (map[string]standup.PendingUpdate, error)
}

// Config configures the MCP server.
type Config struct {
	// Name is the implementation name (default: "standupd")
	Name string
	// Version is the server version (default: "dev")
	Version string
	Logger  *logging.Logger
}

// Server is an MCP server backed by the query path, the tracker and the
// pending store.
type Server struct {
	mcp      *mcp.Server
	answerer Answerer
	issues   IssueLister
	pending  PendingLister
	metrics  *Metrics
	logger   *logging.Logger
}

// NewServer creates a Server. pending may be nil, which leaves out the
// pending_list tool.
func NewServer(cfg Config, answerer Answerer, issues IssueLister, pending PendingLister) (*Server, error) {
	if answerer == nil {
		return nil, fmt.Errorf("answerer is required")
	}
	if issues == nil {
		return nil, fmt.Errorf("issue lister is required")
	}
	if cfg.Name == "" {
		cfg.Name = "standupd"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		mcp:      mcp.NewServer(&mcp.Implementation{Name: cfg.Name, Version: cfg.Version}, nil),
		answerer: answerer,
		issues:   issues,
		pending:  pending,
		metrics:  NewMetrics(logger),
		logger:   logger.Named("mcp"),
	}
	s.registerTools()
	return s, nil
}

// Run serves on the stdio transport until ctx is done or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
