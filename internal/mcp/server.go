// Package mcp exposes the dealer checks as Model Context Protocol tools and
// the fraud guides as resources, served over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Veraticus/dealercheck/internal/common"
	"github.com/Veraticus/dealercheck/internal/dealer"
)

// Server answers MCP requests using a dealer.Checker.
type Server struct {
	mcp      *server.MCPServer
	checker  *dealer.Checker
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer creates a Server announcing itself as name/version with every
// tool and resource registered.
func NewServer(checker *dealer.Checker, name, version string, logger *slog.Logger) *Server {
	s := &Server{
		checker:  checker,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   common.LoggerOrDefault(logger),
	}

	s.mcp = server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)
	for _, tool := range Tools() {
		s.mcp.AddTool(tool, s.handleTool)
	}
	for _, entry := range resources {
		s.mcp.AddResource(entry.resource, readResource)
	}
	return s
}

// Serve reads one JSON-RPC message per line from r and writes responses to w
// until r is exhausted or ctx is canceled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("MCP server ready")
	err := stdio.Listen(ctx, r, w)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
