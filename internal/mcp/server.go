package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"shredder/internal/config"
	"shredder/internal/gitcheck"
	"shredder/internal/logging"
	"shredder/pkg/fileops"
	"shredder/pkg/shred"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	toolAvailable    = "shredder_available"
	toolSecureDelete = "secure_delete"

	codeGitTracked = "GIT_TRACKED"
)

// Server is an MCP server exposing the shredder as tools.
type Server struct {
	config    *config.Config
	logger    *logging.AppLogger
	shredder  *shred.Shredder
	mcpServer *server.MCPServer
}

// NewServer creates a server with its tools registered. Extra shred options
// are applied after the configured block size.
func NewServer(cfg *config.Config, logger *logging.AppLogger, opts ...shred.Option) *Server {
	if cfg == nil {
		def := config.DefaultConfig()
		cfg = &def
	}
	if logger == nil {
		logger = logging.GetDefault()
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		shredder: shred.New(append([]shred.Option{shred.WithBlockSize(cfg.BlockSize)}, opts...)...),
		mcpServer: server.NewMCPServer(
			config.APP_NAME,
			config.AppVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(toolAvailable,
			mcp.WithDescription("Report whether secure file deletion is available on this machine."),
		),
		s.handleAvailable,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(toolSecureDelete,
			mcp.WithDescription("Overwrite a file with random data, then zeros, truncate it and delete it. This cannot be undone."),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("Path of the regular file to destroy"),
			),
			mcp.WithNumber("passes",
				mcp.Description(fmt.Sprintf("Random overwrite passes before the zero pass (default %d, maximum %d)", s.config.Passes, config.MaxPasses)),
				mcp.Max(config.MaxPasses),
			),
		),
		s.handleSecureDelete,
	)
}

// Serve runs the stdio transport over in and out until ctx is cancelled or
// in is exhausted.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func (s *Server) handleAvailable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(fmt.Sprintf("%t", s.shredder.IsAvailable())), nil
}

func (s *Server) handleSecureDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", shred.KindUnexpected.Code(), err)), nil
	}
	passes := req.GetInt("passes", s.config.Passes)
	log := s.logger.With("tool", toolSecureDelete, "path", path)
	if passes > config.MaxPasses {
		log.Warn("Rejected pass count", "passes", passes)
		return mcp.NewToolResultError(fmt.Sprintf("%s: passes must be at most %d, got %d",
			shred.KindUnexpected.Code(), config.MaxPasses, passes)), nil
	}

	target, err := fileops.ValidateShredTarget(path, fileops.TargetOptions{})
	if err != nil {
		log.Warn("Rejected target", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", shred.KindUnexpected.Code(), err)), nil
	}

	var warning string
	if target.Exists {
		warn, err := gitcheck.Check(target.Path, s.config.GitPolicy())
		var refused *gitcheck.RefusedError
		switch {
		case errors.As(err, &refused):
			log.Warn("Refusing git-tracked file", "repo", refused.RepoRoot)
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", codeGitTracked, err)), nil
		case err != nil:
			log.Warn("Git check failed, continuing", "error", err)
		case warn:
			warning = " Warning: the file is tracked by git; committed copies remain in the repository history."
		}
	}

	if err := s.shredder.Do(shred.Request{Path: target.Path, Passes: passes}); err != nil {
		kind := shred.KindOf(err)
		log.Error("Shred failed", "kind", kind, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind.Code(), err)), nil
	}

	log.Info("Shredded", "bytes", target.Size, "passes", shred.ClampPasses(passes))
	return mcp.NewToolResultText(fmt.Sprintf("Securely deleted %s (%d bytes, %d random passes + 1 zero pass).%s",
		target.Path, target.Size, shred.ClampPasses(passes), warning)), nil
}
