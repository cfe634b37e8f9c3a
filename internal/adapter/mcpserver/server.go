// Package mcpserver exposes the tool dispatcher over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tavily-mcp/internal/domain"
	"tavily-mcp/internal/infra/config"
	"tavily-mcp/internal/infra/middleware"
)

// ToolDispatcher is the part of the dispatcher the MCP layer needs.
type ToolDispatcher interface {
	ListTools() []domain.ToolSchema
	CallTool(ctx context.Context, name string, args json.RawMessage) *domain.ToolResult
}

// Server binds a ToolDispatcher to an mcp-go server and serves it over
// stdio or streamable HTTP.
type Server struct {
	mcp       *server.MCPServer
	cfg       config.ServerConfig
	logger    *slog.Logger
	httpSrv   *http.Server
	boundAddr string
}

// NewServer registers every tool the dispatcher lists. Input schemas are
// passed through unchanged. A tools/call for an unregistered name never
// reaches the dispatcher: mcp-go answers it with a JSON-RPC invalid-params error.
func NewServer(cfg config.ServerConfig, version string, d ToolDispatcher, logger *slog.Logger) *Server {
	s := server.NewMCPServer(cfg.Name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, schema := range d.ListTools() {
		s.AddTool(
			mcp.NewToolWithRawSchema(schema.Name, schema.Description, schema.Parameters),
			toolHandler(d, schema.Name),
		)
	}
	return &Server{
		mcp:    s,
		cfg:    cfg,
		logger: logger.With("component", "mcp"),
	}
}

// MCP returns the underlying mcp-go server, for in-process clients.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// toolHandler adapts a dispatcher call to an mcp-go tool handler. Tool
// failures travel as isError results, never as JSON-RPC errors.
func toolHandler(d ToolDispatcher, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req.Params.Arguments != nil {
			data, err := json.Marshal(req.Params.Arguments)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
			}
			args = data
		}

		result := d.CallTool(ctx, name, args)
		if result.IsError {
			return mcp.NewToolResultError(result.Content), nil
		}
		return mcp.NewToolResultText(result.Content), nil
	}
}

// ServeStdio serves MCP over the given streams until ctx is cancelled or
// the input is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("mcp server listening", "transport", "stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio serve: %w", err)
	}
	return nil
}

// Handler returns the streamable HTTP endpoint wrapped in the transport
// middleware. The rate limiter's cleanup goroutine lives as long as ctx.
func (s *Server) Handler(ctx context.Context) http.Handler {
	streamable := server.NewStreamableHTTPServer(s.mcp,
		server.WithEndpointPath(s.cfg.Path),
		server.WithStateLess(true),
	)

	mws := []func(http.Handler) http.Handler{
		middleware.SecurityHeaders,
		middleware.RequestLogger(s.logger),
	}
	if s.cfg.RateLimit.Enabled {
		mws = append(mws, middleware.RateLimit(ctx, s.cfg.RateLimit))
	}

	mux := http.NewServeMux()
	mux.Handle(s.cfg.Path, middleware.Chain(streamable, mws...))
	return mux
}

// ServeHTTP listens on cfg.Addr and blocks until ctx is cancelled.
func (s *Server) ServeHTTP(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("mcp listen: %w", err)
	}
	s.boundAddr = listener.Addr().String()
	s.httpSrv = &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("mcp server listening", "transport", "http", "addr", s.boundAddr, "path", s.cfg.Path)

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.Background())
	}()

	if err := s.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("mcp serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP listener.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

// BoundAddr returns the actual address the server bound to. Only valid after ServeHTTP.
func (s *Server) BoundAddr() string { return s.boundAddr }
