// Package mcp exposes the validating gateway over the Model Context
// Protocol so AI agents can run whitelisted JQL and GraphQL queries
// against Jira and Xray without ever bypassing the guard.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/config"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/service"
)

// MCPServer wraps the mcp-go server with the gateway's tool and resource
// registrations.
type MCPServer struct {
	gateway *service.Gateway
	store   *config.Store
	logger  *slog.Logger
	server  *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with the query tools and
// whitelist resources. The returned server is ready to serve over stdio or
// HTTP.
func NewMCPServer(gateway *service.Gateway, store *config.Store, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		gateway: gateway,
		store:   store,
		logger:  logger,
	}

	mcpServer := server.NewMCPServer(
		"Xray MCP Gateway",
		"0.1.0",
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance. Useful for
// advanced configuration or testing.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode. This is the primary
// integration path for MCP clients that launch the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

// toolAnnotation helpers for read-only vs mutating tools.
func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
