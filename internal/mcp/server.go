// Package mcp exposes the game engine over the Model Context Protocol
// so an LLM host can drive dice rolls, character sheets, and lore
// lookups as tools. The engine stays transport-free; this package is a
// thin adapter.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/louisbranch/tabletop.chat/internal/engine"
)

// Server wraps an MCP server bound to one engine.
type Server struct {
	engine *engine.Engine
	server *server.MCPServer
}

// NewServer builds the MCP server and registers the engine tools.
func NewServer(e *engine.Engine, version string) *Server {
	s := &Server{
		engine: e,
		server: server.NewMCPServer("tabletop.chat", version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout until the stream
// closes or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.NewStdioServer(s.server).Listen(ctx, os.Stdin, os.Stdout)
}
