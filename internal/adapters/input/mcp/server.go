package mcp

import (
	"zeptrion-bridge/internal/ports"

	"github.com/mark3labs/mcp-go/server"
)

// Server exposes the hub's channels as MCP tools.
type Server struct {
	mcpServer   *server.MCPServer
	coordinator ports.CoordinatorPort
}

func NewServer(coordinator ports.CoordinatorPort, version string) *Server {
	s := &Server{coordinator: coordinator}
	s.mcpServer = server.NewMCPServer(
		"zeptrion-bridge",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout. Logs must go to stderr.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
