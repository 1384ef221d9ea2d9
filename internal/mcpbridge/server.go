// Package mcpbridge exposes the anchorlog API as Model Context Protocol
// (MCP) tools, so an AI host can record audit events and check their ledger
// anchoring.
//
// The server speaks JSON-RPC 2.0 over stdio via mcp-go. Anything written to
// stdout other than protocol frames corrupts the stream, so callers must log
// to stderr.
package mcpbridge

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ServerName is advertised in the MCP initialize handshake.
const ServerName = "anchorlog"

// NewServer builds an MCP server with every anchorlog tool registered.
func NewServer(api LogAPI, version string, logger *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	NewToolRegistry(api, logger).Register(s)
	return s
}

// ServeStdio runs s on stdin/stdout until the stream closes.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
