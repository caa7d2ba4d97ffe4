package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Sentinel tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("sentinel", "2.0.0")
	client := NewSentinelClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolDeepScan, h.HandleDeepScan)
	s.AddTool(ToolCheckDrift, h.HandleCheckDrift)
	s.AddTool(ToolGetSchema, h.HandleGetSchema)
	s.AddTool(ToolRecentScans, h.HandleRecentScans)

	return s
}
