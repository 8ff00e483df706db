package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/mbd888/watchdog/pkg/watchdog"
)

// Config holds the service endpoints the tools talk to.
type Config struct {
	AVSURL     string // e.g. "http://localhost:3001"
	MempoolURL string // e.g. "http://localhost:4001"
}

// NewMCPServer creates a configured MCP server with all watchdog tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("watchdog", "1.0.0")
	h := NewHandlers(watchdog.NewClient(cfg.AVSURL, cfg.MempoolURL))

	s.AddTool(ToolClassifyTransaction, h.HandleClassifyTransaction)
	s.AddTool(ToolSimulateRug, h.HandleSimulateRug)
	s.AddTool(ToolVerifyAttestation, h.HandleVerifyAttestation)

	return s
}
