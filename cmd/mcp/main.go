// Watchdog MCP Server - Exposes watchdog classification and simulation as MCP tools for LLMs
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mbd888/watchdog/internal/mcpserver"
)

func main() {
	cfg := mcpserver.Config{
		AVSURL:     envOrDefault("WATCHDOG_AVS_URL", "http://localhost:3001"),
		MempoolURL: envOrDefault("WATCHDOG_MEMPOOL_URL", "http://localhost:4001"),
	}

	s := mcpserver.NewMCPServer(cfg)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
