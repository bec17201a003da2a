package server

import (
	"log/slog"
)

// Config is the HTTP server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Generator answers POST /v1/generate and the MCP tools. Usually a
	// *router.Router or a *router.Swappable.
	Generator Generator

	// FileRoot is the directory request attachments may be read from. Empty
	// rejects every request that names files.
	FileRoot string

	// DisableMCP turns off the MCP endpoint at /mcp.
	DisableMCP bool

	// MaxConcurrent bounds concurrent generate calls. 0 uses the worker
	// pool default.
	MaxConcurrent uint

	// QueueSize is how many generate calls may wait for a free worker before
	// requests are rejected with 503. 0 uses the worker pool default.
	QueueSize uint

	Logger *slog.Logger
}
