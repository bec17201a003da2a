// Package mcp provides an MCP (Model Context Protocol) server that exposes
// switchboard's routing as tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/logger"
	"github.com/papercomputeco/switchboard/pkg/registry"
	"github.com/papercomputeco/switchboard/pkg/utils"
)

// Generator is the routing surface the tools call into.
type Generator interface {
	Generate(ctx context.Context, conv llm.Conversation, key string, uc registry.UserConfig, sink llm.StreamSink) (string, error)
	Registry() *registry.Registry
}

type Config struct {
	// Generator answers the generate tool. Required.
	Generator Generator

	Logger *slog.Logger
}

type Server struct {
	config    Config
	logger    *slog.Logger
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the generate and list_selections
// tools.
func NewServer(c Config) (*Server, error) {
	if c.Generator == nil {
		return nil, errors.New("generator is required")
	}

	s := &Server{
		config: c,
		logger: logger.OrNop(c.Logger),
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "switchboard",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        generateToolName,
		Description: generateDescription,
	}, s.handleGenerate)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        selectionsToolName,
		Description: selectionsDescription,
	}, s.handleListSelections)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// toolError builds an IsError result carrying msg as text.
func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
