package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/switchboard/pkg/registry"
)

var (
	selectionsToolName    = "list_selections"
	selectionsDescription = "List the selections switchboard can route to, with their backend, model, and capability flags (streaming, file upload, function calling), and the default selection."
)

// ListSelectionsInput takes no arguments.
type ListSelectionsInput struct{}

// ListSelectionsOutput represents the output of the list_selections tool.
type ListSelectionsOutput struct {
	Default    string                `json:"default"`
	Selections []registry.Descriptor `json:"selections"`
}

func (s *Server) handleListSelections(_ context.Context, _ *mcp.CallToolRequest, _ ListSelectionsInput) (*mcp.CallToolResult, ListSelectionsOutput, error) {
	reg := s.config.Generator.Registry()
	output := ListSelectionsOutput{
		Default:    reg.Default(),
		Selections: reg.Descriptors(),
	}

	// Structured output is also returned as serialized JSON text for clients
	// that only read text content.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return toolError(fmt.Sprintf("Failed to serialize selections: %v", err)), ListSelectionsOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
