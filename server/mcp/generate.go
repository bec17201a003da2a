package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/registry"
)

var (
	generateToolName    = "generate"
	generateDescription = "Generate a chat completion through switchboard. The last turn of the conversation is answered by the selected provider; earlier turns are sent as history. Unknown selections fall back to the default."
)

// GenerateInput represents the input arguments for the generate tool.
type GenerateInput struct {
	Selection  string `json:"selection,omitempty" jsonschema:"selection key, e.g. GoogleGemini (default selection when empty or unknown)"`
	Creativity string `json:"creativity,omitempty" jsonschema:"creativity between 0 and 1, used as the sampling temperature"`
	Prompt     string `json:"prompt,omitempty" jsonschema:"a single user message; appended after any conversation turns"`
	Turns      []Turn `json:"turns,omitempty" jsonschema:"prior conversation turns, oldest first"`
}

// Turn represents a single turn in a conversation.
type Turn struct {
	Role    string `json:"role" jsonschema:"user or assistant"`
	Content string `json:"content"`
}

// GenerateOutput represents the output of the generate tool.
type GenerateOutput struct {
	Selection string `json:"selection"`
	Text      string `json:"text"`
}

// conversation builds the conversation from the input turns plus the prompt.
// File attachments are not accepted over MCP.
func (in GenerateInput) conversation() llm.Conversation {
	conv := make(llm.Conversation, 0, len(in.Turns)+1)
	for _, t := range in.Turns {
		conv = append(conv, llm.Turn{Role: llm.Role(t.Role), Content: t.Content})
	}
	if in.Prompt != "" {
		conv = append(conv, llm.NewUserTurn(in.Prompt))
	}
	return conv
}

func (s *Server) handleGenerate(ctx context.Context, _ *mcp.CallToolRequest, input GenerateInput) (*mcp.CallToolResult, GenerateOutput, error) {
	conv := input.conversation()
	if err := conv.Validate(); err != nil {
		return toolError("prompt or turns is required"), GenerateOutput{}, nil
	}

	sel := s.config.Generator.Registry().Resolve(input.Selection)

	s.logger.Debug("MCP generate request",
		"selection", sel.Key,
		"turns", len(conv),
	)

	text, err := s.config.Generator.Generate(ctx, conv, sel.Key, registry.UserConfig{Creativity: input.Creativity}, nil)
	if err != nil {
		s.logger.Warn("MCP generate failed", "selection", sel.Key, "error", err)
		return toolError(fmt.Sprintf("Generate failed: %v", err)), GenerateOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, GenerateOutput{Selection: sel.Key, Text: text}, nil
}
