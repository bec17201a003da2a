package server

import (
	"encoding/json"

	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/registry"
)

// generateRequest is the POST /v1/generate body.
type generateRequest struct {
	Selection string `json:"selection"`

	// Creativity accepts either a JSON number or a numeric string.
	Creativity json.Number `json:"creativity,omitempty"`

	Stream       bool       `json:"stream"`
	Conversation []llm.Turn `json:"conversation"`
}

type generateResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type selectionsResponse struct {
	Default    string                `json:"default"`
	Selections []registry.Descriptor `json:"selections"`
}
