package provider

import (
	"fmt"
	"slices"

	"github.com/papercomputeco/switchboard/pkg/llm"
	"github.com/papercomputeco/switchboard/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/switchboard/pkg/llm/provider/gemini"
	"github.com/papercomputeco/switchboard/pkg/llm/provider/ollama"
	"github.com/papercomputeco/switchboard/pkg/llm/provider/openai"
	"github.com/papercomputeco/switchboard/pkg/llm/provider/transport"
)

// Supported backend names
const (
	Gemini    = "gemini"
	OpenAI    = "openai"
	DeepInfra = "deepinfra"
	Anthropic = "anthropic"
	Ollama    = "ollama"
	G4F       = "g4f"
)

// Config is the construction config for an adapter.
type Config = transport.Config

// keyless backends run locally and take no credential.
var keyless = []string{Ollama, G4F}

// SupportedBackends returns the list of all supported backend names.
func SupportedBackends() []string {
	return []string{Gemini, OpenAI, DeepInfra, Anthropic, Ollama, G4F}
}

// RequiresCredential reports whether calls to backend need an API key.
func RequiresCredential(backend string) bool {
	return !slices.Contains(keyless, backend)
}

// New creates the adapter for backend. Unknown names wrap
// llm.ErrUnknownBackend.
func New(backend string, cfg Config) (Provider, error) {
	switch backend {
	case Gemini:
		return gemini.New(cfg), nil
	case OpenAI, DeepInfra, G4F:
		return openai.New(backend, cfg), nil
	case Anthropic:
		return anthropic.New(cfg), nil
	case Ollama:
		return ollama.New(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %v)", llm.ErrUnknownBackend, backend, SupportedBackends())
	}
}

// NewAll builds one adapter per supported backend, using cfgFor to look up
// each backend's config.
func NewAll(cfgFor func(backend string) Config) (map[string]Provider, error) {
	all := make(map[string]Provider, len(SupportedBackends()))
	for _, b := range SupportedBackends() {
		p, err := New(b, cfgFor(b))
		if err != nil {
			return nil, err
		}
		all[b] = p
	}
	return all, nil
}
