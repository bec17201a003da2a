// Package registry maps selection keys to backend descriptors and derives the
// per-call options for a selection.
package registry

// Capabilities are the optional features a selection supports.
type Capabilities struct {
	Streaming       bool `json:"streaming"`
	FileUpload      bool `json:"file_upload"`
	FunctionCalling bool `json:"function_calling"`
}

// Descriptor describes one selectable backend/model pair.
type Descriptor struct {
	// Key is the stable identifier users put in config and requests.
	Key string `json:"key"`

	// Title is the human-readable name shown by `switchboard providers`.
	Title string `json:"title"`

	// Backend names the provider adapter (see provider.SupportedBackends).
	Backend string `json:"backend"`

	// Model is the backend model identifier.
	Model string `json:"model"`

	Capabilities Capabilities `json:"capabilities"`
}

// Builtin selection keys.
const (
	GoogleGemini           = "GoogleGemini"
	GoogleGeminiPro        = "GoogleGeminiPro"
	GPT4oMini              = "GPT4oMini"
	GPT4o                  = "GPT4o"
	DeepInfraLlama3_70B    = "DeepInfraLlama3_70B"
	DeepInfraLlama3_8B     = "DeepInfraLlama3_8B"
	DeepInfraMixtral_8x22B = "DeepInfraMixtral_8x22B"
	DeepInfraQwen2_72B     = "DeepInfraQwen2_72B"
	DeepInfraGemma2_27B    = "DeepInfraGemma2_27B"
	ClaudeHaiku            = "ClaudeHaiku"
	OllamaLocal            = "OllamaLocal"
	G4FLocal               = "G4FLocal"
)

// DefaultKey is the selection used when no other default is configured.
const DefaultKey = GoogleGemini

var builtin = []Descriptor{
	{
		Key: GoogleGemini, Title: "Google Gemini Flash",
		Backend: "gemini", Model: "gemini-2.0-flash",
		Capabilities: Capabilities{Streaming: true, FileUpload: true},
	},
	{
		Key: GoogleGeminiPro, Title: "Google Gemini Pro",
		Backend: "gemini", Model: "gemini-2.5-pro",
		Capabilities: Capabilities{Streaming: true, FileUpload: true},
	},
	{
		Key: GPT4oMini, Title: "OpenAI GPT-4o mini",
		Backend: "openai", Model: "gpt-4o-mini",
		Capabilities: Capabilities{Streaming: true, FileUpload: true},
	},
	{
		Key: GPT4o, Title: "OpenAI GPT-4o",
		Backend: "openai", Model: "gpt-4o",
		Capabilities: Capabilities{Streaming: true, FileUpload: true},
	},
	{
		Key: DeepInfraLlama3_70B, Title: "Llama 3 70B (DeepInfra)",
		Backend: "deepinfra", Model: "meta-llama/Meta-Llama-3-70B-Instruct",
		Capabilities: Capabilities{Streaming: true, FunctionCalling: true},
	},
	{
		Key: DeepInfraLlama3_8B, Title: "Llama 3 8B (DeepInfra)",
		Backend: "deepinfra", Model: "meta-llama/Meta-Llama-3-8B-Instruct",
		Capabilities: Capabilities{Streaming: true, FunctionCalling: true},
	},
	{
		Key: DeepInfraMixtral_8x22B, Title: "Mixtral 8x22B (DeepInfra)",
		Backend: "deepinfra", Model: "mistralai/Mixtral-8x22B-Instruct-v0.1",
		Capabilities: Capabilities{Streaming: true, FunctionCalling: true},
	},
	{
		Key: DeepInfraQwen2_72B, Title: "Qwen2 72B (DeepInfra)",
		Backend: "deepinfra", Model: "Qwen/Qwen2-72B-Instruct",
		Capabilities: Capabilities{Streaming: true, FunctionCalling: true},
	},
	{
		Key: DeepInfraGemma2_27B, Title: "Gemma 2 27B (DeepInfra)",
		Backend: "deepinfra", Model: "google/gemma-2-27b-it",
		Capabilities: Capabilities{Streaming: true, FunctionCalling: true},
	},
	{
		Key: ClaudeHaiku, Title: "Anthropic Claude Haiku",
		Backend: "anthropic", Model: "claude-haiku-4-5-20251001",
		Capabilities: Capabilities{Streaming: true, FileUpload: true},
	},
	{
		Key: OllamaLocal, Title: "Ollama (local)",
		Backend: "ollama", Model: "llama3.2",
		Capabilities: Capabilities{Streaming: true},
	},
	{
		Key: G4FLocal, Title: "gpt4free (local)",
		Backend: "g4f", Model: "gpt-4o-mini",
		Capabilities: Capabilities{Streaming: true},
	},
}

// Builtin returns a copy of the built-in selection table in declaration order.
func Builtin() []Descriptor {
	out := make([]Descriptor, len(builtin))
	copy(out, builtin)
	return out
}
