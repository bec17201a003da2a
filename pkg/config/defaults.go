package config

const (
	defaultSelection      = "GoogleGemini"
	defaultMaxRetries     = 3
	defaultInitialBackoff = "250ms"
	defaultMaxBackoff     = "5s"

	defaultGeminiURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultOpenAIURL    = "https://api.openai.com/v1"
	defaultDeepInfraURL = "https://api.deepinfra.com/v1/openai"
	defaultAnthropicURL = "https://api.anthropic.com"
	defaultOllamaURL    = "http://localhost:11434"
	defaultG4FURL       = "http://localhost:1337/v1"

	defaultGeminiMaxTokens    = 8192
	defaultAnthropicMaxTokens = 4096

	defaultServerListen = ":8080"

	defaultEventsTopic = "switchboard.calls"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	retries := defaultMaxRetries
	return &Config{
		Version: CurrentV,
		Router: RouterConfig{
			DefaultSelection: defaultSelection,
			MaxRetries:       &retries,
			InitialBackoff:   defaultInitialBackoff,
			MaxBackoff:       defaultMaxBackoff,
		},
		Gemini:    BackendConfig{BaseURL: defaultGeminiURL, MaxOutputTokens: defaultGeminiMaxTokens},
		OpenAI:    BackendConfig{BaseURL: defaultOpenAIURL},
		DeepInfra: BackendConfig{BaseURL: defaultDeepInfraURL},
		Anthropic: BackendConfig{BaseURL: defaultAnthropicURL, MaxOutputTokens: defaultAnthropicMaxTokens},
		Ollama:    BackendConfig{BaseURL: defaultOllamaURL},
		G4F:       BackendConfig{BaseURL: defaultG4FURL},
		Server: ServerConfig{
			Listen: defaultServerListen,
		},
		Events: EventsConfig{
			KafkaTopic: defaultEventsTopic,
		},
	}
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = d.Version
	}

	if cfg.Router.DefaultSelection == "" {
		cfg.Router.DefaultSelection = d.Router.DefaultSelection
	}
	if cfg.Router.MaxRetries == nil {
		cfg.Router.MaxRetries = d.Router.MaxRetries
	}
	if cfg.Router.InitialBackoff == "" {
		cfg.Router.InitialBackoff = d.Router.InitialBackoff
	}
	if cfg.Router.MaxBackoff == "" {
		cfg.Router.MaxBackoff = d.Router.MaxBackoff
	}

	for _, name := range backendNames {
		got, def := cfg.backend(name), d.backend(name)
		if got.BaseURL == "" {
			got.BaseURL = def.BaseURL
		}
		if got.MaxOutputTokens == 0 {
			got.MaxOutputTokens = def.MaxOutputTokens
		}
	}

	if cfg.Server.Listen == "" {
		cfg.Server.Listen = d.Server.Listen
	}

	if cfg.Events.KafkaTopic == "" {
		cfg.Events.KafkaTopic = d.Events.KafkaTopic
	}
}
