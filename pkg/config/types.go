package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config is the persistent switchboard configuration stored as config.toml in
// the .switchboard/ directory.
type Config struct {
	Version   int           `toml:"version"`
	Router    RouterConfig  `toml:"router"`
	Gemini    BackendConfig `toml:"gemini"`
	OpenAI    BackendConfig `toml:"openai"`
	DeepInfra BackendConfig `toml:"deepinfra"`
	Anthropic BackendConfig `toml:"anthropic"`
	Ollama    BackendConfig `toml:"ollama"`
	G4F       BackendConfig `toml:"g4f"`
	Server    ServerConfig  `toml:"server"`
	Events    EventsConfig  `toml:"events"`
}

// RouterConfig controls selection fallback and the retry budget.
type RouterConfig struct {
	DefaultSelection string `toml:"default_selection,omitempty"`

	// MaxRetries is the number of whole-pipeline retries after the first
	// traversal. nil means unset; 0 disables retries.
	MaxRetries *int `toml:"max_retries,omitempty"`

	// InitialBackoff and MaxBackoff are Go duration strings ("250ms", "5s").
	InitialBackoff string `toml:"initial_backoff,omitempty"`
	MaxBackoff     string `toml:"max_backoff,omitempty"`
}

// Retries returns MaxRetries, or 0 when unset.
func (r RouterConfig) Retries() int {
	if r.MaxRetries == nil {
		return 0
	}
	return *r.MaxRetries
}

// Backoff parses the configured backoff bounds. Empty values parse as zero.
func (r RouterConfig) Backoff() (initial, maxBackoff time.Duration, err error) {
	if initial, err = parseDuration("router.initial_backoff", r.InitialBackoff); err != nil {
		return 0, 0, err
	}
	if maxBackoff, err = parseDuration("router.max_backoff", r.MaxBackoff); err != nil {
		return 0, 0, err
	}
	return initial, maxBackoff, nil
}

// BackendConfig holds the connection settings for one backend.
type BackendConfig struct {
	BaseURL         string `toml:"base_url,omitempty"`
	MaxOutputTokens int    `toml:"max_output_tokens,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig controls publishing of call events. Publishing is disabled
// while KafkaBrokers is empty.
type EventsConfig struct {
	// KafkaBrokers is a comma-separated list of host:port addresses.
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// Enabled reports whether a broker is configured.
func (e EventsConfig) Enabled() bool {
	return strings.TrimSpace(e.KafkaBrokers) != ""
}

// Brokers returns the configured broker addresses, trimmed, without empties.
func (e EventsConfig) Brokers() []string {
	var out []string
	for _, b := range strings.Split(e.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Backend returns the settings section for the named backend. Unknown names
// return a zero BackendConfig.
func (c *Config) Backend(name string) BackendConfig {
	if p := c.backend(name); p != nil {
		return *p
	}
	return BackendConfig{}
}

func (c *Config) backend(name string) *BackendConfig {
	switch name {
	case "gemini":
		return &c.Gemini
	case "openai":
		return &c.OpenAI
	case "deepinfra":
		return &c.DeepInfra
	case "anthropic":
		return &c.Anthropic
	case "ollama":
		return &c.Ollama
	case "g4f":
		return &c.G4F
	default:
		return nil
	}
}

// backendNames lists every backend section in config.toml order.
var backendNames = []string{"gemini", "openai", "deepinfra", "anthropic", "ollama", "g4f"}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = buildConfigKeys()

func buildConfigKeys() map[string]configKeyInfo {
	keys := map[string]configKeyInfo{
		"router.default_selection": {
			get: func(c *Config) string { return c.Router.DefaultSelection },
			set: func(c *Config, v string) error { c.Router.DefaultSelection = v; return nil },
		},
		"router.max_retries": {
			get: func(c *Config) string {
				if c.Router.MaxRetries == nil {
					return ""
				}
				return strconv.Itoa(*c.Router.MaxRetries)
			},
			set: func(c *Config, v string) error {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					return fmt.Errorf("invalid value for router.max_retries: %q is not a non-negative integer", v)
				}
				c.Router.MaxRetries = &n
				return nil
			},
		},
		"router.initial_backoff": {
			get: func(c *Config) string { return c.Router.InitialBackoff },
			set: func(c *Config, v string) error {
				if _, err := parseDuration("router.initial_backoff", v); err != nil {
					return err
				}
				c.Router.InitialBackoff = v
				return nil
			},
		},
		"router.max_backoff": {
			get: func(c *Config) string { return c.Router.MaxBackoff },
			set: func(c *Config, v string) error {
				if _, err := parseDuration("router.max_backoff", v); err != nil {
					return err
				}
				c.Router.MaxBackoff = v
				return nil
			},
		},
		"server.listen": {
			get: func(c *Config) string { return c.Server.Listen },
			set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
		},
		"events.kafka_brokers": {
			get: func(c *Config) string { return c.Events.KafkaBrokers },
			set: func(c *Config, v string) error { c.Events.KafkaBrokers = v; return nil },
		},
		"events.kafka_topic": {
			get: func(c *Config) string { return c.Events.KafkaTopic },
			set: func(c *Config, v string) error { c.Events.KafkaTopic = v; return nil },
		},
	}

	for _, name := range backendNames {
		keys[name+".base_url"] = configKeyInfo{
			get: func(c *Config) string { return c.backend(name).BaseURL },
			set: func(c *Config, v string) error { c.backend(name).BaseURL = v; return nil },
		}

		tokensKey := name + ".max_output_tokens"
		keys[tokensKey] = configKeyInfo{
			get: func(c *Config) string {
				if n := c.backend(name).MaxOutputTokens; n != 0 {
					return strconv.Itoa(n)
				}
				return ""
			},
			set: func(c *Config, v string) error {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					return fmt.Errorf("invalid value for %s: %q is not a non-negative integer", tokensKey, v)
				}
				c.backend(name).MaxOutputTokens = n
				return nil
			},
		}
	}

	return keys
}

func parseDuration(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid value for %s: must not be negative", key)
	}
	return d, nil
}
