package llm

// DefaultTemperature is applied by adapters when CallOptions carries none.
const DefaultTemperature = 0.7

// CallOptions are the tuning parameters for a single call. They are derived
// fresh from user configuration on every call and never persisted.
type CallOptions struct {
	// Temperature is omitted (nil) when the user has no creativity setting.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxOutputTokens overrides the backend's configured output ceiling.
	MaxOutputTokens *int `json:"max_output_tokens,omitempty"`
}

// TemperatureOr returns the configured temperature, or def when unset.
func (o CallOptions) TemperatureOr(def float64) float64 {
	if o.Temperature == nil {
		return def
	}
	return *o.Temperature
}

// MaxOutputTokensOr returns the configured output ceiling, or def when unset.
func (o CallOptions) MaxOutputTokensOr(def int) int {
	if o.MaxOutputTokens == nil || *o.MaxOutputTokens <= 0 {
		return def
	}
	return *o.MaxOutputTokens
}

// Request is a single per-credential attempt handed to a provider adapter.
type Request struct {
	// APIKey is the credential for this attempt. Empty for keyless backends.
	APIKey string

	// Model is the backend model identifier from the selection descriptor.
	Model string

	Conversation Conversation
	Options      CallOptions

	// Sink, when non-nil and the backend streams, receives the cumulative
	// text after every chunk.
	Sink StreamSink
}

// Streaming reports whether the caller asked for a streamed response.
func (r *Request) Streaming() bool {
	return r.Sink != nil
}
