package credentials

// Credentials represents the stored API credentials in credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential holds the credentials for a single backend. APIKeys is
// a comma-separated list that is rotated through in order on every call.
type ProviderCredential struct {
	APIKeys string `toml:"api_keys"`
}
