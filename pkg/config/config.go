package config

// Config is the umbrella configuration object encapsulating every registry
// and resolved settings group. This is the primary object returned by
// Initialize() and threaded through the rest of the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	LLMProviderRegistry *LLMProviderRegistry
	Jobs                *JobConfig
	Retention           *RetentionConfig
	Slack               *SlackConfig
	Encryption          *EncryptionConfig
	TenantDefaults      *TenantDefaults
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration.
type ConfigStats struct {
	LLMProviders int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		LLMProviders: len(c.LLMProviderRegistry.GetAll()),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetLLMProvider retrieves an LLM provider configuration by name.
// This is a convenience method that wraps LLMProviderRegistry.Get().
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}
