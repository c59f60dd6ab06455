package config

import "sync"

// BuiltinConfig holds built-in configuration data: default LLM providers
// available before any tenant or operator YAML is applied.
type BuiltinConfig struct {
	LLMProviders map[string]LLMProviderConfig
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration (thread-safe, lazy-initialized).
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		LLMProviders: initBuiltinLLMProviders(),
	}
}

// initBuiltinLLMProviders mirrors the original project's per-provider
// defaults (model name, API key env var, context budget), trimmed of the
// Gemini-specific native-tool toggles this domain has no use for, and
// with a heavy/light task split added for the Router's weighted selection.
func initBuiltinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"google-default": {
			Type:             LLMProviderTypeGoogle,
			Model:            "gemini-2.5-flash",
			APIKeyEnv:        "GOOGLE_API_KEY",
			Weight:           2,
			TaskTypes:        []TaskType{TaskTypeLight, TaskTypeHeavy},
			MaxContextTokens: 900000,
		},
		"openai-default": {
			Type:             LLMProviderTypeOpenAI,
			Model:            "gpt-5",
			APIKeyEnv:        "OPENAI_API_KEY",
			Weight:           2,
			TaskTypes:        []TaskType{TaskTypeHeavy},
			MaxContextTokens: 250000,
		},
		"openai-embeddings": {
			Type:             LLMProviderTypeOpenAI,
			Model:            "text-embedding-3-small",
			APIKeyEnv:        "OPENAI_API_KEY",
			Weight:           1,
			TaskTypes:        []TaskType{TaskTypeLight},
			MaxContextTokens: 8000,
		},
		"anthropic-default": {
			Type:             LLMProviderTypeAnthropic,
			Model:            "claude-sonnet-4-20250514",
			APIKeyEnv:        "ANTHROPIC_API_KEY",
			Weight:           1,
			TaskTypes:        []TaskType{TaskTypeHeavy},
			MaxContextTokens: 150000,
		},
		"vertexai-default": {
			Type:             LLMProviderTypeVertexAI,
			Model:            "claude-sonnet-4-5@20250929",
			ProjectEnv:       "GOOGLE_CLOUD_PROJECT",
			LocationEnv:      "GOOGLE_CLOUD_LOCATION",
			Weight:           1,
			TaskTypes:        []TaskType{TaskTypeHeavy},
			MaxContextTokens: 150000,
		},
		"grpc-sidecar": {
			Type:             LLMProviderTypeGRPC,
			Model:            "local-sidecar",
			BaseURL:          "localhost:50051",
			Weight:           1,
			TaskTypes:        []TaskType{TaskTypeHeavy},
			MaxContextTokens: 32000,
		},
	}
}
