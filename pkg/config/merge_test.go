package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLLMProviders(t *testing.T) {
	builtin := map[string]LLMProviderConfig{
		"builtin-provider": {
			Type:             LLMProviderTypeGoogle,
			Model:            "builtin-model",
			APIKeyEnv:        "BUILTIN_KEY",
			MaxContextTokens: 100000,
		},
		"override-me": {
			Type:             LLMProviderTypeOpenAI,
			Model:            "old-model",
			MaxContextTokens: 50000,
		},
	}

	user := map[string]LLMProviderConfig{
		"user-provider": {
			Type:             LLMProviderTypeAnthropic,
			Model:            "user-model",
			APIKeyEnv:        "USER_KEY",
			MaxContextTokens: 150000,
		},
		"override-me": {
			Type:             LLMProviderTypeOpenAI,
			Model:            "new-model",
			APIKeyEnv:        "NEW_KEY",
			MaxContextTokens: 200000,
		},
	}

	result := mergeLLMProviders(builtin, user)

	assert.Len(t, result, 3)

	assert.Contains(t, result, "builtin-provider")
	assert.Equal(t, LLMProviderTypeGoogle, result["builtin-provider"].Type)
	assert.Equal(t, "builtin-model", result["builtin-provider"].Model)
	assert.Equal(t, 100000, result["builtin-provider"].MaxContextTokens)

	assert.Contains(t, result, "user-provider")
	assert.Equal(t, LLMProviderTypeAnthropic, result["user-provider"].Type)
	assert.Equal(t, "user-model", result["user-provider"].Model)
	assert.Equal(t, 150000, result["user-provider"].MaxContextTokens)

	assert.Contains(t, result, "override-me")
	assert.Equal(t, "new-model", result["override-me"].Model)
	assert.Equal(t, "NEW_KEY", result["override-me"].APIKeyEnv)
	assert.Equal(t, 200000, result["override-me"].MaxContextTokens)
}

func TestMergeLLMProvidersNilBuiltin(t *testing.T) {
	result := mergeLLMProviders(nil, map[string]LLMProviderConfig{
		"provider1": {Type: LLMProviderTypeGoogle, Model: "model1", MaxContextTokens: 100000},
	})
	assert.Len(t, result, 1)
}
