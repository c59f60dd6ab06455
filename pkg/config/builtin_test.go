package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBuiltinConfig(t *testing.T) {
	builtin := GetBuiltinConfig()
	require.NotNil(t, builtin)
	assert.Contains(t, builtin.LLMProviders, "google-default")
	assert.Contains(t, builtin.LLMProviders, "openai-embeddings")
}

func TestGetBuiltinConfigSingleton(t *testing.T) {
	first := GetBuiltinConfig()
	second := GetBuiltinConfig()
	assert.Same(t, first, second)
}

func TestBuiltinLLMProviders_TaskTypeSplit(t *testing.T) {
	builtin := GetBuiltinConfig()

	embeddings := builtin.LLMProviders["openai-embeddings"]
	assert.True(t, embeddings.SupportsTask(TaskTypeLight))
	assert.False(t, embeddings.SupportsTask(TaskTypeHeavy))

	gemini := builtin.LLMProviders["google-default"]
	assert.True(t, gemini.SupportsTask(TaskTypeLight))
	assert.True(t, gemini.SupportsTask(TaskTypeHeavy))
}
