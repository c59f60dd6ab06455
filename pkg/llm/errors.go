package llm

import "errors"

// ErrEmbeddingNotSupported is returned by providers with no embedding
// endpoint (chat-only sidecars, Anthropic).
var ErrEmbeddingNotSupported = errors.New("llm: provider does not support embeddings")

// ErrNoHealthyProvider is returned when every provider eligible for a
// task type is unhealthy or excluded.
var ErrNoHealthyProvider = errors.New("llm: no healthy provider available")

// ErrRateLimited classifies a provider error as transient/retryable.
var ErrRateLimited = errors.New("llm: provider rate limited the request")
