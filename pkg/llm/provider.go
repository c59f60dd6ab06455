// Package llm implements the LLM Router (C4): a generator interface over
// multiple providers, weighted health-aware selection with fallback, and
// task-type-driven model classes, per spec.md §4.4. The provider-agnostic
// Generate/Embed contract follows the teacher's pkg/llm.Client shape
// (a single narrow client type wrapping transport details); Router is new,
// since the teacher talks to exactly one sidecar and has no selection
// logic to generalize.
package llm

import (
	"context"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
)

// Request is one call into a Provider.
type Request struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	TaskType     config.TaskType
}

// Response is spec.md §4.4's exact generator return shape.
type Response struct {
	Text       string
	Model      string
	DurationMs int64
	TokensIn   int
	TokensOut  int
	Provider   string
	Attempt    int
	IsFallback bool
}

// Provider is one LLM backend the Router can select. Each concrete
// provider (OpenAI, Anthropic, Gemini, gRPC sidecar) wraps its own
// transport but returns the same Response shape.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
	// Embed returns a query/document embedding. Providers with no
	// embedding capability (e.g. a chat-only sidecar) return
	// ErrEmbeddingNotSupported so the Router can pick another provider.
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// newDuration is a small helper so every provider measures call latency
// the same way.
func newDuration(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
