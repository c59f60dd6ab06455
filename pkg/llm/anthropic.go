package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
)

const anthropicBaseURL = "https://api.anthropic.com/v1"
const anthropicAPIVersion = "2023-06-01"

// AnthropicProvider talks to the Anthropic Messages API directly over
// net/http. Anthropic has no embeddings endpoint, so Embed always returns
// ErrEmbeddingNotSupported and the Router skips straight to the next
// light-task candidate.
type AnthropicProvider struct {
	httpClient *http.Client
	apiKey     string
	model      string
	name       string
}

func NewAnthropicProvider(name, apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		model:      model,
		name:       name,
	}
}

func (p *AnthropicProvider) Name() string { return p.name }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate calls POST /messages.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	body := anthropicRequest{
		Model:       p.model,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindLLM, "llm", "encode anthropic request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicBaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindLLM, "llm", "build anthropic request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindLLM, "llm", "call anthropic", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindLLM, "llm", "read anthropic response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Response{}, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, apperrors.New(apperrors.KindLLM, "llm", fmt.Sprintf("anthropic returned HTTP %d: %s", resp.StatusCode, string(respBody)))
	}

	var out anthropicResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Response{}, apperrors.Wrap(apperrors.KindLLM, "llm", "decode anthropic response", err)
	}
	if len(out.Content) == 0 {
		return Response{}, apperrors.New(apperrors.KindLLM, "llm", "anthropic returned no content")
	}

	return Response{
		Text:       out.Content[0].Text,
		Model:      out.Model,
		DurationMs: newDuration(start),
		TokensIn:   out.Usage.InputTokens,
		TokensOut:  out.Usage.OutputTokens,
		Provider:   p.name,
	}, nil
}

// Embed always fails: Anthropic has no embeddings API.
func (p *AnthropicProvider) Embed(ctx context.Context, model, text string) ([]float32, error) {
	return nil, ErrEmbeddingNotSupported
}
