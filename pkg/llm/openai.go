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

const openaiBaseURL = "https://api.openai.com/v1"

// OpenAIProvider talks to the OpenAI chat completions and embeddings
// endpoints directly over net/http, following the teacher's GitHubClient
// pattern rather than importing OpenAI's own SDK — the teacher never reaches
// for a vendor SDK when a couple of JSON endpoints will do.
type OpenAIProvider struct {
	httpClient *http.Client
	apiKey     string
	model      string
	name       string
}

// NewOpenAIProvider builds a provider bound to one chat or embeddings model;
// register one instance per builtin config entry (chat vs. embeddings use
// different endpoints under the same API key).
func NewOpenAIProvider(name, apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		model:      model,
		name:       name,
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

type openaiChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openaiChatMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float32             `json:"temperature"`
}

type openaiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openaiChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate calls POST /chat/completions.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	messages := []openaiChatMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, openaiChatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openaiChatMessage{Role: "user", Content: req.Prompt})

	body := openaiChatRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	var out openaiChatResponse
	if err := p.post(ctx, "/chat/completions", body, &out); err != nil {
		return Response{}, err
	}
	if len(out.Choices) == 0 {
		return Response{}, apperrors.New(apperrors.KindLLM, "llm", "openai returned no choices")
	}

	return Response{
		Text:       out.Choices[0].Message.Content,
		Model:      out.Model,
		DurationMs: newDuration(start),
		TokensIn:   out.Usage.PromptTokens,
		TokensOut:  out.Usage.CompletionTokens,
		Provider:   p.name,
	}, nil
}

type openaiEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openaiEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed calls POST /embeddings.
func (p *OpenAIProvider) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if model == "" {
		model = p.model
	}

	var out openaiEmbeddingResponse
	if err := p.post(ctx, "/embeddings", openaiEmbeddingRequest{Model: model, Input: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, apperrors.New(apperrors.KindLLM, "llm", "openai returned no embedding")
	}
	return out.Data[0].Embedding, nil
}

func (p *OpenAIProvider) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(apperrors.KindLLM, "llm", "encode openai request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperrors.Wrap(apperrors.KindLLM, "llm", "build openai request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindLLM, "llm", "call openai", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(apperrors.KindLLM, "llm", "read openai response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return apperrors.New(apperrors.KindLLM, "llm", fmt.Sprintf("openai returned HTTP %d: %s", resp.StatusCode, string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.Wrap(apperrors.KindLLM, "llm", "decode openai response", err)
	}
	return nil
}
