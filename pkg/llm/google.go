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

// GoogleProvider talks to the Gemini generateContent/embedContent REST
// endpoints. Vertex AI (LLMProviderTypeVertexAI) reuses the same wire
// format behind a project/location-scoped URL and a bearer token instead of
// an API-key query parameter; baseURL and authHeader capture that
// difference so both config entries can share one implementation.
type GoogleProvider struct {
	httpClient *http.Client
	baseURL    string
	authHeader func(req *http.Request)
	model      string
	name       string
}

// NewGeminiProvider builds a provider against the public Generative
// Language API, authenticated with an API key query parameter.
func NewGeminiProvider(name, apiKey, model string) *GoogleProvider {
	return &GoogleProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s", model) + ":%s?key=" + apiKey,
		model:      model,
		name:       name,
		authHeader: func(req *http.Request) {},
	}
}

// NewVertexAIProvider builds a provider against a project/location-scoped
// Vertex AI endpoint, authenticated with the given bearer access token; the
// provider keeps that token for its lifetime and does not refresh it.
func NewVertexAIProvider(name, project, location, model, accessToken string) *GoogleProvider {
	base := fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s",
		location, project, location, model) + ":%s"
	return &GoogleProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    base,
		model:      model,
		name:       name,
		authHeader: func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+accessToken)
		},
	}
}

func (p *GoogleProvider) Name() string { return p.name }

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googleGenerateRequest struct {
	Contents          []googleContent `json:"contents"`
	SystemInstruction *googleContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float32 `json:"temperature"`
	} `json:"generationConfig"`
}

type googleGenerateResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Generate calls :generateContent.
func (p *GoogleProvider) Generate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	body := googleGenerateRequest{
		Contents: []googleContent{{Role: "user", Parts: []googlePart{{Text: req.Prompt}}}},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &googleContent{Parts: []googlePart{{Text: req.SystemPrompt}}}
	}
	body.GenerationConfig.MaxOutputTokens = req.MaxTokens
	body.GenerationConfig.Temperature = req.Temperature

	var out googleGenerateResponse
	if err := p.post(ctx, "generateContent", body, &out); err != nil {
		return Response{}, err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return Response{}, apperrors.New(apperrors.KindLLM, "llm", "google returned no candidates")
	}

	return Response{
		Text:       out.Candidates[0].Content.Parts[0].Text,
		Model:      p.model,
		DurationMs: newDuration(start),
		TokensIn:   out.UsageMetadata.PromptTokenCount,
		TokensOut:  out.UsageMetadata.CandidatesTokenCount,
		Provider:   p.name,
	}, nil
}

type googleEmbedRequest struct {
	Content googleContent `json:"content"`
}

type googleEmbedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed calls :embedContent.
func (p *GoogleProvider) Embed(ctx context.Context, model, text string) ([]float32, error) {
	var out googleEmbedResponse
	body := googleEmbedRequest{Content: googleContent{Parts: []googlePart{{Text: text}}}}
	if err := p.post(ctx, "embedContent", body, &out); err != nil {
		return nil, err
	}
	return out.Embedding.Values, nil
}

func (p *GoogleProvider) post(ctx context.Context, action string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(apperrors.KindLLM, "llm", "encode google request", err)
	}

	url := fmt.Sprintf(p.baseURL, action)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return apperrors.Wrap(apperrors.KindLLM, "llm", "build google request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.authHeader(httpReq)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return apperrors.Wrap(apperrors.KindLLM, "llm", "call google", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(apperrors.KindLLM, "llm", "read google response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return apperrors.New(apperrors.KindLLM, "llm", fmt.Sprintf("google returned HTTP %d: %s", resp.StatusCode, string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.Wrap(apperrors.KindLLM, "llm", "decode google response", err)
	}
	return nil
}
