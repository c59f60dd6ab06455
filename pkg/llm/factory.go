package llm

import (
	"os"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
)

// NewProvidersFromRegistry builds one concrete Provider per registry entry,
// resolving each provider's credentials from the environment variable names
// its config names (APIKeyEnv, ProjectEnv, LocationEnv) rather than from
// literal secrets, matching the teacher's env-var-driven wiring in
// cmd/tarsy/main.go. Entries missing a required credential are skipped with
// an error collected in the returned slice rather than aborting the whole
// registry.
func NewProvidersFromRegistry(registry *config.LLMProviderRegistry) (map[string]Provider, []error) {
	providers := make(map[string]Provider)
	var errs []error

	for name, cfg := range registry.GetAll() {
		provider, err := newProvider(name, cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		providers[name] = provider
	}

	return providers, errs
}

func newProvider(name string, cfg *config.LLMProviderConfig) (Provider, error) {
	switch cfg.Type {
	case config.LLMProviderTypeOpenAI:
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, apperrors.New(apperrors.KindConfiguration, "llm", "missing API key env for provider "+name)
		}
		return NewOpenAIProvider(name, apiKey, cfg.Model), nil

	case config.LLMProviderTypeAnthropic:
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, apperrors.New(apperrors.KindConfiguration, "llm", "missing API key env for provider "+name)
		}
		return NewAnthropicProvider(name, apiKey, cfg.Model), nil

	case config.LLMProviderTypeGoogle:
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, apperrors.New(apperrors.KindConfiguration, "llm", "missing API key env for provider "+name)
		}
		return NewGeminiProvider(name, apiKey, cfg.Model), nil

	case config.LLMProviderTypeVertexAI:
		project := os.Getenv(cfg.ProjectEnv)
		location := os.Getenv(cfg.LocationEnv)
		if project == "" || location == "" {
			return nil, apperrors.New(apperrors.KindConfiguration, "llm", "missing project/location env for provider "+name)
		}
		// The access token is read once from GOOGLE_VERTEX_ACCESS_TOKEN here
		// and is never refreshed; an empty token means requests will fail
		// authentication.
		return NewVertexAIProvider(name, project, location, cfg.Model, os.Getenv("GOOGLE_VERTEX_ACCESS_TOKEN")), nil

	case config.LLMProviderTypeGRPC:
		if cfg.BaseURL == "" {
			return nil, apperrors.New(apperrors.KindConfiguration, "llm", "missing base_url for grpc provider "+name)
		}
		return NewGRPCProvider(name, cfg.BaseURL, cfg.Model)

	default:
		return nil, apperrors.New(apperrors.KindConfiguration, "llm", "unsupported provider type: "+string(cfg.Type))
	}
}
