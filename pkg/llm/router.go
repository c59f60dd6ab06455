package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/cache"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/metrics"
)

// weightJitter is a multiplicative +/-2% nudge applied to each provider's
// score per selection call, so that providers tied on weight don't all
// converge on the same one every time.
const weightJitter = 0.02

func jittered(weight float64) float64 {
	return weight * (1 + (rand.Float64()*2-1)*weightJitter)
}

const (
	embeddingCacheTTL  = 1 * time.Hour
	embeddingCacheSize = 1000
	summaryCacheTTL    = 6 * time.Hour
	summaryCacheSize   = 500
)

// lightKeywords and heavyKeywords classify an operation name into a task
// type when the caller doesn't already know which model class it wants.
// Light keywords are checked first, so a name matching both lists is
// classified light.
var lightKeywords = []string{
	"summary", "classification", "category", "simple", "quick", "ticket_info", "basic",
}

var heavyKeywords = []string{
	"chat", "conversation", "analysis", "detailed", "complex", "agent", "response", "solution",
}

// ClassifyTaskType maps an operation name to light or heavy work, defaulting
// to heavy when nothing matches so an unclassified call never lands on an
// undersized model by accident.
func ClassifyTaskType(operation string) config.TaskType {
	lower := strings.ToLower(operation)
	for _, kw := range lightKeywords {
		if strings.Contains(lower, kw) {
			return config.TaskTypeLight
		}
	}
	for _, kw := range heavyKeywords {
		if strings.Contains(lower, kw) {
			return config.TaskTypeHeavy
		}
	}
	return config.TaskTypeHeavy
}

// Router selects among registered providers by health-aware weighted score,
// falling back through the remaining candidates on failure, and caches
// embeddings and summaries to avoid paying for identical calls twice.
type Router struct {
	registry  *config.LLMProviderRegistry
	providers map[string]Provider
	stats     map[string]*Stats

	embeddings *cache.Cache[[]float32]
	summaries  *cache.Cache[string]
}

// NewRouter builds a Router over the given providers, keyed by the same
// name they're registered under in registry.
func NewRouter(registry *config.LLMProviderRegistry, providers map[string]Provider) *Router {
	stats := make(map[string]*Stats, len(providers))
	for name := range providers {
		stats[name] = &Stats{}
	}
	return &Router{
		registry:   registry,
		providers:  providers,
		stats:      stats,
		embeddings: cache.New[[]float32](embeddingCacheTTL, embeddingCacheSize),
		summaries:  cache.New[string](summaryCacheTTL, summaryCacheSize),
	}
}

// candidate is one provider scored for a particular request.
type candidate struct {
	name     string
	provider Provider
	weight   float64
}

// rankedCandidates returns providers eligible for taskType, best score
// first, after dropping unhealthy and excluded providers.
func (r *Router) rankedCandidates(taskType config.TaskType) []candidate {
	var candidates []candidate

	for name, provider := range r.providers {
		cfg, err := r.registry.Get(name)
		if err != nil || !cfg.SupportsTask(taskType) {
			continue
		}

		st := r.stats[name]
		params := weightParamsFor(cfg.Weight)
		sn := st.snapshot()

		maxFailures := int64(params.maxConsecutiveFailures)
		if maxFailures <= 0 {
			maxFailures = defaultWeightParams.maxConsecutiveFailures
		}
		if !st.IsHealthy(maxFailures) {
			continue
		}
		if shouldExclude(params, sn) {
			continue
		}

		candidates = append(candidates, candidate{
			name:     name,
			provider: provider,
			weight:   jittered(calculateWeight(params, sn)),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].weight > candidates[j].weight
	})
	return candidates
}

// Generate runs req against the best-scoring healthy provider for its task
// type, falling through the remaining ranked candidates on failure. It
// returns ErrNoHealthyProvider if no candidate is eligible, and an LLM-kind
// error wrapping the last provider error if every attempt fails.
func (r *Router) Generate(ctx context.Context, req Request) (Response, error) {
	candidates := r.rankedCandidates(req.TaskType)
	if len(candidates) == 0 {
		return Response{}, ErrNoHealthyProvider
	}

	taskType := string(req.TaskType)
	var lastErr error
	for attempt, c := range candidates {
		timer := metrics.NewTimer()
		resp, err := c.provider.Generate(ctx, req)
		durationMs := float64(timer.Duration().Milliseconds())
		timer.ObserveDurationVec(metrics.LLMRequestDuration, c.name, taskType)

		if err != nil {
			r.stats[c.name].RecordFailure(durationMs, err.Error())
			metrics.LLMRequestsTotal.WithLabelValues(c.name, taskType, "error").Inc()
			lastErr = err
			continue
		}

		r.stats[c.name].RecordSuccess(durationMs, resp.TokensIn+resp.TokensOut)
		resp.Attempt = attempt + 1
		resp.IsFallback = attempt > 0
		if resp.Provider == "" {
			resp.Provider = c.name
		}
		metrics.LLMRequestsTotal.WithLabelValues(c.name, taskType, "success").Inc()
		if resp.IsFallback {
			metrics.LLMFallbacksTotal.WithLabelValues(taskType).Inc()
		}
		return resp, nil
	}

	if lastErr != nil {
		return Response{}, apperrors.Wrap(apperrors.KindLLM, "llm", "all providers failed", lastErr)
	}
	return Response{}, ErrNoHealthyProvider
}

// Embed returns the embedding for text under model, serving from cache when
// available. Providers that return ErrEmbeddingNotSupported are skipped in
// favor of the next light-task candidate.
func (r *Router) Embed(ctx context.Context, model, text string) ([]float32, error) {
	key := cache.EmbeddingKey(model, text)
	if v, ok := r.embeddings.Get(key); ok {
		return v, nil
	}

	candidates := r.rankedCandidates(config.TaskTypeLight)
	if len(candidates) == 0 {
		return nil, ErrNoHealthyProvider
	}

	var lastErr error
	for _, c := range candidates {
		timer := metrics.NewTimer()
		vec, err := c.provider.Embed(ctx, model, text)
		durationMs := float64(timer.Duration().Milliseconds())
		timer.ObserveDurationVec(metrics.LLMRequestDuration, c.name, "embedding")

		if err != nil {
			if errors.Is(err, ErrEmbeddingNotSupported) {
				continue
			}
			r.stats[c.name].RecordFailure(durationMs, err.Error())
			metrics.LLMRequestsTotal.WithLabelValues(c.name, "embedding", "error").Inc()
			lastErr = err
			continue
		}

		r.stats[c.name].RecordSuccess(durationMs, 0)
		r.embeddings.Set(key, vec)
		metrics.LLMRequestsTotal.WithLabelValues(c.name, "embedding", "success").Inc()
		return vec, nil
	}

	if lastErr != nil {
		return nil, apperrors.Wrap(apperrors.KindLLM, "llm", "embedding failed on every provider", lastErr)
	}
	return nil, ErrNoHealthyProvider
}

// CachedSummary returns a previously generated ticket summary, if any.
func (r *Router) CachedSummary(ticketID, content string) (string, bool) {
	return r.summaries.Get(cache.SummaryKey(ticketID, content))
}

// StoreSummary records a generated ticket summary for reuse.
func (r *Router) StoreSummary(ticketID, content, summary string) {
	r.summaries.Set(cache.SummaryKey(ticketID, content), summary)
}
