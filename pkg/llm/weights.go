package llm

// weightParams are the per-provider tuning knobs behind calculateWeight,
// generalizing the teacher domain's per-service overrides into one set of
// sane defaults applied uniformly across providers.
type weightParams struct {
	baseWeight              float64
	performanceMultiplier   float64
	latencyThresholdMs      float64
	maxConsecutiveFailures  int64
}

// defaultWeightParams matches the upstream router's own class defaults
// (base_weight=1.0, performance_multiplier=1.0, latency_threshold_ms=5000,
// max_consecutive_failures=5) rather than any one provider's tuned override,
// since this domain has no equivalent "fastest model wins" mandate.
var defaultWeightParams = weightParams{
	baseWeight:             1.0,
	performanceMultiplier:  1.0,
	latencyThresholdMs:     5000,
	maxConsecutiveFailures: 5,
}

func weightParamsFor(configWeight int) weightParams {
	p := defaultWeightParams
	if configWeight > 0 {
		p.baseWeight = float64(configWeight)
	}
	return p
}

// calculateWeight scores a provider: base weight scaled down by its recent
// success rate, a latency penalty once average latency crosses the
// threshold, and a linear penalty of 1 - consecutiveFailures/maxFailures
// (floored at 0.1) for consecutive failures, with the product clamped to
// [0, 1]. A provider with no request history yet scores at its unclamped
// base weight so it gets tried at least once.
func calculateWeight(p weightParams, sn snapshot) float64 {
	if sn.totalRequests == 0 {
		return p.baseWeight
	}

	successWeight := sn.successRate()

	latencyWeight := 1.0
	if avg := sn.averageLatencyMs(); avg > p.latencyThresholdMs {
		latencyWeight = p.latencyThresholdMs / avg
		if latencyWeight < 0.1 {
			latencyWeight = 0.1
		}
	}

	failurePenalty := 1.0
	if sn.consecutiveFailures > 0 && p.maxConsecutiveFailures > 0 {
		failurePenalty = 1.0 - float64(sn.consecutiveFailures)/float64(p.maxConsecutiveFailures)
		if failurePenalty < 0.1 {
			failurePenalty = 0.1
		}
	}

	weight := p.baseWeight * successWeight * latencyWeight * failurePenalty * p.performanceMultiplier
	if weight < 0 {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}
	return weight
}

// shouldExclude reports whether a provider is too degraded to even be
// offered as a fallback candidate — a stricter bar than IsHealthy would
// apply to the primary pick, but the same signals drive both.
func shouldExclude(p weightParams, sn snapshot) bool {
	if sn.consecutiveFailures >= int64(p.maxConsecutiveFailures) {
		return true
	}
	if sn.totalRequests >= 3 && sn.successRate() < 0.5 {
		return true
	}
	if sn.totalRequests >= 2 && sn.averageLatencyMs() > p.latencyThresholdMs*2 {
		return true
	}
	return false
}
