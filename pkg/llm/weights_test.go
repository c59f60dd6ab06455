package llm

import "testing"

func TestCalculateWeight_NoHistoryReturnsBaseWeight(t *testing.T) {
	p := weightParamsFor(3)
	got := calculateWeight(p, snapshot{})
	if got != p.baseWeight {
		t.Fatalf("expected base weight %v, got %v", p.baseWeight, got)
	}
}

func TestCalculateWeight_PenalizesConsecutiveFailures(t *testing.T) {
	p := weightParamsFor(1)
	healthy := calculateWeight(p, snapshot{totalRequests: 10, successfulRequests: 10})
	degraded := calculateWeight(p, snapshot{totalRequests: 10, successfulRequests: 10, consecutiveFailures: 3})
	if degraded >= healthy {
		t.Fatalf("expected degraded weight (%v) to be lower than healthy weight (%v)", degraded, healthy)
	}
}

func TestCalculateWeight_PenalizesHighLatency(t *testing.T) {
	p := weightParamsFor(1)
	fast := calculateWeight(p, snapshot{totalRequests: 10, successfulRequests: 10, totalLatencyMs: 10 * 1000})
	slow := calculateWeight(p, snapshot{totalRequests: 10, successfulRequests: 10, totalLatencyMs: 100 * 1000})
	if slow >= fast {
		t.Fatalf("expected slow provider weight (%v) to be lower than fast provider weight (%v)", slow, fast)
	}
}

func TestShouldExclude_TrueAtConsecutiveFailureThreshold(t *testing.T) {
	p := weightParamsFor(1)
	if !shouldExclude(p, snapshot{consecutiveFailures: int64(p.maxConsecutiveFailures)}) {
		t.Fatal("expected exclusion at the consecutive failure threshold")
	}
}

func TestShouldExclude_TrueOnLowSuccessRateAfterThreeRequests(t *testing.T) {
	p := weightParamsFor(1)
	if !shouldExclude(p, snapshot{totalRequests: 3, successfulRequests: 1}) {
		t.Fatal("expected exclusion with success rate below 50% over >=3 requests")
	}
}

func TestShouldExclude_FalseWhenHealthy(t *testing.T) {
	p := weightParamsFor(1)
	if shouldExclude(p, snapshot{totalRequests: 10, successfulRequests: 10}) {
		t.Fatal("expected a fully healthy provider not to be excluded")
	}
}
