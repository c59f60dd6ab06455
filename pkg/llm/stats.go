package llm

import (
	"sync"
	"time"
)

// statsSelfHealWindow is how long a provider's error history is remembered
// before consecutive failures are forgiven and it is given another chance.
const statsSelfHealWindow = 5 * time.Minute

// recentFailureWindow bounds how far back a success-rate dip still counts
// against health; older failures don't keep a provider down forever.
const recentFailureWindow = 3 * time.Minute

// Stats tracks a provider's running request history. A Router consults it to
// score and health-check providers; providers update it after every call.
type Stats struct {
	mu sync.Mutex

	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	consecutiveFailures int64
	totalTokensUsed    int64
	totalLatencyMs     float64
	lastErrorAt        time.Time
	lastError          string
}

// RecordSuccess folds a successful call into the running stats.
func (s *Stats) RecordSuccess(durationMs float64, tokensUsed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests++
	s.successfulRequests++
	s.totalLatencyMs += durationMs
	s.totalTokensUsed += int64(tokensUsed)
	s.consecutiveFailures = 0
}

// RecordFailure folds a failed call into the running stats.
func (s *Stats) RecordFailure(durationMs float64, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests++
	s.failedRequests++
	s.totalLatencyMs += durationMs
	s.consecutiveFailures++
	s.lastErrorAt = time.Now()
	s.lastError = errMsg
}

// snapshot is an immutable copy of Stats taken under lock, safe to read and
// pass around without further synchronization.
type snapshot struct {
	totalRequests       int64
	successfulRequests  int64
	consecutiveFailures int64
	totalLatencyMs      float64
	lastErrorAt         time.Time
}

func (s *Stats) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Self-heal: a provider that has gone quiet for a while gets its
	// failure count forgiven rather than staying excluded forever.
	if !s.lastErrorAt.IsZero() && time.Since(s.lastErrorAt) > statsSelfHealWindow {
		s.consecutiveFailures = 0
		s.lastErrorAt = time.Time{}
	}

	return snapshot{
		totalRequests:       s.totalRequests,
		successfulRequests:  s.successfulRequests,
		consecutiveFailures: s.consecutiveFailures,
		totalLatencyMs:      s.totalLatencyMs,
		lastErrorAt:         s.lastErrorAt,
	}
}

// SuccessRate is successfulRequests/totalRequests, defaulting to 1.0 when no
// requests have been made yet so a fresh provider isn't scored as broken.
func (sn snapshot) successRate() float64 {
	if sn.totalRequests == 0 {
		return 1.0
	}
	return float64(sn.successfulRequests) / float64(sn.totalRequests)
}

// averageLatencyMs is totalLatencyMs/totalRequests, or 0 before any calls.
func (sn snapshot) averageLatencyMs() float64 {
	if sn.totalRequests == 0 {
		return 0
	}
	return sn.totalLatencyMs / float64(sn.totalRequests)
}

// IsHealthy reports whether a provider should still be offered to callers.
// A provider recovers automatically once its error history ages out of
// statsSelfHealWindow; within that window it is marked unhealthy once its
// consecutive failure count reaches threshold, or once it has made at least
// 3 requests with a success rate below 50% within recentFailureWindow.
func (s *Stats) IsHealthy(consecutiveFailureThreshold int64) bool {
	sn := s.snapshot()

	if sn.consecutiveFailures >= consecutiveFailureThreshold {
		return false
	}

	if !sn.lastErrorAt.IsZero() && time.Since(sn.lastErrorAt) <= recentFailureWindow &&
		sn.totalRequests >= 3 && sn.successRate() < 0.5 {
		return false
	}

	return true
}
