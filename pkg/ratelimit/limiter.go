// Package ratelimit implements the global token-bucket rate limiting
// spec.md §5 describes: one bucket per (client_ip, tenant_id) key, with
// separate quotas for ordinary requests, heavy operations, and repeated
// auth failures. Health/metrics exemption and the actual per-request key
// extraction are the HTTP boundary's concern (pkg/api); this package only
// answers "is this key allowed right now" per bucket.
//
// Key storage reuses pkg/cache.Cache, the same bounded TTL+LRU structure
// the LLM Router uses for its embedding/summary caches: its maxSize bound
// and LRU eviction are exactly the "swept once they exceed 10,000 keys"
// behavior spec.md §5 asks for, so there is no separate sweep to write.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/cache"
)

// Bucket names the quota class a request falls into.
type Bucket string

const (
	// BucketDefault covers ordinary API traffic.
	BucketDefault Bucket = "default"
	// BucketHeavy covers expensive operations (ingest, purge, sync-summaries).
	BucketHeavy Bucket = "heavy"
	// BucketAuthFailure covers repeated invalid-credential attempts,
	// tracked separately so a brute-force attempt can't hide inside the
	// default bucket's higher allowance.
	BucketAuthFailure Bucket = "auth_failure"
)

// BucketConfig is one bucket's requests-per-minute quota and burst
// allowance.
type BucketConfig struct {
	RPM   int
	Burst int
}

// keyIdleTTL bounds how long a quiet key's limiter is kept before it's
// dropped, so a key that stops sending requests doesn't permanently
// occupy a slot even before the 10,000-key ceiling is reached.
const keyIdleTTL = 10 * time.Minute

// maxTrackedKeys is the per-bucket key ceiling spec.md §5 names.
const maxTrackedKeys = 10_000

// DefaultBucketConfigs returns spec.md §5's default quotas.
func DefaultBucketConfigs() map[Bucket]BucketConfig {
	return map[Bucket]BucketConfig{
		BucketDefault:     {RPM: 100, Burst: 10},
		BucketHeavy:       {RPM: 20, Burst: 5},
		BucketAuthFailure: {RPM: 5, Burst: 1},
	}
}

// Limiter tracks one token bucket per (bucket, key) pair.
type Limiter struct {
	stores map[Bucket]*cache.Cache[*rate.Limiter]
	cfgs   map[Bucket]BucketConfig
}

// New builds a Limiter from cfgs, one independent key space per bucket.
func New(cfgs map[Bucket]BucketConfig) *Limiter {
	stores := make(map[Bucket]*cache.Cache[*rate.Limiter], len(cfgs))
	for b := range cfgs {
		stores[b] = cache.New[*rate.Limiter](keyIdleTTL, maxTrackedKeys)
	}
	return &Limiter{stores: stores, cfgs: cfgs}
}

// NewDefault builds a Limiter using DefaultBucketConfigs.
func NewDefault() *Limiter {
	return New(DefaultBucketConfigs())
}

// Key builds the per-(client_ip, tenant_id) key spec.md §5 specifies.
func Key(clientIP, tenantID string) string {
	return clientIP + "|" + tenantID
}

// Allow reports whether a request against bucket under key may proceed,
// consuming one token if so. An unconfigured bucket always allows,
// matching the health/metrics-exempt-by-omission pattern the caller uses
// when it simply never calls Allow for those routes.
func (l *Limiter) Allow(bucket Bucket, key string) bool {
	store, ok := l.stores[bucket]
	if !ok {
		return true
	}

	limiter, found := store.Get(key)
	if !found {
		cfg := l.cfgs[bucket]
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60.0), cfg.Burst)
		store.Set(key, limiter)
	}
	return limiter.Allow()
}
