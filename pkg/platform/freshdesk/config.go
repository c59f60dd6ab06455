package freshdesk

import (
	"fmt"
	"strings"
	"time"
)

// Config holds one tenant's Freshdesk connection settings. Domain and
// APIKey are resolved per-request from tenant settings (pkg/tenantctx),
// not from process-wide environment variables, per spec.md's multi-tenant
// model — a departure from the original single-tenant fetcher.py, which
// read FRESHDESK_DOMAIN/FRESHDESK_API_KEY once at import time.
type Config struct {
	Domain string
	APIKey string

	// PageSize is the per-page item count for paginated list calls.
	PageSize int
	// MinRequestInterval is the minimum delay enforced between requests
	// by the pacer, independent of any rate-limit headers observed.
	MinRequestInterval time.Duration
	// MaxRetries caps the retry/backoff attempts before an error is
	// propagated to the caller.
	MaxRetries int
}

// DefaultConfig returns Freshdesk connection defaults per spec.md §4.1.
func DefaultConfig(domain, apiKey string) Config {
	return Config{
		Domain:             domain,
		APIKey:             apiKey,
		PageSize:           50,
		MinRequestInterval: 300 * time.Millisecond,
		MaxRetries:         5,
	}
}

// baseURL normalizes domain into "https://<company>.freshdesk.com/api/v2",
// accepting either a bare company id or a full domain/URL.
func (c Config) baseURL() (string, error) {
	companyID, err := companyIDFromDomain(c.Domain)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s.freshdesk.com/api/v2", companyID), nil
}

func companyIDFromDomain(domain string) (string, error) {
	if domain == "" {
		return "", fmt.Errorf("freshdesk: domain is empty")
	}
	d := strings.TrimPrefix(domain, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimSuffix(d, ".freshdesk.com")
	d = strings.TrimSuffix(d, "/")
	if d == "" {
		return "", fmt.Errorf("freshdesk: could not extract company id from domain %q", domain)
	}
	return d, nil
}
