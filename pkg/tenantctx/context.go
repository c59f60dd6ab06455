// Package tenantctx implements Tenant Context & Config (C9): extracting the
// per-request {tenant_id, platform, domain, api_key} tuple from headers,
// validating tenant_id, and giving every other component a lazily-loaded,
// cached, decrypt-on-read view of that tenant's settings. Grounded on
// `backend/core/database/tenant_config.py`'s TenantConfigManager: a
// request-scoped tenant_id/platform pair backed by per-tenant key/value
// settings, an auto-generated system-wide encryption key, and get_*(key,
// default) accessors.
package tenantctx

import (
	"net/http"
	"regexp"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
)

const (
	headerTenantID = "X-Tenant-ID"
	headerPlatform = "X-Platform"
	headerDomain   = "X-Domain"
	headerAPIKey   = "X-API-Key"

	// DefaultPlatform is used when X-Platform is absent, per spec.md §4.9.
	DefaultPlatform = "freshdesk"
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{2,50}$`)

// reservedTenantIDs can never be assigned to a real tenant: they either
// collide with path segments this service reserves for itself, or are
// common placeholder/test values that would be too easy to hit by
// accident in a misconfigured client.
var reservedTenantIDs = map[string]bool{
	"admin":   true,
	"system":  true,
	"default": true,
	"health":  true,
	"metrics": true,
	"null":    true,
	"test":    true,
}

// Context is the per-request tenant identity, per spec.md §4.9.
type Context struct {
	TenantID string
	Platform string
	Domain   string
	APIKey   string
}

// Extract reads and validates the 4 tenant headers from an inbound
// request. A missing X-Tenant-ID, X-Domain or X-API-Key is a validation
// error; a missing X-Platform falls back to DefaultPlatform.
// Framework-agnostic (operates on http.Header
// directly) so gin/echo/chi handlers all funnel through the same
// validation.
func Extract(h http.Header) (*Context, error) {
	tenantID := h.Get(headerTenantID)
	if tenantID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "tenantctx", "missing "+headerTenantID+" header")
	}
	if err := ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	domain := h.Get(headerDomain)
	if domain == "" {
		return nil, apperrors.New(apperrors.KindValidation, "tenantctx", "missing "+headerDomain+" header")
	}

	apiKey := h.Get(headerAPIKey)
	if apiKey == "" {
		return nil, apperrors.New(apperrors.KindValidation, "tenantctx", "missing "+headerAPIKey+" header")
	}

	platform := h.Get(headerPlatform)
	if platform == "" {
		platform = DefaultPlatform
	}

	return &Context{TenantID: tenantID, Platform: platform, Domain: domain, APIKey: apiKey}, nil
}

// ValidateTenantID enforces spec.md §4.9's tenant_id shape and reserved-word
// rules.
func ValidateTenantID(tenantID string) error {
	if !tenantIDPattern.MatchString(tenantID) {
		return apperrors.New(apperrors.KindValidation, "tenantctx",
			"tenant_id must match ^[A-Za-z0-9-]{2,50}$").WithDetail("tenant_id", tenantID)
	}
	if reservedTenantIDs[tenantID] {
		return apperrors.New(apperrors.KindValidation, "tenantctx", "tenant_id is reserved").
			WithDetail("tenant_id", tenantID)
	}
	return nil
}

// Key identifies one tenant/platform pair, used as the settings cache key.
func (c *Context) Key() string { return c.TenantID + "/" + c.Platform }
