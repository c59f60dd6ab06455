package tenantctx

import (
	"net/http"
	"testing"
)

func headers(tenantID, platform, domain, apiKey string) http.Header {
	h := make(http.Header)
	if tenantID != "" {
		h.Set(headerTenantID, tenantID)
	}
	if platform != "" {
		h.Set(headerPlatform, platform)
	}
	if domain != "" {
		h.Set(headerDomain, domain)
	}
	if apiKey != "" {
		h.Set(headerAPIKey, apiKey)
	}
	return h
}

func TestExtract_Success(t *testing.T) {
	h := headers("acme-corp", "zendesk", "acme.freshdesk.com", "secret-key")
	ctx, err := Extract(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.TenantID != "acme-corp" || ctx.Platform != "zendesk" || ctx.Domain != "acme.freshdesk.com" || ctx.APIKey != "secret-key" {
		t.Fatalf("unexpected context: %+v", ctx)
	}
}

func TestExtract_DefaultsPlatform(t *testing.T) {
	h := headers("acme-corp", "", "acme.freshdesk.com", "secret-key")
	ctx, err := Extract(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Platform != DefaultPlatform {
		t.Fatalf("expected default platform %q, got %q", DefaultPlatform, ctx.Platform)
	}
}

func TestExtract_MissingHeaders(t *testing.T) {
	cases := []struct {
		name string
		h    http.Header
	}{
		{"missing tenant id", headers("", "freshdesk", "acme.example.com", "key")},
		{"missing domain", headers("acme-corp", "freshdesk", "", "key")},
		{"missing api key", headers("acme-corp", "freshdesk", "acme.example.com", "")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Extract(tc.h); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestValidateTenantID(t *testing.T) {
	valid := []string{"acme", "acme-corp", "a1", "AB-12-cd"}
	for _, v := range valid {
		if err := ValidateTenantID(v); err != nil {
			t.Errorf("expected %q to be valid, got %v", v, err)
		}
	}

	invalid := []string{
		"",
		"a",
		"this-tenant-id-is-way-too-long-to-ever-be-accepted-by-the-regex",
		"has spaces",
		"has_underscore",
		"has.dot",
	}
	for _, v := range invalid {
		if err := ValidateTenantID(v); err == nil {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}

func TestValidateTenantID_Reserved(t *testing.T) {
	for reserved := range reservedTenantIDs {
		if err := ValidateTenantID(reserved); err == nil {
			t.Errorf("expected reserved tenant id %q to be rejected", reserved)
		}
	}
}

func TestContext_Key(t *testing.T) {
	c := &Context{TenantID: "acme", Platform: "freshdesk"}
	if c.Key() != "acme/freshdesk" {
		t.Fatalf("unexpected key: %q", c.Key())
	}
}
