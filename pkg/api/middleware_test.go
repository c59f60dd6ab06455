package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTenantContext_RejectsMissingHeaders(t *testing.T) {
	e := gin.New()
	e.Use(tenantContext())
	e.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing tenant headers, got %d", rec.Code)
	}
}

func TestTenantContext_RejectsUnsupportedPlatform(t *testing.T) {
	e := gin.New()
	e.Use(tenantContext())
	e.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	req.Header.Set("X-Platform", "zendesk")
	req.Header.Set("X-Domain", "acme.example.com")
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported platform, got %d", rec.Code)
	}
}

func TestTenantContext_AllowsFreshdesk(t *testing.T) {
	e := gin.New()
	e.Use(tenantContext())
	e.GET("/x", func(c *gin.Context) {
		tctx := mustTenantContext(c)
		c.JSON(http.StatusOK, gin.H{"tenant_id": tctx.TenantID})
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	req.Header.Set("X-Platform", "freshdesk")
	req.Header.Set("X-Domain", "acme.example.com")
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSecurityHeaders_SetsExpectedHeaders(t *testing.T) {
	e := gin.New()
	e.Use(securityHeaders())
	e.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("expected X-Frame-Options: DENY")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected X-Content-Type-Options: nosniff")
	}
	if rec.Header().Get("Referrer-Policy") != "strict-origin-when-cross-origin" {
		t.Fatal("expected Referrer-Policy: strict-origin-when-cross-origin")
	}
}

func TestRequestMetrics_UnmatchedRouteStillServes404(t *testing.T) {
	e := gin.New()
	e.Use(requestMetrics())
	e.GET("/known", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected gin's default 404 for an unmatched route, got %d", rec.Code)
	}
}
