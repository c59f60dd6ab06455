package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/metrics"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/ratelimit"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantctx"
)

const tenantContextKey = "tenantctx"

// securityHeaders sets standard security response headers on every
// response. Grounded on middleware.go's (pre-rewrite) echo
// MiddlewareFunc, ported to gin's func(*gin.Context) shape.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Next()
	}
}

// tenantContext extracts and validates the 4 tenant headers via
// tenantctx.Extract, per spec.md §6.1: "All endpoints require the 4
// headers above; missing headers -> 400." Only freshdesk is an
// implemented platform, so any other X-Platform value is rejected here
// rather than surfacing as a confusing failure three layers down in the
// Platform Adapter.
func tenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		tctx, err := tenantctx.Extract(c.Request.Header)
		if err != nil {
			abortError(c, err)
			return
		}
		if tctx.Platform != "freshdesk" {
			abortError(c, apperrors.New(apperrors.KindValidation, "api", "unsupported platform").WithDetail("platform", tctx.Platform))
			return
		}
		c.Set(tenantContextKey, tctx)
		c.Next()
	}
}

// mustTenantContext returns the *tenantctx.Context tenantContext() stored
// on c. Panics if called from a route that doesn't run tenantContext()
// first — a wiring bug, not a request-time condition.
func mustTenantContext(c *gin.Context) *tenantctx.Context {
	return c.MustGet(tenantContextKey).(*tenantctx.Context)
}

// rateLimit enforces spec.md §5's token-bucket policy for the given
// bucket, keyed by (client_ip, tenant_id). Must run after tenantContext()
// so the tenant id is already on the gin.Context.
func rateLimit(limiter *ratelimit.Limiter, bucket ratelimit.Bucket) gin.HandlerFunc {
	return func(c *gin.Context) {
		tctx := mustTenantContext(c)
		key := ratelimit.Key(c.ClientIP(), tctx.TenantID)
		if !limiter.Allow(bucket, key) {
			metrics.RateLimitRejectionsTotal.WithLabelValues(string(bucket)).Inc()
			c.Header("Retry-After", "60")
			abortError(c, apperrors.New(apperrors.KindRateLimit, "api", "rate limit exceeded"))
			return
		}
		c.Next()
	}
}

// authFailureThrottle consumes a token from BucketAuthFailure for the
// request's (client_ip, tenant_id) key whenever a request comes back
// 401/403. There is no dedicated login endpoint in this service — every
// request authenticates itself (X-API-Key against the upstream platform)
// inline — so this runs after the handler has already responded. The
// result of that Allow call is discarded, and no middleware consults
// BucketAuthFailure before a request runs, so repeated auth failures
// are counted but never rejected by this bucket.
func authFailureThrottle(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status != 401 && status != 403 {
			return
		}
		tctxVal, ok := c.Get(tenantContextKey)
		if !ok {
			return
		}
		tctx := tctxVal.(*tenantctx.Context)
		limiter.Allow(ratelimit.BucketAuthFailure, ratelimit.Key(c.ClientIP(), tctx.TenantID))
	}
}

// requestMetrics records HTTPRequestsTotal/HTTPRequestDuration for every
// request, by route template (c.FullPath()) rather than raw path so
// parameterized routes (e.g. /ingest/jobs/:id) don't fragment the metric
// into one series per id.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := metrics.NewTimer()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		timer.ObserveDurationVec(metrics.HTTPRequestDuration, c.Request.Method, route)
	}
}
