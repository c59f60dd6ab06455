package freshdesk

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// RateLimitUsedCounter is exported so pkg/metrics can register it alongside the
// rest of the process's collectors without this package importing the
// metrics registry directly.
var RateLimitUsedCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tarsy_ingest_freshdesk_rate_limit_used_total",
		Help: "Sum of X-RateLimit-Used-CurrentRequest observed across Freshdesk API calls.",
	},
	[]string{"tenant_id"},
)

// pacingTransport enforces a minimum inter-request delay and honors
// Freshdesk's rate-limit headers: it sleeps until X-RateLimit-Reset when
// X-RateLimit-Remaining drops to 1 or below, and it tracks
// X-RateLimit-Used-CurrentRequest as a metric, mirroring the original
// fetcher.py's REQUEST_DELAY pacing and its rate-limit awareness.
type pacingTransport struct {
	base     http.RoundTripper
	tenantID string
	minDelay time.Duration

	mu       sync.Mutex
	nextSlot time.Time
}

func newPacingTransport(base http.RoundTripper, tenantID string, minDelay time.Duration) *pacingTransport {
	return &pacingTransport{base: base, tenantID: tenantID, minDelay: minDelay}
}

func (t *pacingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.waitForSlot()

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	if used := resp.Header.Get("X-RateLimit-Used-CurrentRequest"); used != "" {
		if n, parseErr := strconv.Atoi(used); parseErr == nil {
			RateLimitUsedCounter.WithLabelValues(t.tenantID).Add(float64(n))
		}
	}

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if n, parseErr := strconv.Atoi(remaining); parseErr == nil && n <= 1 {
			if resetAt := resp.Header.Get("X-RateLimit-Reset"); resetAt != "" {
				if secs, parseErr := strconv.Atoi(resetAt); parseErr == nil {
					t.mu.Lock()
					t.nextSlot = time.Now().Add(time.Duration(secs) * time.Second)
					t.mu.Unlock()
				}
			}
		}
	}

	return resp, nil
}

func (t *pacingTransport) waitForSlot() {
	t.mu.Lock()
	wait := time.Until(t.nextSlot)
	if wait < 0 {
		wait = 0
	}
	t.nextSlot = time.Now().Add(wait + t.minDelay)
	t.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

// retryingDo executes req with exponential-backoff retry on transport
// errors and 5xx responses, honoring Retry-After on 429, retrying at most
// maxRetries times after the first attempt. Adapted from fetch_with_retry in the original
// fetcher.py, replacing its fixed-delay loop with
// cenkalti/backoff/v4's exponential policy.
func retryingDo(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries))
	policy = backoff.WithContext(policy, ctx)

	var resp *http.Response
	operation := func() error {
		r, err := client.Do(req.Clone(ctx))
		if err != nil {
			return err
		}

		switch {
		case r.StatusCode == http.StatusTooManyRequests:
			retryAfter := 2 * time.Second
			if ra := r.Header.Get("Retry-After"); ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil {
					retryAfter = time.Duration(secs) * time.Second
				}
			}
			_ = r.Body.Close()
			// Honor Retry-After by sleeping here: Freshdesk tells us how long
			// to wait. The backoff policy's own delay still follows.
			time.Sleep(retryAfter)
			return &retryableStatusError{status: r.StatusCode}
		case r.StatusCode >= 500:
			_ = r.Body.Close()
			return &retryableStatusError{status: r.StatusCode}
		case r.StatusCode >= 400:
			resp = r
			return backoff.Permanent(&httpStatusError{status: r.StatusCode})
		default:
			resp = r
			return nil
		}
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if resp != nil {
			return resp, err
		}
		return nil, err
	}
	return resp, nil
}

type retryableStatusError struct{ status int }

func (e *retryableStatusError) Error() string {
	return "freshdesk: server error, status " + strconv.Itoa(e.status)
}

type httpStatusError struct{ status int }

func (e *httpStatusError) Error() string {
	return "freshdesk: request failed, status " + strconv.Itoa(e.status)
}

// StatusCode extracts the HTTP status from an error returned by
// retryingDo, if any, so callers can special-case 404.
func StatusCode(err error) (int, bool) {
	if hse, ok := err.(*httpStatusError); ok {
		return hse.status, true
	}
	if rse, ok := err.(*retryableStatusError); ok {
		return rse.status, true
	}
	return 0, false
}
