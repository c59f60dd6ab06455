package freshdesk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adapterAgainst(t *testing.T, handler http.HandlerFunc) (*Adapter, func()) {
	t.Helper()
	server := httptest.NewServer(handler)

	cfg := DefaultConfig("acme", "test-key")
	cfg.MinRequestInterval = 0
	a := New("acme", cfg)
	a.OverrideHTTPClientForTest(server.Client())
	a.OverrideBaseURLForTest(server.URL)

	return a, server.Close
}

func TestGetTicket_NotFound(t *testing.T) {
	a, closeFn := adapterAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer closeFn()

	_, found, err := a.GetTicket(context.Background(), "999")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetTicket_ExternalServiceErrorOnServerFailure(t *testing.T) {
	a, closeFn := adapterAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer closeFn()
	a.cfg.MaxRetries = 1

	_, _, err := a.GetTicket(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindExternalService, apperrors.KindOf(err))
}

func TestListTicketsByUpdatedSince_StopsAtShortPage(t *testing.T) {
	pages := [][]map[string]interface{}{
		{
			{"id": float64(1), "priority": float64(1), "status": float64(2), "updated_at": "2026-01-01T00:00:00Z", "created_at": "2026-01-01T00:00:00Z"},
			{"id": float64(2), "priority": float64(2), "status": float64(3), "updated_at": "2026-01-02T00:00:00Z", "created_at": "2026-01-02T00:00:00Z"},
		},
	}

	called := 0
	a, closeFn := adapterAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tickets", r.URL.Path)
		if called >= len(pages) {
			_ = json.NewEncoder(w).Encode([]map[string]interface{}{})
			return
		}
		page := pages[called]
		called++
		_ = json.NewEncoder(w).Encode(page)
	})
	defer closeFn()

	var collected []platform.Record
	err := a.ListTicketsByUpdatedSince(context.Background(), nil, nil, func(records []platform.Record) error {
		collected = append(collected, records...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, collected, 2)
	assert.Equal(t, "low", collected[0].Metadata["priority"])
	assert.Equal(t, "pending", collected[1].Metadata["status"])
}

func TestRetryingDo_HonorsRetryAfter(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	}))
	defer server.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := retryingDo(context.Background(), server.Client(), req, 3)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 2, attempts)
}
