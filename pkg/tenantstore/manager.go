package tenantstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/database"
)

// Manager owns one Store per tenant, opening and caching the underlying
// database connection lazily on first access. Modeled on the teacher's
// session.Manager in-memory registry, generalized from an all-in-memory
// map to a map of lazily-opened database handles that must eventually be
// closed.
type Manager struct {
	cfg BackendConfig

	mu     sync.RWMutex
	stores map[string]Store
}

// NewManager creates a Manager for the given backend configuration.
func NewManager(cfg BackendConfig) *Manager {
	return &Manager{
		cfg:    cfg,
		stores: make(map[string]Store),
	}
}

// Get returns the Store for tenantID, opening (and, for the central
// backend, provisioning) it on first access.
func (m *Manager) Get(ctx context.Context, tenantID string) (Store, error) {
	m.mu.RLock()
	store, ok := m.stores[tenantID]
	m.mu.RUnlock()
	if ok {
		return store, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check: another goroutine may have opened it while we waited for the lock.
	if store, ok := m.stores[tenantID]; ok {
		return store, nil
	}

	store, err := m.open(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	m.stores[tenantID] = store
	return store, nil
}

func (m *Manager) open(ctx context.Context, tenantID string) (Store, error) {
	switch m.cfg.Backend {
	case BackendCentral:
		return NewCentralStore(ctx, m.cfg.CentralDSN, tenantID)
	case BackendEmbedded:
		path := filepath.Join(m.cfg.EmbeddedDir, fmt.Sprintf("%s_data.db", tenantID))
		return NewEmbeddedStore(ctx, path)
	default:
		return nil, fmt.Errorf("tenantstore: unknown backend %q", m.cfg.Backend)
	}
}

// ListTenants enumerates every known tenant. For the central backend this
// scans pg_catalog for provisioned schemas; the embedded backend has no
// fleet-wide registry (each tenant is an independent file) and returns only
// the tenants this Manager has opened so far.
func (m *Manager) ListTenants(ctx context.Context) ([]string, error) {
	if m.cfg.Backend == BackendCentral {
		return database.ListTenantSchemas(ctx, m.cfg.CentralDSN)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	tenants := make([]string, 0, len(m.stores))
	for tenantID := range m.stores {
		tenants = append(tenants, tenantID)
	}
	return tenants, nil
}

// Close closes every open tenant store. Returns the first error
// encountered, having attempted to close every store regardless.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for tenantID, store := range m.stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close store for tenant %s: %w", tenantID, err)
		}
	}
	m.stores = make(map[string]Store)
	return firstErr
}
