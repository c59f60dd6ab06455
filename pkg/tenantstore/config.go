package tenantstore

import (
	"fmt"
	"os"
)

// Backend selects which Tenant Store implementation the Manager opens new
// tenants against, per spec.md §4.2.
type Backend string

const (
	BackendCentral  Backend = "central"
	BackendEmbedded Backend = "embedded"
)

// BackendConfig configures tenant store backend selection. Loaded from
// environment variables, not the YAML config tree, mirroring how
// pkg/database's own Postgres connection settings are kept out of YAML
// (connection/storage topology is operational, not tenant-facing policy).
type BackendConfig struct {
	Backend Backend

	// CentralDSN is the base (schema-less) connection string used to
	// provision and open each tenant's dedicated schema. Required when
	// Backend is BackendCentral.
	CentralDSN string

	// EmbeddedDir is the directory holding one SQLite file per tenant,
	// named "<tenant_id>_data.db" per spec.md §4.2. Required when Backend
	// is BackendEmbedded.
	EmbeddedDir string
}

// LoadBackendConfigFromEnv reads TENANT_STORE_BACKEND (default "embedded"),
// TENANT_STORE_CENTRAL_DSN and TENANT_STORE_EMBEDDED_DIR (default
// "./tenant-data").
func LoadBackendConfigFromEnv() (BackendConfig, error) {
	backend := Backend(getEnvOrDefault("TENANT_STORE_BACKEND", string(BackendEmbedded)))

	cfg := BackendConfig{
		Backend:     backend,
		CentralDSN:  os.Getenv("TENANT_STORE_CENTRAL_DSN"),
		EmbeddedDir: getEnvOrDefault("TENANT_STORE_EMBEDDED_DIR", "./tenant-data"),
	}

	switch backend {
	case BackendCentral:
		if cfg.CentralDSN == "" {
			return BackendConfig{}, fmt.Errorf("TENANT_STORE_CENTRAL_DSN is required when TENANT_STORE_BACKEND=central")
		}
	case BackendEmbedded:
		// EmbeddedDir always has a default, nothing further required.
	default:
		return BackendConfig{}, fmt.Errorf("invalid TENANT_STORE_BACKEND %q: must be %q or %q", backend, BackendCentral, BackendEmbedded)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
