// Package database provides the PostgreSQL central client (schema-per-tenant)
// and the SQLite embedded client (file-per-tenant), plus migration utilities
// shared by both.
package database

import (
	"context"
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/codeready-toolchain/tarsy-ingest/ent"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for database/sql
	_ "modernc.org/sqlite"             // register the pure-Go sqlite driver
)

//go:embed migrations
var migrationsFS embed.FS

// Config holds central-backend database configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Client wraps an Ent client scoped to a single schema (central backend,
// one tenant's schema) or a single file (embedded backend).
type Client struct {
	*ent.Client
	db         *stdsql.DB
	SchemaName string
}

// DB returns the underlying database connection for health checks and direct queries.
func (c *Client) DB() *stdsql.DB {
	return c.db
}

// NewClientFromEnt wraps an existing Ent client (useful for testing).
func NewClientFromEnt(entClient *ent.Client, db *stdsql.DB, schemaName string) *Client {
	return &Client{Client: entClient, db: db, SchemaName: schemaName}
}

// NewClient opens the central backend's shared catalog schema ("public"):
// tenant_settings, system_settings, agents, licenses, subscriptions,
// llm_call_logs, summary_quality_scores, ingest_run_records and
// progress_logs all live here, independent of any per-tenant schema.
// Per-tenant integrated_objects tables are provisioned separately by
// EnsureTenantSchema.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	drv := entsql.OpenDB(dialect.Postgres, db)
	entClient := ent.NewClient(ent.Driver(drv))

	if err := runMigrations(ctx, db, cfg.Database); err != nil {
		_ = entClient.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Client{Client: entClient, db: db, SchemaName: "public"}, nil
}

// TenantSchemaName returns the deterministic PostgreSQL schema name for a
// tenant id that has already passed tenantctx's id validation. Deterministic
// naming means EnsureTenantSchema is idempotent across process restarts.
func TenantSchemaName(tenantID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, tenantID)
	return "tenant_" + sanitized
}

// EnsureTenantSchema provisions (or reopens) the per-tenant schema that
// holds that tenant's integrated_objects table in the central backend.
// Modeled directly on the shared test database's per-test schema
// isolation: a dedicated schema, a connection pool whose search_path is
// pinned to it, and Ent's own schema auto-creation in place of
// golang-migrate (per-tenant schemas are created and torn down far more
// often than the catalog schema, so they skip the versioned-migration
// ceremony and go straight to Ent's declarative create).
func EnsureTenantSchema(ctx context.Context, baseDSN, tenantID string) (*Client, error) {
	schemaName := TenantSchemaName(tenantID)

	admin, err := stdsql.Open("pgx", baseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open admin connection: %w", err)
	}
	defer admin.Close()

	if _, err := admin.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %q`, schemaName)); err != nil {
		return nil, fmt.Errorf("failed to create tenant schema %s: %w", schemaName, err)
	}

	scopedDSN := addSearchPath(baseDSN, schemaName)
	db, err := stdsql.Open("pgx", scopedDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant schema connection: %w", err)
	}

	drv := entsql.OpenDB(dialect.Postgres, db)
	entClient := ent.NewClient(ent.Driver(drv))

	if err := entClient.Schema.Create(ctx); err != nil {
		_ = entClient.Close()
		return nil, fmt.Errorf("failed to create tenant schema objects: %w", err)
	}

	if err := CreateGINIndexes(ctx, db, schemaName); err != nil {
		_ = entClient.Close()
		return nil, fmt.Errorf("failed to create tenant GIN indexes: %w", err)
	}

	return &Client{Client: entClient, db: db, SchemaName: schemaName}, nil
}

// NewEmbeddedClient opens the embedded per-tenant SQLite backend at path,
// creating the file and its schema on first use.
func NewEmbeddedClient(ctx context.Context, path string) (*Client, error) {
	drv, err := entsql.Open(dialect.SQLite, fmt.Sprintf("file:%s?_pragma=foreign_keys(1)", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded store %s: %w", path, err)
	}

	entClient := ent.NewClient(ent.Driver(drv))
	if err := entClient.Schema.Create(ctx); err != nil {
		_ = entClient.Close()
		return nil, fmt.Errorf("failed to create embedded schema: %w", err)
	}

	return &Client{Client: entClient, db: drv.DB(), SchemaName: ""}, nil
}

// addSearchPath appends a search_path parameter to a
// PostgreSQL DSN given in "key=value ..." form, the same form NewClient
// builds and EnsureTenantSchema's callers pass through.
func addSearchPath(dsn, schemaName string) string {
	return fmt.Sprintf("%s search_path=%s", dsn, schemaName)
}

// runMigrations applies the catalog schema's versioned migrations using
// golang-migrate against embedded SQL files, the same embed-and-apply
// workflow used for the original single-schema deployment:
//  1. Developer changes schema: edit ent/schema/*.go
//  2. Generate migration: make migrate-create NAME=add_feature
//  3. Migration saved under pkg/database/migrations/*.sql
//  4. Files embedded into the binary at compile time
//  5. Deploy: app applies pending migrations on startup (this function)
func runMigrations(ctx context.Context, db *stdsql.DB, databaseName string) error {
	hasMigrations, err := hasEmbeddedMigrations()
	if err != nil {
		return fmt.Errorf("failed to check embedded migrations: %w", err)
	}
	if !hasMigrations {
		return fmt.Errorf("no embedded migration files found - binary may be built incorrectly")
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, databaseName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Close only the migration source driver: m.Close() would also close the
	// database driver, which calls db.Close() on the shared *sql.DB passed
	// via postgres.WithInstance(), breaking the Ent client that shares it.
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("failed to close migration source: %w", err)
	}

	return nil
}

func hasEmbeddedMigrations() (bool, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			return true, nil
		}
	}
	return false, nil
}
