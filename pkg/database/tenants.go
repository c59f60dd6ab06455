package database

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"strings"
)

// ListTenantSchemas enumerates every tenant schema present in the central
// backend by scanning pg_catalog, the same catalog golang-migrate itself
// reads to decide whether a migration has already run. Used by the admin
// purge/backup endpoints and by the retention reaper to iterate every
// known tenant without requiring a separate tenant registry table.
func ListTenantSchemas(ctx context.Context, baseDSN string) ([]string, error) {
	db, err := stdsql.Open("pgx", baseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open admin connection: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT nspname FROM pg_catalog.pg_namespace WHERE nspname LIKE 'tenant\_%' ESCAPE '\' ORDER BY nspname`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant schemas: %w", err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema name: %w", err)
		}
		schemas = append(schemas, strings.TrimPrefix(name, "tenant_"))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenant schemas: %w", err)
	}

	return schemas, nil
}
