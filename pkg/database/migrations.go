package database

import (
	"context"
	stdsql "database/sql"
	"fmt"
)

// CreateGINIndexes creates the full-text and JSONB GIN indexes that Ent's
// schema annotations cannot express directly. Applies to the central
// (schema-per-tenant) backend only; the embedded per-tenant backend
// trades these for simplicity, per spec.md §4.2.
func CreateGINIndexes(ctx context.Context, db *stdsql.DB, schemaName string) error {
	statements := []string{
		fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_integrated_objects_content_gin
			ON %s.integrated_objects USING gin(to_tsvector('simple', integrated_content))`,
			schemaName),
		fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_integrated_objects_metadata_gin
			ON %s.integrated_objects USING gin(metadata jsonb_path_ops)`,
			schemaName),
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create GIN index: %w", err)
		}
	}
	return nil
}
