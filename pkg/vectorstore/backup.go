package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/identity"
)

// backupChunkSize is spec.md §4.3's page size for backup serialization.
const backupChunkSize = 1000

// backupPoint is the JSON-serializable form of a Point: identity.Tuple's
// fields are flattened since PointID() is recomputed from them on restore,
// not stored.
type backupPoint struct {
	TenantID       string                 `json:"tenant_id"`
	Platform       string                 `json:"platform"`
	OriginalID     string                 `json:"original_id"`
	Vector         []float32              `json:"vector"`
	ObjectType     string                 `json:"object_type"`
	DocType        string                 `json:"doc_type"`
	Summary        string                 `json:"summary"`
	TenantMetadata map[string]interface{} `json:"tenant_metadata,omitempty"`
}

// Backup serializes every point in store to JSON files under dir, in pages
// of backupChunkSize, named "vectors_chunk_NNNN.json" — the vector-store
// analog of the Ingestion Engine's raw_data chunk files (spec.md §4.6).
func Backup(ctx context.Context, store Store, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create backup directory: %w", err)
	}

	chunkIndex := 0
	total := 0

	err := store.ScrollAll(ctx, backupChunkSize, func(points []Point) error {
		chunk := make([]backupPoint, 0, len(points))
		for _, p := range points {
			chunk = append(chunk, backupPoint{
				TenantID:       p.Tuple.TenantID,
				Platform:       p.Tuple.Platform,
				OriginalID:     p.Tuple.OriginalID,
				Vector:         p.Vector,
				ObjectType:     p.ObjectType,
				DocType:        p.DocType,
				Summary:        p.Summary,
				TenantMetadata: p.TenantMetadata,
			})
		}

		data, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("failed to marshal backup chunk: %w", err)
		}

		path := filepath.Join(dir, fmt.Sprintf("vectors_chunk_%04d.json", chunkIndex))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write backup chunk %s: %w", path, err)
		}

		chunkIndex++
		total += len(points)
		return nil
	})
	if err != nil {
		return total, err
	}

	return total, nil
}

// Restore reads every "vectors_chunk_*.json" file under dir and re-upserts
// its points into store.
func Restore(ctx context.Context, store Store, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match("vectors_chunk_*.json", entry.Name()); !ok {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return total, fmt.Errorf("failed to read backup chunk %s: %w", entry.Name(), err)
		}

		var chunk []backupPoint
		if err := json.Unmarshal(data, &chunk); err != nil {
			return total, fmt.Errorf("failed to parse backup chunk %s: %w", entry.Name(), err)
		}

		points := make([]Point, 0, len(chunk))
		for _, bp := range chunk {
			points = append(points, pointFromBackup(bp))
		}

		if len(points) == 0 {
			continue
		}
		if err := store.Upsert(ctx, points); err != nil {
			return total, fmt.Errorf("failed to restore backup chunk %s: %w", entry.Name(), err)
		}
		total += len(points)
	}

	return total, nil
}

func pointFromBackup(bp backupPoint) Point {
	return Point{
		Tuple:          identity.New(bp.TenantID, bp.Platform, bp.OriginalID),
		Vector:         bp.Vector,
		ObjectType:     bp.ObjectType,
		DocType:        bp.DocType,
		Summary:        bp.Summary,
		TenantMetadata: bp.TenantMetadata,
	}
}
