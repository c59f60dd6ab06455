// Package vectorstore implements the Vector Store Adapter (C3): a single
// logical collection holding summary embeddings for every ingested object,
// scoped by tenant through payload filters rather than physical
// partitioning, per spec.md §4.3.
package vectorstore

import (
	"context"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/identity"
)

// Point is one vector-store entry: the 3-tuple identity it was derived
// from, its embedding, and the payload fields spec.md §4.3 requires every
// adapter to carry.
type Point struct {
	Tuple          identity.Tuple
	Vector         []float32
	ObjectType     string
	DocType        string
	Summary        string
	TenantMetadata map[string]interface{}
}

// SearchQuery is the input to Search. Platform and DocType are optional
// narrowing filters; TenantID is always required.
type SearchQuery struct {
	QueryEmbedding []float32
	TopK           int
	TenantID       string
	Platform       string // optional
	DocType        string // optional
}

// SearchResult pairs a Point with its similarity score, highest first.
type SearchResult struct {
	Point Point
	Score float32
}

// Store is the contract the Ingestion Engine (C6) and Retrieval
// Orchestrator (C8) depend on; QdrantStore and MemoryStore both satisfy it.
type Store interface {
	// EnsureCollection creates the backing collection (cosine distance,
	// the payload indexes required by spec.md §4.3) if it does not already
	// exist. Idempotent.
	EnsureCollection(ctx context.Context) error

	// Upsert writes or overwrites points, keyed by each point's
	// deterministic identity.Tuple.PointID().
	Upsert(ctx context.Context, points []Point) error

	// Search runs similarity search under a tenant_id (and, if given,
	// platform) filter. DocType filtering, when requested, is applied by
	// the implementation in memory over an over-fetched candidate set, per
	// spec.md §4.3, and the final result is truncated to q.TopK.
	Search(ctx context.Context, q SearchQuery) ([]SearchResult, error)

	// GetByID fetches the single point addressed by the 4-tuple. Returns
	// (Point{}, false, nil) if no such point exists.
	GetByID(ctx context.Context, tenantID, platformName, docType, originalID string) (Point, bool, error)

	// Delete removes the points for the given tuples. Refuses (returns an
	// error) unless both tenantID and platformName are non-empty, per
	// spec.md §4.3's tenant-isolation requirement for destructive calls.
	Delete(ctx context.Context, tuples []identity.Tuple, tenantID, platformName string) error

	// Count returns the number of points matching the optional
	// tenant/platform filter (both empty counts everything).
	Count(ctx context.Context, tenantID, platformName string) (int, error)

	// ScrollAll pages through every point in the collection, pageSize at a
	// time, invoking yield per page. Used by Backup. yield returning an
	// error stops the scroll and propagates the error.
	ScrollAll(ctx context.Context, pageSize int, yield func([]Point) error) error

	// Reset drops and recreates the collection. Refuses unless confirm is
	// true. When backupPath is non-empty, backs up to it first via Backup.
	Reset(ctx context.Context, confirm bool, backupPath string) error

	// Close releases any underlying connection.
	Close() error
}
