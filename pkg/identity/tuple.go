// Package identity defines the platform-neutral 3-tuple identity used
// across the relational store and the vector store.
package identity

import (
	"crypto/md5" //nolint:gosec // not used for security, only as a deterministic UUID source
	"fmt"

	"github.com/google/uuid"
)

// knownPrefixes are stripped from upstream original ids before they are
// stored, so the same upstream object always normalizes to the same
// original_id regardless of which endpoint it was fetched from.
var knownPrefixes = []string{"ticket-", "kb-"}

// Tuple is the sole identity of every persistent object: tenant,
// upstream platform, and the upstream provider's own id.
type Tuple struct {
	TenantID   string
	Platform   string
	OriginalID string
}

// NormalizeOriginalID strips known upstream id prefixes and returns a
// plain string id.
func NormalizeOriginalID(raw string) string {
	for _, prefix := range knownPrefixes {
		if len(raw) > len(prefix) && raw[:len(prefix)] == prefix {
			return raw[len(prefix):]
		}
	}
	return raw
}

// New builds a Tuple, normalizing the original id.
func New(tenantID, platform, originalID string) Tuple {
	return Tuple{
		TenantID:   tenantID,
		Platform:   platform,
		OriginalID: NormalizeOriginalID(originalID),
	}
}

// key is the exact byte sequence hashed to derive the point id: it MUST
// stay stable, or every previously-ingested vector point becomes
// unreachable by recomputation.
func (t Tuple) key() string {
	return fmt.Sprintf("%s:%s:%s", t.TenantID, t.Platform, t.OriginalID)
}

// PointID returns the deterministic vector-store point id for this
// tuple: the raw MD5 digest of "tenant_id:platform:original_id",
// interpreted directly as the 16 bytes of a UUID. Recomputing it for the
// same tuple always yields the same id (spec invariant: 3-tuple
// uniqueness).
func (t Tuple) PointID() uuid.UUID {
	sum := md5.Sum([]byte(t.key())) //nolint:gosec
	id, err := uuid.FromBytes(sum[:])
	if err != nil {
		// md5.Sum always returns exactly 16 bytes, so this is unreachable.
		panic(fmt.Sprintf("identity: impossible uuid decode error: %v", err))
	}
	return id
}

// String renders the tuple for logging.
func (t Tuple) String() string {
	return t.key()
}
