package cache

import (
	"crypto/md5" //nolint:gosec // cache key derivation, not a security boundary
	"encoding/hex"
)

// EmbeddingKey derives the 1-hour embedding cache key spec.md §4.4
// requires: md5(model || ":" || text).
func EmbeddingKey(model, text string) string {
	sum := md5.Sum([]byte(model + ":" + text)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// SummaryKey derives the 6-hour summary cache key: ticket id + content
// hash.
func SummaryKey(ticketID, content string) string {
	sum := md5.Sum([]byte(content)) //nolint:gosec
	return ticketID + ":" + hex.EncodeToString(sum[:])
}
