package vectorstore

import (
	"context"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
)

// NewFromConfig opens the Store cfg selects and ensures its collection
// exists before returning it.
func NewFromConfig(ctx context.Context, cfg Config) (Store, error) {
	var store Store

	switch cfg.Backend {
	case BackendQdrant:
		qdrantStore, err := NewQdrantStore(cfg)
		if err != nil {
			return nil, err
		}
		store = qdrantStore
	case BackendMemory:
		store = NewMemoryStore()
	default:
		return nil, apperrors.New(apperrors.KindConfiguration, "vectorstore", "unknown vector store backend: "+string(cfg.Backend))
	}

	if err := store.EnsureCollection(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
