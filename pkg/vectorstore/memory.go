package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/identity"
	"github.com/google/uuid"
)

// MemoryStore is a brute-force, process-local Store: no teacher or example
// repo ships an in-memory vector index, so this has no direct analog and
// exists purely to satisfy spec.md §4.3's contract for local development
// and tests without a running Qdrant instance.
type MemoryStore struct {
	mu     sync.RWMutex
	points map[uuid.UUID]Point
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{points: make(map[uuid.UUID]Point)}
}

func (s *MemoryStore) EnsureCollection(_ context.Context) error { return nil }

func (s *MemoryStore) Upsert(_ context.Context, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.points[p.Tuple.PointID()] = p
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, q SearchQuery) ([]SearchResult, error) {
	if q.TenantID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "vectorstore", "search requires a tenant id")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]SearchResult, 0, len(s.points))
	for _, p := range s.points {
		if p.Tuple.TenantID != q.TenantID {
			continue
		}
		if q.Platform != "" && p.Tuple.Platform != q.Platform {
			continue
		}
		if q.DocType != "" && !memoryDocTypeMatches(p, q.DocType) {
			continue
		}
		candidates = append(candidates, SearchResult{Point: p, Score: cosineSimilarity(q.QueryEmbedding, p.Vector)})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })

	if q.TopK > 0 && len(candidates) > q.TopK {
		candidates = candidates[:q.TopK]
	}
	return candidates, nil
}

// memoryDocTypeMatches applies the same doc_type/legacy-field fallback
// QdrantStore.Search does, over the TenantMetadata map instead of a qdrant
// payload struct.
func memoryDocTypeMatches(p Point, wantDocType string) bool {
	if p.DocType == wantDocType {
		return true
	}

	switch wantDocType {
	case "kb":
		return metaEquals(p.TenantMetadata, "type", float64(1)) || metaEquals(p.TenantMetadata, "status", float64(1))
	case "ticket":
		return metaEquals(p.TenantMetadata, "source_type", "ticket")
	default:
		return false
	}
}

func metaEquals(meta map[string]interface{}, key string, want interface{}) bool {
	if meta == nil {
		return false
	}
	v, ok := meta[key]
	return ok && v == want
}

func (s *MemoryStore) GetByID(_ context.Context, tenantID, platformName, docType, originalID string) (Point, bool, error) {
	if docType == "" {
		return Point{}, false, apperrors.New(apperrors.KindValidation, "vectorstore", "get by id requires a doc type")
	}

	tuple := identity.New(tenantID, platformName, originalID)

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[tuple.PointID()]
	if !ok || p.DocType != docType {
		return Point{}, false, nil
	}
	return p, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, tuples []identity.Tuple, tenantID, platformName string) error {
	if tenantID == "" || platformName == "" {
		return apperrors.New(apperrors.KindValidation, "vectorstore", "delete requires both tenant id and platform")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tuples {
		if p, ok := s.points[t.PointID()]; ok {
			if p.Tuple.TenantID != tenantID || p.Tuple.Platform != platformName {
				continue
			}
			delete(s.points, t.PointID())
		}
	}
	return nil
}

func (s *MemoryStore) Count(_ context.Context, tenantID, platformName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.points {
		if tenantID != "" && p.Tuple.TenantID != tenantID {
			continue
		}
		if platformName != "" && p.Tuple.Platform != platformName {
			continue
		}
		count++
	}
	return count, nil
}

func (s *MemoryStore) ScrollAll(_ context.Context, pageSize int, yield func([]Point) error) error {
	s.mu.RLock()
	all := make([]Point, 0, len(s.points))
	for _, p := range s.points {
		all = append(all, p)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Tuple.String() < all[j].Tuple.String() })

	for start := 0; start < len(all); start += pageSize {
		end := start + pageSize
		if end > len(all) {
			end = len(all)
		}
		if err := yield(all[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context, confirm bool, backupPath string) error {
	if !confirm {
		return apperrors.New(apperrors.KindValidation, "vectorstore", "reset requires explicit confirmation")
	}

	if backupPath != "" {
		if _, err := Backup(ctx, s, backupPath); err != nil {
			return apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to back up collection before reset", err)
		}
	}

	s.mu.Lock()
	s.points = make(map[uuid.UUID]Point)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
