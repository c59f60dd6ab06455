package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/identity"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/metrics"
)

// keywordIndexFields and statusIndexField are the payload keys indexed on
// collection creation, grounded directly on backend/core/database/vectordb.py's
// _ensure_collection_exists: tenant_id and platform for multi-tenant
// filtering, original_id and doc_type for point lookup, source_type and
// status (an integer index) for the legacy KB/ticket classification
// doc_type filtering falls back to.
var keywordIndexFields = []string{"tenant_id", "platform", "original_id", "doc_type", "source_type"}

const statusIndexField = "status"

// docTypeOverfetchFactor is how many extra candidates Search pulls per
// requested result when a doc_type filter is set, so the in-memory
// classification below still has enough candidates left after dropping
// non-matching ones.
const docTypeOverfetchFactor = 10

// QdrantStore is the Store implementation backed by a real Qdrant
// collection, reached over gRPC.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

// NewQdrantStore dials Qdrant and returns a Store bound to cfg's
// collection. EnsureCollection must still be called before use.
func NewQdrantStore(cfg Config) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantUseTLS,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to connect to qdrant", err)
	}

	return &QdrantStore{
		client:         client,
		collectionName: cfg.CollectionName,
		vectorSize:     uint64(cfg.VectorSize),
	}, nil
}

func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to check collection existence", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to create collection", err)
	}

	for _, field := range keywordIndexFields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", fmt.Sprintf("failed to create keyword index on %s", field), err)
		}
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collectionName,
		FieldName:      statusIndexField,
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to create status index", err)
	}

	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	wait := true
	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.Tuple.PointID().String()),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payloadFromPoint(p),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Wait:           &wait,
		Points:         qdrantPoints,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to upsert points", err)
	}
	metrics.VectorUpsertsTotal.Add(float64(len(points)))
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.VectorSearchDuration)

	if q.TenantID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "vectorstore", "search requires a tenant id")
	}

	must := []*qdrant.Condition{qdrant.NewMatchKeyword("tenant_id", q.TenantID)}
	if q.Platform != "" {
		must = append(must, qdrant.NewMatchKeyword("platform", q.Platform))
	}

	useDocTypeFilter := q.DocType != ""
	limit := uint64(q.TopK)
	if useDocTypeFilter {
		limit = uint64(q.TopK * docTypeOverfetchFactor)
	}

	withPayload := qdrant.NewWithPayload(true)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(q.QueryEmbedding...),
		Filter:         &qdrant.Filter{Must: must},
		Limit:          &limit,
		WithPayload:    withPayload,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to query collection", err)
	}

	out := make([]SearchResult, 0, q.TopK)
	for _, hit := range results {
		point := pointFromPayload(hit.GetPayload())
		if useDocTypeFilter && !docTypeMatches(hit.GetPayload(), q.DocType) {
			continue
		}
		out = append(out, SearchResult{Point: point, Score: hit.GetScore()})
		if len(out) >= q.TopK {
			break
		}
	}

	return out, nil
}

// docTypeMatches mirrors vectordb.py's search() in-memory classification:
// an explicit doc_type match always counts; absent that, legacy "kb"
// documents are recognized by type/status==1 and legacy "ticket"
// documents by source_type=="ticket".
func docTypeMatches(payload map[string]*qdrant.Value, wantDocType string) bool {
	docType := stringValue(payload["doc_type"])
	if docType == wantDocType {
		return true
	}

	switch wantDocType {
	case "kb":
		return intValue(payload["type"]) == 1 || intValue(payload["status"]) == 1
	case "ticket":
		return stringValue(payload["source_type"]) == "ticket"
	default:
		return false
	}
}

func (s *QdrantStore) GetByID(ctx context.Context, tenantID, platformName, docType, originalID string) (Point, bool, error) {
	if docType == "" {
		return Point{}, false, apperrors.New(apperrors.KindValidation, "vectorstore", "get by id requires a doc type")
	}

	must := []*qdrant.Condition{
		qdrant.NewMatchKeyword("tenant_id", tenantID),
		qdrant.NewMatchKeyword("original_id", originalID),
		qdrant.NewMatchKeyword("doc_type", docType),
	}
	if platformName != "" {
		must = append(must, qdrant.NewMatchKeyword("platform", platformName))
	}

	limit := uint32(1)
	results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collectionName,
		Filter:         &qdrant.Filter{Must: must},
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return Point{}, false, apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to scroll for point", err)
	}
	if len(results) == 0 {
		return Point{}, false, nil
	}

	hit := results[0]
	p := pointFromPayload(hit.GetPayload())
	p.Vector = hit.GetVectors().GetVector().GetData()
	return p, true, nil
}

func (s *QdrantStore) Delete(ctx context.Context, tuples []identity.Tuple, tenantID, platformName string) error {
	if tenantID == "" || platformName == "" {
		return apperrors.New(apperrors.KindValidation, "vectorstore", "delete requires both tenant id and platform")
	}
	if len(tuples) == 0 {
		return nil
	}

	ids := make([]*qdrant.PointId, 0, len(tuples))
	for _, t := range tuples {
		ids = append(ids, qdrant.NewID(t.PointID().String()))
	}

	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Wait:           &wait,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatchKeyword("tenant_id", tenantID),
						qdrant.NewMatchKeyword("platform", platformName),
						qdrant.NewHasID(ids),
					},
				},
			},
		},
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to delete points", err)
	}
	return nil
}

func (s *QdrantStore) Count(ctx context.Context, tenantID, platformName string) (int, error) {
	var must []*qdrant.Condition
	if tenantID != "" {
		must = append(must, qdrant.NewMatchKeyword("tenant_id", tenantID))
	}
	if platformName != "" {
		must = append(must, qdrant.NewMatchKeyword("platform", platformName))
	}

	exact := true
	req := &qdrant.CountPoints{CollectionName: s.collectionName, Exact: &exact}
	if len(must) > 0 {
		req.Filter = &qdrant.Filter{Must: must}
	}

	count, err := s.client.Count(ctx, req)
	if err != nil {
		// Falls back to a scrolled scan, per vectordb.py's count() fallback
		// path, for server versions that reject filtered counts.
		return s.countByScroll(ctx, tenantID, platformName)
	}
	return int(count), nil
}

func (s *QdrantStore) countByScroll(ctx context.Context, tenantID, platformName string) (int, error) {
	total := 0
	err := s.ScrollAll(ctx, backupChunkSize, func(points []Point) error {
		for _, p := range points {
			if tenantID != "" && p.Tuple.TenantID != tenantID {
				continue
			}
			if platformName != "" && p.Tuple.Platform != platformName {
				continue
			}
			total++
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to count via scroll fallback", err)
	}
	return total, nil
}

func (s *QdrantStore) ScrollAll(ctx context.Context, pageSize int, yield func([]Point) error) error {
	var offset *qdrant.PointId
	limit := uint32(pageSize)

	for {
		req := &qdrant.ScrollPoints{
			CollectionName: s.collectionName,
			Limit:          &limit,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		}
		if offset != nil {
			req.Offset = offset
		}

		results, err := s.client.Scroll(ctx, req)
		if err != nil {
			return apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to scroll collection", err)
		}
		if len(results) == 0 {
			return nil
		}

		page := make([]Point, 0, len(results))
		for _, hit := range results {
			p := pointFromPayload(hit.GetPayload())
			p.Vector = hit.GetVectors().GetVector().GetData()
			page = append(page, p)
		}
		if err := yield(page); err != nil {
			return err
		}

		if len(results) < pageSize {
			return nil
		}
		offset = results[len(results)-1].GetId()
	}
}

func (s *QdrantStore) Reset(ctx context.Context, confirm bool, backupPath string) error {
	if !confirm {
		return apperrors.New(apperrors.KindValidation, "vectorstore", "reset requires explicit confirmation")
	}

	if backupPath != "" {
		if _, err := Backup(ctx, s, backupPath); err != nil {
			return apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to back up collection before reset", err)
		}
	}

	if err := s.client.DeleteCollection(ctx, s.collectionName); err != nil {
		return apperrors.Wrap(apperrors.KindVectorDB, "vectorstore", "failed to drop collection", err)
	}
	return s.EnsureCollection(ctx)
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// payloadFromPoint mirrors vectordb.py's essential_fields/tenant_metadata
// split: a handful of fields are promoted to top-level payload keys
// (indexed, filterable), the rest is folded into a single tenant_metadata
// struct value.
func payloadFromPoint(p Point) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		"tenant_id":   qdrant.NewValueString(p.Tuple.TenantID),
		"platform":    qdrant.NewValueString(p.Tuple.Platform),
		"original_id": qdrant.NewValueString(p.Tuple.OriginalID),
		"object_type": qdrant.NewValueString(p.ObjectType),
		"doc_type":    qdrant.NewValueString(p.DocType),
		"summary":     qdrant.NewValueString(p.Summary),
	}
	if len(p.TenantMetadata) > 0 {
		payload["tenant_metadata"] = qdrant.NewValueMap(p.TenantMetadata)
	}
	return payload
}

func pointFromPayload(payload map[string]*qdrant.Value) Point {
	p := Point{
		Tuple: identity.Tuple{
			TenantID:   stringValue(payload["tenant_id"]),
			Platform:   stringValue(payload["platform"]),
			OriginalID: stringValue(payload["original_id"]),
		},
		ObjectType: stringValue(payload["object_type"]),
		DocType:    stringValue(payload["doc_type"]),
		Summary:    stringValue(payload["summary"]),
	}
	if meta, ok := payload["tenant_metadata"]; ok && meta.GetStructValue() != nil {
		p.TenantMetadata = mapValue(meta)
	}
	return p
}

func stringValue(v *qdrant.Value) string {
	if v == nil {
		return ""
	}
	return v.GetStringValue()
}

func intValue(v *qdrant.Value) int64 {
	if v == nil {
		return 0
	}
	return v.GetIntegerValue()
}

func mapValue(v *qdrant.Value) map[string]interface{} {
	out := make(map[string]interface{})
	for k, fv := range v.GetStructValue().GetFields() {
		out[k] = scalarValue(fv)
	}
	return out
}

func scalarValue(v *qdrant.Value) interface{} {
	switch {
	case v == nil:
		return nil
	case v.GetStructValue() != nil:
		return mapValue(v)
	default:
		if s := v.GetStringValue(); s != "" {
			return s
		}
		if i := v.GetIntegerValue(); i != 0 {
			return i
		}
		if d := v.GetDoubleValue(); d != 0 {
			return d
		}
		return v.GetBoolValue()
	}
}
