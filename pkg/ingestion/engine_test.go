package ingestion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/ent"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/identity"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/llm"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/summarizer"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantstore"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/vectorstore"
)

// fakeAdapter implements platform.Capability over an in-memory fixture
// keyed by window RangeID, counting calls so resumability can be asserted.
type fakeAdapter struct {
	tickets map[string][]platform.Record // keyed by RangeID
	kb      []platform.Record

	mu    sync.Mutex
	calls int
}

func (a *fakeAdapter) ListTicketsByUpdatedSince(ctx context.Context, since, until *time.Time, yield func([]platform.Record) error) error {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	rangeID := window{Start: *since, End: *until}.RangeID()
	recs := a.tickets[rangeID]
	if len(recs) == 0 {
		return nil
	}
	return yield(recs)
}

func (a *fakeAdapter) GetTicket(ctx context.Context, originalID string) (platform.Record, bool, error) {
	return platform.Record{}, false, nil
}

func (a *fakeAdapter) ListConversations(ctx context.Context, ticketOriginalID string) ([]platform.Record, error) {
	return nil, nil
}

func (a *fakeAdapter) ListAttachments(ctx context.Context, ticketOriginalID string) ([]platform.Attachment, error) {
	return nil, nil
}

func (a *fakeAdapter) ListKB(ctx context.Context, yield func([]platform.Record) error) error {
	if len(a.kb) == 0 {
		return nil
	}
	return yield(a.kb)
}

// fakeStore implements tenantstore.Store, assigning sequential ids and
// recording every upsert/summary update for assertions.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int
	upserts   []platform.Record
	summaries map[int]string
}

func newFakeStore() *fakeStore { return &fakeStore{} }

func (f *fakeStore) UpsertIntegratedObject(ctx context.Context, tenantID, platformName string, rec platform.Record) (*ent.IntegratedObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.upserts = append(f.upserts, rec)
	return &ent.IntegratedObject{ID: f.nextID}, nil
}

func (f *fakeStore) GetByType(ctx context.Context, tenantID, platformName string, objectType platform.ObjectType) ([]*ent.IntegratedObject, error) {
	return nil, nil
}

func (f *fakeStore) GetAttachmentsForTicket(ctx context.Context, tenantID, platformName, ticketOriginalID string) ([]*ent.IntegratedObject, error) {
	return nil, nil
}

func (f *fakeStore) UpdateSummary(ctx context.Context, id int, summary string) (*ent.IntegratedObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summaries == nil {
		f.summaries = map[int]string{}
	}
	f.summaries[id] = summary
	return &ent.IntegratedObject{ID: id}, nil
}

func (f *fakeStore) SaveQualityScore(ctx context.Context, score tenantstore.QualityScoreRecord) error {
	return nil
}

func (f *fakeStore) RecordIngestRun(ctx context.Context, rec tenantstore.IngestRunRecord) error {
	return nil
}

func (f *fakeStore) LogProgress(ctx context.Context, jobID, tenantID string, step, totalSteps int, message string, percentage float64) error {
	return nil
}

func (f *fakeStore) GetProgress(ctx context.Context, jobID string) ([]*ent.ProgressLog, error) {
	return nil, nil
}

func (f *fakeStore) Clear(ctx context.Context, tenantID, platformName string, hard bool) (int, error) {
	return 0, nil
}

func (f *fakeStore) Restore(ctx context.Context, tenantID string, within time.Duration) (int, error) {
	return 0, nil
}
func (f *fakeStore) Reap(ctx context.Context, retentionDays int, progressLogTTL time.Duration) (int, int, error) {
	return 0, 0, nil
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

// fakeVectors implements vectorstore.Store, recording every upserted point.
type fakeVectors struct {
	mu     sync.Mutex
	points []vectorstore.Point
}

func (v *fakeVectors) EnsureCollection(ctx context.Context) error { return nil }

func (v *fakeVectors) Upsert(ctx context.Context, points []vectorstore.Point) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.points = append(v.points, points...)
	return nil
}

func (v *fakeVectors) Search(ctx context.Context, q vectorstore.SearchQuery) ([]vectorstore.SearchResult, error) {
	return nil, nil
}

func (v *fakeVectors) GetByID(ctx context.Context, tenantID, platformName, docType, originalID string) (vectorstore.Point, bool, error) {
	return vectorstore.Point{}, false, nil
}

func (v *fakeVectors) Delete(ctx context.Context, tuples []identity.Tuple, tenantID, platformName string) error {
	return nil
}

func (v *fakeVectors) Count(ctx context.Context, tenantID, platformName string) (int, error) {
	return 0, nil
}

func (v *fakeVectors) ScrollAll(ctx context.Context, pageSize int, yield func([]vectorstore.Point) error) error {
	return nil
}

func (v *fakeVectors) Reset(ctx context.Context, confirm bool, backupPath string) error {
	return nil
}

func (v *fakeVectors) Close() error { return nil }

// fakeProvider is a minimal llm.Provider stub for wiring a real
// summarizer.Summarizer/llm.Router into the engine tests.
type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }

func (fakeProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Text: "## 🔍 문제 상황\nx\n## 🎯 근본 원인\ny\n## 🔧 해결 과정\nz\n## 💡 핵심 포인트\n1. done\n", Provider: "fake"}, nil
}

func (fakeProvider) Embed(ctx context.Context, model, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func newTestRouter() *llm.Router {
	providers := map[string]*config.LLMProviderConfig{
		"fake": {Type: config.LLMProviderTypeOpenAI, Model: "test-model", Weight: 1, MaxContextTokens: 1000},
	}
	registry := config.NewLLMProviderRegistry(providers)
	return llm.NewRouter(registry, map[string]llm.Provider{"fake": fakeProvider{}})
}

func newTestEngine(adapter platform.Capability, store tenantstore.Store, vectors vectorstore.Store) *Engine {
	router := newTestRouter()
	return New(adapter, store, vectors, summarizer.New(router), router)
}

func TestEngine_Run_CollectsAndRefreshesSummaries(t *testing.T) {
	now := time.Now()
	start := now.AddDate(0, 0, -5)
	w := window{Start: start, End: now}

	adapter := &fakeAdapter{tickets: map[string][]platform.Record{
		w.RangeID(): {{OriginalID: "1", ObjectType: platform.ObjectTypeTicket, Content: "help me"}},
	}}
	store := newFakeStore()
	vectors := &fakeVectors{}
	engine := newTestEngine(adapter, store, vectors)

	dir := t.TempDir()
	result, err := engine.Run(context.Background(), Params{
		TenantID: "acme", Platform: "freshdesk",
		StartDate: start, EndDate: now, DaysPerChunk: 30,
		BaseDir: dir,
	}, Signals{Cancel: make(chan struct{}), Pause: make(chan struct{}), Resume: make(chan struct{})}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TicketsCollected != 1 {
		t.Fatalf("expected 1 ticket collected, got %d", result.TicketsCollected)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserts))
	}
	if len(store.summaries) != 1 {
		t.Fatalf("expected summary refreshed for the collected ticket")
	}
	if len(vectors.points) != 1 {
		t.Fatalf("expected 1 vector point upserted, got %d", len(vectors.points))
	}
}

func TestEngine_Run_SkipsCompletedWindowsOnResume(t *testing.T) {
	now := time.Now()
	start := now.AddDate(0, 0, -5)
	w := window{Start: start, End: now}

	adapter := &fakeAdapter{tickets: map[string][]platform.Record{
		w.RangeID(): {{OriginalID: "1", ObjectType: platform.ObjectTypeTicket, Content: "help"}},
	}}
	store := newFakeStore()
	vectors := &fakeVectors{}
	engine := newTestEngine(adapter, store, vectors)
	dir := t.TempDir()

	params := Params{TenantID: "acme", Platform: "freshdesk", StartDate: start, EndDate: now, DaysPerChunk: 30, BaseDir: dir}
	sig := Signals{Cancel: make(chan struct{}), Pause: make(chan struct{}), Resume: make(chan struct{})}

	if _, err := engine.Run(context.Background(), params, sig, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if adapter.calls != 1 {
		t.Fatalf("expected 1 adapter call after first run, got %d", adapter.calls)
	}

	if _, err := engine.Run(context.Background(), params, sig, nil); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if adapter.calls != 1 {
		t.Fatalf("expected resumed run to skip the already-completed window, got %d total calls", adapter.calls)
	}
}

func TestEngine_Run_CancelStopsMidRun(t *testing.T) {
	now := time.Now()
	start := now.AddDate(0, 0, -65)

	adapter := &fakeAdapter{}
	store := newFakeStore()
	vectors := &fakeVectors{}
	engine := newTestEngine(adapter, store, vectors)
	dir := t.TempDir()

	cancel := make(chan struct{})
	close(cancel)
	result, err := engine.Run(context.Background(), Params{
		TenantID: "acme", Platform: "freshdesk", StartDate: start, EndDate: now, DaysPerChunk: 30, BaseDir: dir,
	}, Signals{Cancel: cancel, Pause: make(chan struct{}), Resume: make(chan struct{})}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Cancelled {
		t.Fatalf("expected Cancelled=true")
	}
}

func TestEngine_Run_CollectsKBWhenRequested(t *testing.T) {
	now := time.Now()
	adapter := &fakeAdapter{kb: []platform.Record{{OriginalID: "kb-1", ObjectType: platform.ObjectTypeArticle, Content: "how to reset password"}}}
	store := newFakeStore()
	vectors := &fakeVectors{}
	engine := newTestEngine(adapter, store, vectors)
	dir := t.TempDir()

	_, err := engine.Run(context.Background(), Params{
		TenantID: "acme", Platform: "freshdesk", StartDate: now, EndDate: now, DaysPerChunk: 30,
		IncludeKB: true, BaseDir: dir,
	}, Signals{Cancel: make(chan struct{}), Pause: make(chan struct{}), Resume: make(chan struct{})}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.upserts) != 1 || store.upserts[0].ObjectType != platform.ObjectTypeArticle {
		t.Fatalf("expected the KB article to be upserted, got %+v", store.upserts)
	}
}

func TestPacer_On429GrowsAndDecays(t *testing.T) {
	p := newPacer(0)
	first := p.On429()
	if first <= 0 {
		t.Fatalf("expected delay to grow after a 429, got %d", first)
	}
	second := p.On429()
	if second <= first {
		t.Fatalf("expected delay to grow further on consecutive 429s: %d -> %d", first, second)
	}
	decayed := p.OnSuccessfulWindow()
	if decayed >= second {
		t.Fatalf("expected a successful window to decay the delay: %d -> %d", second, decayed)
	}
}

func TestComputeWindows_SplitsIntoChunks(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	windows := computeWindows(start, end, 30)
	if len(windows) < 2 {
		t.Fatalf("expected multiple windows over a 2-month range, got %d", len(windows))
	}
	if !windows[0].Start.Equal(start) {
		t.Fatalf("expected first window to start at start")
	}
	if !windows[len(windows)-1].End.Equal(end) {
		t.Fatalf("expected last window to end at end")
	}
}
