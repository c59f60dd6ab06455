package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/ingestion"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantstore"
)

// fakeRecorder implements RunRecorder, capturing every terminal record.
type fakeRecorder struct {
	mu      sync.Mutex
	records []tenantstore.IngestRunRecord
}

func (f *fakeRecorder) RecordIngestRun(ctx context.Context, rec tenantstore.IngestRunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// fakeNotifier implements JobNotifier, capturing every notified job.
type fakeNotifier struct {
	mu     sync.Mutex
	inputs []JobCompletedInput
}

func (f *fakeNotifier) NotifyJobCompleted(ctx context.Context, input JobCompletedInput) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

// scriptedEngine is a fake EngineRunner whose Run behavior is supplied by
// the test, so job lifecycle tests don't need a real platform adapter,
// tenant store, or vector store.
type scriptedEngine struct {
	run func(ctx context.Context, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error)
}

func (s *scriptedEngine) Run(ctx context.Context, p ingestion.Params, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error) {
	return s.run(ctx, sig, progressFn)
}

// scriptedEngineFactory returns an EngineFactory whose engines all run the
// given scripted behavior.
func scriptedEngineFactory(run func(ctx context.Context, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error)) EngineFactory {
	return func(ctx context.Context, tenantID, platformName string) (EngineRunner, error) {
		return &scriptedEngine{run: run}, nil
	}
}

func testConfig() *config.JobConfig {
	cfg := config.DefaultJobConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.PollIntervalJitter = 0
	cfg.JobTimeout = time.Second
	cfg.CooldownWindow = 50 * time.Millisecond
	cfg.GCInterval = 10 * time.Millisecond
	cfg.MaxConcurrentJobs = 1
	cfg.WorkerCount = 1
	return cfg
}

func waitForStatus(t *testing.T, m *Manager, jobID string, want Status, timeout time.Duration) View {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		v, err := m.GetJob(jobID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if v.Status == want {
			return *v
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach status %s in time", jobID, want)
	return View{}
}

func TestManager_CreateAndRunJob_Completes(t *testing.T) {
	recorder := &fakeRecorder{}
	factory := scriptedEngineFactory(func(ctx context.Context, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error) {
		return ingestion.Result{TicketsCollected: 5, WindowsProcessed: 1}, nil
	})
	m := NewManager(testConfig(), factory, recorder)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	view, err := m.CreateJob(context.Background(), CreateParams{TenantID: "acme", Platform: "freshdesk"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	final := waitForStatus(t, m, view.ID, StatusCompleted, time.Second)
	if final.TicketsCollected != 5 {
		t.Fatalf("expected 5 tickets collected, got %d", final.TicketsCollected)
	}
	if recorder.count() != 1 {
		t.Fatalf("expected 1 recorded run, got %d", recorder.count())
	}
}

func TestManager_RunJob_NotifiesOnCompletion(t *testing.T) {
	notifier := &fakeNotifier{}
	factory := scriptedEngineFactory(func(ctx context.Context, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error) {
		return ingestion.Result{TicketsCollected: 7}, nil
	})
	m := NewManager(testConfig(), factory, &fakeRecorder{})
	m.SetNotifier(notifier)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	view, err := m.CreateJob(context.Background(), CreateParams{TenantID: "acme", Platform: "freshdesk"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	waitForStatus(t, m, view.ID, StatusCompleted, time.Second)

	if notifier.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", notifier.count())
	}
	if notifier.inputs[0].TicketsCollected != 7 {
		t.Fatalf("expected 7 tickets in notification, got %d", notifier.inputs[0].TicketsCollected)
	}
}

func TestManager_RunJob_NilNotifierIsNoop(t *testing.T) {
	factory := scriptedEngineFactory(func(ctx context.Context, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error) {
		return ingestion.Result{TicketsCollected: 1}, nil
	})
	m := NewManager(testConfig(), factory, &fakeRecorder{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	view, err := m.CreateJob(context.Background(), CreateParams{TenantID: "acme", Platform: "freshdesk"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	// Must not panic with no notifier installed.
	waitForStatus(t, m, view.ID, StatusCompleted, time.Second)
}

func TestManager_CreateJob_RejectsWithinCooldown(t *testing.T) {
	recorder := &fakeRecorder{}
	factory := scriptedEngineFactory(func(ctx context.Context, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error) {
		return ingestion.Result{TicketsCollected: 1}, nil
	})
	cfg := testConfig()
	cfg.CooldownWindow = time.Hour
	m := NewManager(cfg, factory, recorder)
	ctx := context.Background()
	m.Start(ctx)
	defer m.Stop()

	view, err := m.CreateJob(ctx, CreateParams{TenantID: "acme", Platform: "freshdesk"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	waitForStatus(t, m, view.ID, StatusCompleted, time.Second)

	if _, err := m.CreateJob(ctx, CreateParams{TenantID: "acme", Platform: "freshdesk"}); err != ErrCooldownActive {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}

	if _, err := m.CreateJob(ctx, CreateParams{TenantID: "acme", Platform: "freshdesk", ForceRebuild: true}); err != nil {
		t.Fatalf("expected ForceRebuild to bypass cooldown, got %v", err)
	}
}

func TestManager_ConcurrencyCap_QueuesExtraJobs(t *testing.T) {
	block := make(chan struct{})
	recorder := &fakeRecorder{}
	factory := scriptedEngineFactory(func(ctx context.Context, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error) {
		<-block
		return ingestion.Result{TicketsCollected: 1}, nil
	})
	cfg := testConfig()
	cfg.MaxConcurrentJobs = 1
	cfg.WorkerCount = 1
	m := NewManager(cfg, factory, recorder)
	ctx := context.Background()
	m.Start(ctx)
	defer m.Stop()

	first, err := m.CreateJob(ctx, CreateParams{TenantID: "acme", Platform: "freshdesk"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	waitForStatus(t, m, first.ID, StatusRunning, time.Second)

	second, err := m.CreateJob(ctx, CreateParams{TenantID: "other", Platform: "freshdesk"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	v, err := m.GetJob(second.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if v.Status != StatusPending {
		t.Fatalf("expected second job to remain pending while at capacity, got %s", v.Status)
	}

	close(block)
	waitForStatus(t, m, first.ID, StatusCompleted, time.Second)
	waitForStatus(t, m, second.ID, StatusCompleted, time.Second)
}

func TestManager_Control_PauseResume(t *testing.T) {
	recorder := &fakeRecorder{}
	factory := scriptedEngineFactory(func(ctx context.Context, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error) {
		select {
		case <-sig.Pause:
			<-sig.Resume
		case <-sig.Cancel:
			return ingestion.Result{Cancelled: true}, nil
		}
		return ingestion.Result{TicketsCollected: 2}, nil
	})
	m := NewManager(testConfig(), factory, recorder)
	ctx := context.Background()
	m.Start(ctx)
	defer m.Stop()

	view, err := m.CreateJob(ctx, CreateParams{TenantID: "acme", Platform: "freshdesk"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	waitForStatus(t, m, view.ID, StatusRunning, time.Second)

	if err := m.Control(view.ID, ActionPause); err != nil {
		t.Fatalf("pause: %v", err)
	}
	waitForStatus(t, m, view.ID, StatusPaused, time.Second)

	if err := m.Control(view.ID, ActionResume); err != nil {
		t.Fatalf("resume: %v", err)
	}
	waitForStatus(t, m, view.ID, StatusCompleted, time.Second)
}

func TestManager_Control_CancelPendingJob(t *testing.T) {
	recorder := &fakeRecorder{}
	factory := scriptedEngineFactory(func(ctx context.Context, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error) {
		return ingestion.Result{}, nil
	})
	cfg := testConfig()
	cfg.MaxConcurrentJobs = 0 // nothing can ever claim a job
	m := NewManager(cfg, factory, recorder)
	ctx := context.Background()
	m.Start(ctx)
	defer m.Stop()

	view, err := m.CreateJob(ctx, CreateParams{TenantID: "acme", Platform: "freshdesk"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if err := m.Control(view.ID, ActionCancel); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	v, err := m.GetJob(view.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if v.Status != StatusCancelled {
		t.Fatalf("expected pending job to cancel immediately, got %s", v.Status)
	}
}

func TestManager_GetMetrics_CountsByStatus(t *testing.T) {
	recorder := &fakeRecorder{}
	factory := scriptedEngineFactory(func(ctx context.Context, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error) {
		return ingestion.Result{TicketsCollected: 1}, nil
	})
	cfg := testConfig()
	cfg.MaxConcurrentJobs = 0
	m := NewManager(cfg, factory, recorder)
	ctx := context.Background()
	m.Start(ctx)
	defer m.Stop()

	if _, err := m.CreateJob(ctx, CreateParams{TenantID: "acme", Platform: "freshdesk"}); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := m.CreateJob(ctx, CreateParams{TenantID: "other", Platform: "freshdesk"}); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	metrics := m.GetMetrics("")
	if metrics.Pending != 2 {
		t.Fatalf("expected 2 pending jobs, got %d", metrics.Pending)
	}
	scoped := m.GetMetrics("acme")
	if scoped.Pending != 1 {
		t.Fatalf("expected 1 pending job scoped to acme, got %d", scoped.Pending)
	}
}

func TestManager_GetJob_NotFound(t *testing.T) {
	m := NewManager(testConfig(), scriptedEngineFactory(nil), nil)
	if _, err := m.GetJob("does-not-exist"); err != ErrJobNotFound {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestManager_ListJobs_FiltersAndPaginates(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentJobs = 0
	m := NewManager(cfg, scriptedEngineFactory(nil), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.CreateJob(ctx, CreateParams{TenantID: "acme", Platform: "freshdesk"}); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	all := m.ListJobs(ListFilter{TenantID: "acme"})
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}
	page := m.ListJobs(ListFilter{TenantID: "acme", Limit: 2})
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	if !page[0].CreatedAt.After(page[1].CreatedAt) && page[0].CreatedAt != page[1].CreatedAt {
		t.Fatalf("expected newest-first ordering")
	}
}
