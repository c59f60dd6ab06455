package jobs

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/ingestion"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/metrics"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantstore"
)

// EngineRunner is the slice of *ingestion.Engine the Manager depends on.
// *ingestion.Engine satisfies it without modification; tests substitute a
// scripted fake instead of wiring a real platform adapter/store/vector
// store just to exercise job lifecycle transitions.
type EngineRunner interface {
	Run(ctx context.Context, p ingestion.Params, sig ingestion.Signals, progressFn ingestion.ProgressCallback) (ingestion.Result, error)
}

// EngineFactory resolves the Ingestion Engine collaborators (platform
// adapter, tenant store, vector store) for one tenant/platform pair. The
// Manager stays ignorant of how those are constructed — that belongs to
// tenant-context resolution (C9) — so it only needs a function to call.
type EngineFactory func(ctx context.Context, tenantID, platformName string) (EngineRunner, error)

// RunRecorder persists a job's terminal state, satisfied by
// tenantstore.Store.RecordIngestRun. A narrow interface so tests can stub
// it without building a full tenantstore.Store.
type RunRecorder interface {
	RecordIngestRun(ctx context.Context, rec tenantstore.IngestRunRecord) error
}

// JobNotifier delivers an operational notification for a terminal job,
// satisfied by *slack.Service. Set via SetNotifier rather than threaded
// through NewManager so a disabled/nil Slack integration never needs a
// special case at construction time.
type JobNotifier interface {
	NotifyJobCompleted(ctx context.Context, input JobCompletedInput)
}

// JobCompletedInput is the terminal-job data passed to JobNotifier. Mirrors
// pkg/slack.JobCompletedInput field-for-field so the Manager doesn't need
// to import pkg/slack directly; the Slack service adapts this shape in its
// own NotifyJobCompleted.
type JobCompletedInput struct {
	JobID            string
	TenantID         string
	Platform         string
	Status           string
	TicketsCollected int
	ErrorMessage     string
}

// Manager is the Job Manager (C7): a process-singleton holding every
// known job in memory, per spec.md §4.7. Grounded on
// pkg/queue/pool.go's WorkerPool: fixed-size worker goroutine pool,
// each independently polling for claimable work, plus a background
// sweeper analogous to WorkerPool's orphan-detection loop.
type Manager struct {
	cfg           *config.JobConfig
	engineFactory EngineFactory
	recorder      RunRecorder
	notifier      JobNotifier

	mu          sync.RWMutex
	jobs        map[string]*job
	lastSuccess map[string]time.Time // "tenantID/platform" -> last successful completion

	runningCount int
	runningMu    sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
}

// NewManager builds a Manager. Start must be called before it processes
// any job.
func NewManager(cfg *config.JobConfig, engineFactory EngineFactory, recorder RunRecorder) *Manager {
	if cfg == nil {
		cfg = config.DefaultJobConfig()
	}
	return &Manager{
		cfg:           cfg,
		engineFactory: engineFactory,
		recorder:      recorder,
		jobs:          make(map[string]*job),
		lastSuccess:   make(map[string]time.Time),
		stopCh:        make(chan struct{}),
	}
}

// SetNotifier installs the operational-notification sink used by runJob's
// terminal branches. Must be called before Start to avoid a race with
// runJob reading it; a nil notifier (the zero value) leaves notifications
// disabled, matching pkg/slack.Service's own nil-safety.
func (m *Manager) SetNotifier(n JobNotifier) {
	m.notifier = n
}

// Start spawns WorkerCount worker goroutines and the GC sweeper. Safe to
// call once; subsequent calls are no-ops.
func (m *Manager) Start(ctx context.Context) {
	if m.started {
		return
	}
	m.started = true

	for i := 0; i < m.cfg.WorkerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(ctx, i)
	}

	m.wg.Add(1)
	go m.runGC(ctx)
}

// Stop signals every worker and the sweeper to exit and waits for them.
// Running jobs are left to tear down on their own next checkpoint; Stop
// does not itself cancel them.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func cooldownKey(tenantID, platformName string) string { return tenantID + "/" + platformName }

// CreateJob enqueues a PENDING job, enforcing spec.md invariant 3 (cooldown
// window) unless ForceRebuild is set. Invariant 4 (concurrency cap) is
// enforced at claim time by the workers, not here — a tenant may always
// queue a job even while the pool is at capacity.
func (m *Manager) CreateJob(ctx context.Context, p CreateParams) (*View, error) {
	key := cooldownKey(p.TenantID, p.Platform)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !p.ForceRebuild {
		if last, ok := m.lastSuccess[key]; ok && time.Since(last) < m.cfg.CooldownWindow {
			return nil, ErrCooldownActive
		}
	}

	id := uuid.New().String()
	j := newJob(id, p.TenantID, p.Platform, p.Params)
	m.jobs[id] = j

	view := j.snapshot()
	return &view, nil
}

// StartJob eagerly claims a PENDING job and launches it immediately,
// rather than waiting for a worker's next poll tick, per spec.md §4.7's
// `start_job` operation. If the pool is already at its concurrency cap
// (invariant 4), the job is left PENDING for a worker to pick up once
// capacity frees, and ErrAtCapacity is returned so the caller can surface
// that to the client instead of assuming the job is running.
func (m *Manager) StartJob(ctx context.Context, jobID string) (*View, error) {
	m.mu.RLock()
	j, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}

	m.runningMu.Lock()
	if m.runningCount >= m.cfg.MaxConcurrentJobs {
		m.runningMu.Unlock()
		return nil, ErrAtCapacity
	}
	if !j.markRunning() {
		m.runningMu.Unlock()
		view := j.snapshot()
		return &view, ErrInvalidTransition
	}
	m.runningCount++
	m.runningMu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runJob(runCtx, j)
	}()

	view := j.snapshot()
	return &view, nil
}

// GetJob returns a snapshot of one job.
func (m *Manager) GetJob(jobID string) (*View, error) {
	m.mu.RLock()
	j, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	view := j.snapshot()
	return &view, nil
}

// ListJobs returns job snapshots matching f, newest first.
func (m *Manager) ListJobs(f ListFilter) []View {
	m.mu.RLock()
	views := make([]View, 0, len(m.jobs))
	for _, j := range m.jobs {
		v := j.snapshot()
		if f.TenantID != "" && v.TenantID != f.TenantID {
			continue
		}
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		views = append(views, v)
	}
	m.mu.RUnlock()

	sortViewsNewestFirst(views)

	if f.Offset > 0 {
		if f.Offset >= len(views) {
			return []View{}
		}
		views = views[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(views) {
		views = views[:f.Limit]
	}
	return views
}

func sortViewsNewestFirst(views []View) {
	for i := 1; i < len(views); i++ {
		for j := i; j > 0 && views[j].CreatedAt.After(views[j-1].CreatedAt); j-- {
			views[j], views[j-1] = views[j-1], views[j]
		}
	}
}

// Control applies a pause/resume/cancel action to a running job, per
// spec.md §6.1's `/ingest/jobs/{id}/control` endpoint.
func (m *Manager) Control(jobID string, action ControlAction) error {
	m.mu.RLock()
	j, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}

	switch action {
	case ActionPause:
		return j.pause()
	case ActionResume:
		return j.resume()
	case ActionCancel:
		return j.cancel()
	default:
		return apperrors.New(apperrors.KindValidation, "jobs", "unknown control action").WithDetail("action", string(action))
	}
}

// GetMetrics returns a status-count snapshot, optionally scoped to one
// tenant, per spec.md §4.7's `get_metrics(tenant_id?)`.
func (m *Manager) GetMetrics(tenantID string) Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var metrics Metrics
	for _, j := range m.jobs {
		if tenantID != "" && j.tenantID != tenantID {
			continue
		}
		switch j.currentStatus() {
		case StatusPending:
			metrics.Pending++
		case StatusRunning:
			metrics.Running++
		case StatusPaused:
			metrics.Paused++
		case StatusCompleted:
			metrics.Completed++
		case StatusFailed:
			metrics.Failed++
		case StatusCancelled:
			metrics.Cancelled++
		}
	}
	return metrics
}

// runWorker is one worker's poll loop, modeled on pkg/queue/worker.go's
// run/pollAndProcess split.
func (m *Manager) runWorker(ctx context.Context, idx int) {
	defer m.wg.Done()
	log := slog.With("component", "jobs", "worker", idx)

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		j, ok := m.claimNext()
		if !ok {
			m.sleep(m.pollInterval())
			continue
		}

		log.Info("job claimed", "job_id", j.id, "tenant_id", j.tenantID, "platform", j.platform)
		m.runJob(ctx, j)
	}
}

func (m *Manager) sleep(d time.Duration) {
	select {
	case <-m.stopCh:
	case <-time.After(d):
	}
}

func (m *Manager) pollInterval() time.Duration {
	base := m.cfg.PollInterval
	jitter := m.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// claimNext finds the oldest PENDING job and transitions it to RUNNING,
// enforcing spec.md invariant 4 (global concurrency cap) first.
func (m *Manager) claimNext() (*job, bool) {
	m.runningMu.Lock()
	if m.runningCount >= m.cfg.MaxConcurrentJobs {
		m.runningMu.Unlock()
		return nil, false
	}
	m.runningMu.Unlock()

	m.mu.RLock()
	var oldest *job
	for _, j := range m.jobs {
		if j.currentStatus() != StatusPending {
			continue
		}
		if oldest == nil || j.createdAt.Before(oldest.createdAt) {
			oldest = j
		}
	}
	m.mu.RUnlock()

	if oldest == nil {
		return nil, false
	}

	m.runningMu.Lock()
	if m.runningCount >= m.cfg.MaxConcurrentJobs {
		m.runningMu.Unlock()
		return nil, false
	}
	if !oldest.markRunning() {
		m.runningMu.Unlock()
		return nil, false
	}
	m.runningCount++
	m.runningMu.Unlock()

	return oldest, true
}

// runJob drives one job's engine run to completion and records the
// terminal outcome.
func (m *Manager) runJob(ctx context.Context, j *job) {
	defer func() {
		m.runningMu.Lock()
		m.runningCount--
		m.runningMu.Unlock()
	}()

	log := slog.With("component", "jobs", "job_id", j.id, "tenant_id", j.tenantID)
	timer := metrics.NewTimer()

	engine, err := m.engineFactory(ctx, j.tenantID, j.platform)
	if err != nil {
		j.finish(StatusFailed, ingestion.Result{}, err)
		m.record(ctx, j)
		m.notify(ctx, j)
		metrics.IngestJobsTotal.WithLabelValues(string(StatusFailed)).Inc()
		timer.ObserveDuration(metrics.IngestJobDuration)
		log.Error("failed to resolve engine", "error", err)
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, m.cfg.JobTimeout)
	defer cancel()

	result, err := engine.Run(runCtx, j.params, j.signals(), j.reportProgress)

	var finalStatus Status
	switch {
	case err != nil:
		j.finish(StatusFailed, result, err)
		finalStatus = StatusFailed
		log.Error("job failed", "error", err)
	case result.Cancelled:
		j.finish(StatusCancelled, result, nil)
		finalStatus = StatusCancelled
		log.Info("job cancelled")
	default:
		j.finish(StatusCompleted, result, nil)
		finalStatus = StatusCompleted
		m.mu.Lock()
		m.lastSuccess[cooldownKey(j.tenantID, j.platform)] = time.Now()
		m.mu.Unlock()
		metrics.TicketsIngestedTotal.WithLabelValues(j.tenantID, j.platform).Add(float64(result.TicketsCollected))
		log.Info("job completed", "tickets_collected", result.TicketsCollected)
	}
	metrics.IngestJobsTotal.WithLabelValues(string(finalStatus)).Inc()
	timer.ObserveDuration(metrics.IngestJobDuration)

	m.record(ctx, j)
	m.notify(ctx, j)
}

// notify reports a job's terminal state via JobNotifier, best-effort: a
// nil notifier (Slack disabled) or a delivery failure never affects the
// job's recorded outcome.
func (m *Manager) notify(ctx context.Context, j *job) {
	if m.notifier == nil {
		return
	}
	v := j.snapshot()
	m.notifier.NotifyJobCompleted(context.WithoutCancel(ctx), JobCompletedInput{
		JobID:            v.ID,
		TenantID:         v.TenantID,
		Platform:         v.Platform,
		Status:           string(v.Status),
		TicketsCollected: v.TicketsCollected,
		ErrorMessage:     v.ErrorMessage,
	})
}

// record persists the job's terminal state via RunRecorder, best-effort:
// a recording failure is logged but never reopens or retries the job.
func (m *Manager) record(ctx context.Context, j *job) {
	if m.recorder == nil {
		return
	}
	v := j.snapshot()
	rec := tenantstore.IngestRunRecord{
		JobID:            v.ID,
		TenantID:         v.TenantID,
		Platform:         v.Platform,
		Status:           string(v.Status),
		StartedAt:        v.StartedAt,
		CompletedAt:      v.CompletedAt,
		TicketsProcessed: v.TicketsCollected,
		ErrorMessage:     v.ErrorMessage,
	}
	if err := m.recorder.RecordIngestRun(context.WithoutCancel(ctx), rec); err != nil {
		slog.Error("failed to persist ingest run record", "job_id", v.ID, "error", err)
	}
}

// runGC periodically evicts terminal jobs older than GCInterval, per
// spec.md §4.7: "Completed/failed/cancelled jobs older than 24h are
// garbage-collected by a background sweeper" (GCInterval defaults to 24h,
// serving as both the sweep cadence and the retention age). Modeled on
// pkg/queue/orphan.go's runOrphanDetection loop.
func (m *Manager) runGC(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.cfg.GCInterval)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, j := range m.jobs {
		v := j.snapshot()
		if v.Status.terminal() && v.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Info("garbage collected terminal jobs", "component", "jobs", "count", evicted)
	}
}
