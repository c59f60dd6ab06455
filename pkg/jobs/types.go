// Package jobs implements the Job Manager (C7): a process-singleton owning
// in-memory ingestion jobs, a bounded worker pool that drives each one
// through the Ingestion Engine (C6), and the cooldown/concurrency/GC
// invariants from spec.md §3.3 and §4.7. Grounded directly on
// `pkg/queue`'s WorkerPool/Worker pause/cancel registry pattern,
// generalized from alert-session workers to ingestion-job workers: the
// job itself lives only in this package's map rather than a DB table,
// since spec.md §4.7 describes the Job Manager as "process-singleton that
// owns jobs: map[job_id → IngestJob]."
package jobs

import (
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/ingestion"
)

// Status is one state in the job state machine from spec.md §4.7.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// terminal reports whether status is one a job never leaves.
func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Sentinel errors for Manager operations, classified per spec.md §7's
// error taxonomy so the eventual HTTP boundary (C-API) can map them to the
// status codes spec.md §6.1 names without re-deriving the classification.
var (
	ErrJobNotFound = apperrors.New(apperrors.KindNotFound, "jobs", "job not found")

	ErrCooldownActive = apperrors.New(apperrors.KindRateLimit, "jobs",
		"tenant/platform completed an ingestion run within the cooldown window")

	ErrAtCapacity = apperrors.New(apperrors.KindRateLimit, "jobs",
		"maximum concurrent ingestion jobs already running")

	ErrInvalidTransition = apperrors.New(apperrors.KindValidation, "jobs", "invalid job state transition")
)

// CreateParams is the input to Manager.CreateJob.
type CreateParams struct {
	TenantID     string
	Platform     string
	Params       ingestion.Params
	ForceRebuild bool // bypasses the cooldown window, per spec.md invariant 3
}

// ControlAction is one action accepted by the `/ingest/jobs/{id}/control`
// endpoint body, per spec.md §6.1.
type ControlAction string

const (
	ActionPause  ControlAction = "pause"
	ActionResume ControlAction = "resume"
	ActionCancel ControlAction = "cancel"
)

// View is a point-in-time, concurrency-safe snapshot of a job, returned by
// GetJob/ListJobs instead of the live *Job so callers never race its
// internal mutex.
type View struct {
	ID               string
	TenantID         string
	Platform         string
	Status           Status
	CreatedAt        time.Time
	StartedAt        time.Time
	CompletedAt      time.Time
	TicketsCollected int
	WindowsProcessed int
	ErrorMessage     string
	ProgressMessage  string
	ProgressPercent  float64
}

// ListFilter narrows Manager.ListJobs, per spec.md §4.7's
// `list_jobs(tenant_id, status, limit, offset)` operation.
type ListFilter struct {
	TenantID string // empty matches every tenant
	Status   Status // empty matches every status
	Limit    int    // 0 means unlimited
	Offset   int
}

// Metrics is the aggregate snapshot returned by Manager.GetMetrics, per
// spec.md §4.7's `get_metrics(tenant_id?)` operation.
type Metrics struct {
	Pending   int
	Running   int
	Paused    int
	Completed int
	Failed    int
	Cancelled int
}
