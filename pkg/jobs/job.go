package jobs

import (
	"sync"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/ingestion"
)

// job is one ingestion run's full in-memory state, including the
// cancel/pause signal channels wired into the Ingestion Engine (C6) per
// spec.md §4.7: "each running job owns two signal channels (cancel,
// pause) wired into C6." Modeled after pkg/queue/pool.go's
// activeSessions cancel registry, generalized to also carry a pause
// channel since alert sessions have no pause/resume concept.
type job struct {
	id       string
	tenantID string
	platform string
	params   ingestion.Params

	createdAt time.Time

	mu          sync.Mutex
	status      Status
	startedAt   time.Time
	completedAt time.Time
	ticketsDone int
	windowsDone int
	errMessage  string
	progressMsg string
	progressPct float64

	cancelCh chan struct{}
	pauseCh  chan struct{}
	resumeCh chan struct{}
	// paused tracks whether pauseCh has already been signalled, so pauseCh
	// is never closed twice.
	paused bool
}

func newJob(id, tenantID, platformName string, params ingestion.Params) *job {
	return &job{
		id:        id,
		tenantID:  tenantID,
		platform:  platformName,
		params:    params,
		createdAt: time.Now(),
		status:    StatusPending,
		cancelCh:  make(chan struct{}),
		pauseCh:   make(chan struct{}),
		resumeCh:  make(chan struct{}),
	}
}

// signals builds the ingestion.Signals view C6's checkpoint function reads.
func (j *job) signals() ingestion.Signals {
	return ingestion.Signals{Cancel: j.cancelCh, Pause: j.pauseCh, Resume: j.resumeCh}
}

func (j *job) snapshot() View {
	j.mu.Lock()
	defer j.mu.Unlock()
	return View{
		ID:               j.id,
		TenantID:         j.tenantID,
		Platform:         j.platform,
		Status:           j.status,
		CreatedAt:        j.createdAt,
		StartedAt:        j.startedAt,
		CompletedAt:      j.completedAt,
		TicketsCollected: j.ticketsDone,
		WindowsProcessed: j.windowsDone,
		ErrorMessage:     j.errMessage,
		ProgressMessage:  j.progressMsg,
		ProgressPercent:  j.progressPct,
	}
}

// reportProgress records the latest message/percentage from the engine's
// ProgressCallback, so GetJob/progress polling reflects a RUNNING job's
// live state rather than only its terminal counts.
func (j *job) reportProgress(message string, percentage float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progressMsg = message
	j.progressPct = percentage
}

func (j *job) currentStatus() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// markRunning transitions PENDING → RUNNING. Returns false if the job was
// not PENDING (already claimed, or cancelled before a worker got to it).
func (j *job) markRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusPending {
		return false
	}
	j.status = StatusRunning
	j.startedAt = time.Now()
	return true
}

// pause transitions RUNNING → PAUSED and signals the engine's pause
// channel. Returns ErrInvalidTransition unless the job is RUNNING.
func (j *job) pause() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusRunning {
		return ErrInvalidTransition
	}
	if !j.paused {
		close(j.pauseCh)
		j.paused = true
	}
	j.status = StatusPaused
	return nil
}

// resume transitions PAUSED → RUNNING and signals the engine's resume
// channel. cancelCh aside, the engine captured this job's channels once at
// Run start, so pauseCh/resumeCh are replaced here only to keep pause()'s
// "close a fresh channel" precondition intact for bookkeeping; a given
// engine run only observes one pause/resume cycle's worth of signalling.
func (j *job) resume() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusPaused {
		return ErrInvalidTransition
	}
	close(j.resumeCh)
	j.resumeCh = make(chan struct{})
	j.pauseCh = make(chan struct{})
	j.paused = false
	j.status = StatusRunning
	return nil
}

// cancel signals cancelCh at most once for a job that is not yet terminal.
// PENDING jobs are cancelled outright (a worker's markRunning will then
// fail and skip them); RUNNING/PAUSED jobs tear down at their next
// checkpoint. Returns ErrInvalidTransition once the job is terminal.
func (j *job) cancel() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.terminal() {
		return ErrInvalidTransition
	}
	select {
	case <-j.cancelCh:
		// already signalled
	default:
		close(j.cancelCh)
	}
	if j.status == StatusPending {
		j.status = StatusCancelled
		j.completedAt = time.Now()
	}
	return nil
}

// finish records a terminal outcome once the engine run returns.
func (j *job) finish(status Status, result ingestion.Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	j.completedAt = time.Now()
	j.ticketsDone = result.TicketsCollected
	j.windowsDone = result.WindowsProcessed
	if err != nil {
		j.errMessage = err.Error()
	}
}
