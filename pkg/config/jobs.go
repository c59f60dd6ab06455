package config

import "time"

// JobConfig contains Job Manager concurrency and lifecycle configuration.
// Adapted from the original session queue/worker pool configuration:
// sessions become ingestion jobs, orphan detection becomes stale-job GC.
type JobConfig struct {
	// WorkerCount is the number of worker goroutines per replica/pod, each
	// independently polling and claiming pending jobs.
	WorkerCount int `yaml:"worker_count"`

	// MaxConcurrentJobs is the limit of concurrently RUNNING ingestion jobs
	// in this process, enforced against the in-memory job map.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`

	// PollInterval is the base interval for checking pending jobs.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// JobTimeout is the maximum time a single job may run before being
	// forced to FAILED.
	JobTimeout time.Duration `yaml:"job_timeout"`

	// GracefulShutdownTimeout is validated at load time but is not read:
	// Manager.Stop waits for running jobs without a time limit.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// CooldownWindow is the minimum time between two ingestion runs for the
	// same tenant+platform, unless the request sets force_rebuild.
	CooldownWindow time.Duration `yaml:"cooldown_window"`

	// GCInterval is both how often the terminal-job sweep runs and how old a
	// completed/failed/cancelled job must be before that sweep evicts it.
	GCInterval time.Duration `yaml:"gc_interval"`

	// StaleJobThreshold is validated at load time (it must exceed
	// HeartbeatInterval) but is not read by the Job Manager: jobs carry no
	// heartbeat, and the GC sweep only evicts terminal jobs.
	StaleJobThreshold time.Duration `yaml:"stale_job_threshold"`

	// HeartbeatInterval is validated at load time but is not read; no
	// worker records a heartbeat.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// DataDir is the root directory the Ingestion Engine (C6) writes
	// raw_data chunks and progress.json under, one subdirectory per
	// tenant/platform.
	DataDir string `yaml:"data_dir"`
}

// DefaultJobConfig returns the built-in Job Manager defaults, per spec.md §4.7
// (concurrency cap of 2, 5 minute cooldown, 24h GC sweep).
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		WorkerCount:             2,
		MaxConcurrentJobs:       2,
		PollInterval:            2 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		JobTimeout:              6 * time.Hour,
		GracefulShutdownTimeout: 2 * time.Minute,
		CooldownWindow:          5 * time.Minute,
		GCInterval:              24 * time.Hour,
		StaleJobThreshold:       30 * time.Minute,
		HeartbeatInterval:       1 * time.Minute,
		DataDir:                 "/var/lib/tarsy-ingest/data",
	}
}
