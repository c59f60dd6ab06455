package config

import "time"

// RetentionConfig controls soft-delete recoverability and cleanup behavior.
type RetentionConfig struct {
	// SoftDeleteRetentionDays is how many days a soft-purged tenant's
	// integrated objects remain recoverable before the reaper hard-deletes
	// them, per spec.md §4.2. Vectors are deleted at purge time and are not
	// covered by this window.
	SoftDeleteRetentionDays int `yaml:"soft_delete_retention_days"`

	// ProgressLogTTL is the maximum age of a completed job's progress_logs
	// rows before the cleanup loop removes them.
	ProgressLogTTL time.Duration `yaml:"progress_log_ttl"`

	// CleanupInterval is how often the retention reaper runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		SoftDeleteRetentionDays: 30,
		ProgressLogTTL:          7 * 24 * time.Hour,
		CleanupInterval:         24 * time.Hour,
	}
}
