// Package retention implements the retention reaper spec.md §4.2
// describes: soft-deleted integrated objects stay recoverable for
// Retention.SoftDeleteRetentionDays (30 by default), after which this
// service hard-deletes them; stale progress_logs rows are swept on the
// same loop.
//
// Adapted from pkg/cleanup/service.go (pre-rewrite)'s Service: same
// Start/Stop/run ticker-loop shape, generalized from a single-tenant
// session/event store to every tenant tenantstore.Manager knows about.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantstore"
)

// Service periodically reaps what the retention window has expired,
// across every known tenant. All operations are idempotent and safe to
// run from multiple processes.
type Service struct {
	config *config.RetentionConfig
	stores *tenantstore.Manager

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new retention reaper service.
func NewService(cfg *config.RetentionConfig, stores *tenantstore.Manager) *Service {
	return &Service{config: cfg, stores: stores}
}

// Start launches the background reaper loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Retention reaper started",
		"soft_delete_retention_days", s.config.SoftDeleteRetentionDays,
		"progress_log_ttl", s.config.ProgressLogTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the reaper loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Retention reaper stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	tenants, err := s.stores.ListTenants(ctx)
	if err != nil {
		slog.Error("Retention: failed to list tenants", "error", err)
		return
	}

	for _, tenantID := range tenants {
		s.reapTenant(ctx, tenantID)
	}
}

func (s *Service) reapTenant(ctx context.Context, tenantID string) {
	store, err := s.stores.Get(ctx, tenantID)
	if err != nil {
		slog.Error("Retention: failed to open tenant store", "tenant_id", tenantID, "error", err)
		return
	}

	objectsRemoved, logsRemoved, err := store.Reap(ctx, s.config.SoftDeleteRetentionDays, s.config.ProgressLogTTL)
	if err != nil {
		slog.Error("Retention: reap failed", "tenant_id", tenantID, "error", err)
		return
	}
	if objectsRemoved > 0 || logsRemoved > 0 {
		slog.Info("Retention: reaped expired rows",
			"tenant_id", tenantID,
			"objects_removed", objectsRemoved,
			"progress_logs_removed", logsRemoved)
	}
}
