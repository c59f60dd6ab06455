// Package tenantstore implements the Tenant Store (C2): the per-tenant
// relational store for ingested tickets, conversations, articles and
// attachments, plus ingestion progress logs. Two backends satisfy the same
// Store contract, per spec.md §4.2: a central Postgres backend with one
// schema per tenant, and an embedded SQLite backend with one file per
// tenant. Callers never branch on which backend is active.
package tenantstore

import (
	"context"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/ent"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
)

// Attachment metadata keys. The Ingestion Engine (C6) sets these on the
// platform.Record.Metadata map it passes to UpsertIntegratedObject for any
// record whose ObjectType is platform.ObjectTypeAttachment; GetAttachmentsForTicket
// depends on them being present to reconstruct the ticket/conversation
// ownership union described in spec.md §4.2.
const (
	MetaParentType     = "parent_type"     // "ticket" or "conversation"
	MetaParentID       = "parent_id"       // original id of the ticket or conversation
	MetaConversationID = "conversation_id" // set only when parent_type is "conversation"
)

// Store is the per-tenant relational store contract. Every method already
// operates within one tenant's scope (either a dedicated schema or a
// dedicated file); tenantID/platformName are still threaded through
// explicitly so the defensive tenant-isolation filter in every predicate
// survives a future move to a shared-schema deployment.
type Store interface {
	// UpsertIntegratedObject inserts or updates the object identified by
	// (tenantID, platformName, rec.ObjectType, rec.OriginalID).
	UpsertIntegratedObject(ctx context.Context, tenantID, platformName string, rec platform.Record) (*ent.IntegratedObject, error)

	// GetByType returns every non-deleted object of objectType for the
	// tenant/platform, newest created_at first.
	GetByType(ctx context.Context, tenantID, platformName string, objectType platform.ObjectType) ([]*ent.IntegratedObject, error)

	// GetAttachmentsForTicket returns attachments parented directly on the
	// ticket, unioned with attachments parented on any conversation that
	// belongs to the ticket.
	GetAttachmentsForTicket(ctx context.Context, tenantID, platformName, ticketOriginalID string) ([]*ent.IntegratedObject, error)

	// UpdateSummary persists the summarizer's output (C5) for one object.
	UpdateSummary(ctx context.Context, id int, summary string) (*ent.IntegratedObject, error)

	// SaveQualityScore records one batch-mode quality evaluation (C5) for
	// audit and for the retry-threshold decision history.
	SaveQualityScore(ctx context.Context, score QualityScoreRecord) error

	// RecordIngestRun persists a terminal-state ingestion job (C7) as a
	// durable audit row, once the in-memory job itself is eligible for GC.
	RecordIngestRun(ctx context.Context, rec IngestRunRecord) error

	// LogProgress upserts a job's progress at a given step, identified by
	// the unique (job_id, tenant_id, step) triple.
	LogProgress(ctx context.Context, jobID, tenantID string, step, totalSteps int, message string, percentage float64) error

	// GetProgress returns every logged step for a job, in step order.
	GetProgress(ctx context.Context, jobID string) ([]*ent.ProgressLog, error)

	// Clear removes objects for the tenant (optionally scoped to
	// platformName). hard=false sets deleted_at (soft delete, recoverable
	// for Retention.SoftDeleteRetentionDays); hard=true removes the rows.
	// Returns the number of objects affected.
	Clear(ctx context.Context, tenantID, platformName string, hard bool) (int, error)

	// Restore clears deleted_at on every row whose deleted_at is within
	// the retention window (now - within), undoing a prior soft Clear.
	Restore(ctx context.Context, tenantID string, within time.Duration) (int, error)

	// Reap permanently removes what the retention window has expired:
	// integrated objects soft-deleted more than retentionDays ago (past
	// Restore's reach), and progress_logs rows older than progressLogTTL.
	// Returns the count of each kind removed.
	Reap(ctx context.Context, retentionDays int, progressLogTTL time.Duration) (objectsRemoved, progressLogsRemoved int, err error)

	// Migrate provisions this backend's schema objects. A no-op once
	// already applied.
	Migrate(ctx context.Context) error

	// Close releases the backend's underlying connection(s).
	Close() error
}

// QualityScoreRecord is one summarizer quality evaluation, mirroring
// ent/schema/summaryqualityscore.go's fields.
type QualityScoreRecord struct {
	TenantID             string
	Platform             string
	OriginalID           string
	OverallScore         float64
	StructureScore       float64
	CompletionInfoScore  float64
	ContentFidelityScore float64
	LanguageQualityScore float64
	LengthScore          float64
	Attempt              int
	Passed               bool
}

// IngestRunRecord is one terminal-state ingestion job, mirroring
// ent/schema/ingestrunrecord.go's fields.
type IngestRunRecord struct {
	JobID            string
	TenantID         string
	Platform         string
	Status           string // "completed", "failed", or "cancelled"
	Config           map[string]interface{}
	StartedAt        time.Time
	CompletedAt      time.Time
	TicketsProcessed int
	ErrorMessage     string
}
