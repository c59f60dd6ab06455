// Package ingestion implements the Ingestion Engine (C6): a chunked,
// resumable, pause/cancel-aware collection pipeline that pages upstream
// tickets window by window, enriches them, persists them through C2, and
// refreshes their summaries (C5) and vectors (C3), per spec.md §4.6.
// Grounded on `original_source/backend/core/data/data_processor.py` (the
// chunk-file convention) and `backend/api/routes/ingest_core.py` (the
// window/progress/pacing shape); the teacher repo has no ingestion
// pipeline to generalize from, so the platform.Capability/tenantstore.Store/
// vectorstore.Store seams already built for C1/C2/C3 are what this wires
// into rather than anything in pkg/queue.
package ingestion

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/identity"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/llm"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/summarizer"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantstore"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/vectorstore"
)

// Params configures one ingestion pipeline run, per spec.md §4.6 step 1.
type Params struct {
	TenantID  string
	Platform  string
	StartDate time.Time // zero value means "10 years ago"
	EndDate   time.Time // zero value means "now"

	DaysPerChunk         int // default 30
	MaxTickets           int // 0 means unlimited
	IncludeKB            bool
	ProcessAttachments   bool
	IncludeConversations bool

	// BaseDir is the root directory raw_data chunks and progress.json are
	// written under, one subdirectory per tenant/platform.
	BaseDir string
}

// ProgressCallback streams a textual progress message plus percentage
// complete, mirroring the original's progress_callback(message, percentage).
type ProgressCallback func(message string, percentage float64)

// Result summarizes one pipeline run.
type Result struct {
	TicketsCollected int
	WindowsProcessed int
	Cancelled        bool
}

// Engine runs the ingestion pipeline for one (tenant, platform) pair,
// using the given platform adapter, persistence, vector store, and
// summarizer.
type Engine struct {
	adapter    platform.Capability
	store      tenantstore.Store
	vectors    vectorstore.Store
	summarizer *summarizer.Summarizer
	router     *llm.Router
}

// New builds an Engine over its collaborators.
func New(adapter platform.Capability, store tenantstore.Store, vectors vectorstore.Store, summ *summarizer.Summarizer, router *llm.Router) *Engine {
	return &Engine{adapter: adapter, store: store, vectors: vectors, summarizer: summ, router: router}
}

// Run executes the pipeline described in spec.md §4.6: windowed ticket
// collection, enrichment, chunked raw-data persistence, relational
// upsert, then post-window summarization and vector refresh.
func (e *Engine) Run(ctx context.Context, p Params, sig Signals, progressFn ProgressCallback) (Result, error) {
	start := p.StartDate
	if start.IsZero() {
		start = defaultStartDate(time.Now())
	}
	end := p.EndDate
	if end.IsZero() {
		end = time.Now()
	}

	progressState, err := loadProgress(progressPath(p.BaseDir, p.TenantID, p.Platform))
	if err != nil {
		return Result{}, err
	}
	pace := newPacer(progressState.RequestDelayMs)

	windows := computeWindows(start, end, p.DaysPerChunk)
	writer := newChunkWriter(rawDataDir(p.BaseDir, p.TenantID, p.Platform), 0)

	var result Result
	for i, w := range windows {
		if err := checkpoint(ctx, sig); err != nil {
			if err == ErrCancelled {
				result.Cancelled = true
				return result, nil
			}
			return result, err
		}

		if progressState.isComplete(w.RangeID()) {
			continue
		}
		if p.MaxTickets > 0 && result.TicketsCollected >= p.MaxTickets {
			break
		}

		count, changedObjects, err := e.processWindow(ctx, p, w, sig, writer, pace, progressFn)
		if err != nil {
			if err == ErrCancelled {
				result.Cancelled = true
				return result, nil
			}
			return result, err
		}

		result.TicketsCollected += count
		result.WindowsProcessed++

		if err := progressState.recordRange(RangeProgress{RangeID: w.RangeID(), TicketCount: count}); err != nil {
			return result, err
		}
		progressState.RequestDelayMs = pace.OnSuccessfulWindow()
		_ = progressState.save()

		e.refreshSummariesAndVectors(ctx, p, changedObjects)

		if progressFn != nil {
			progressFn("window collected", float64(i+1)/float64(len(windows))*100)
		}
	}

	if err := writer.Flush(); err != nil {
		return result, err
	}

	if p.IncludeKB {
		if err := e.collectKB(ctx, p, sig, progressFn); err != nil {
			if err == ErrCancelled {
				result.Cancelled = true
				return result, nil
			}
			return result, err
		}
	}

	return result, nil
}

// collectKB runs an independent raw-collection pass over the knowledge
// base, per spec.md §4.6 step 6 ("optional raw-collection passes (per
// type): ... KB — each produces its own chunked files and progress
// list"). KB articles change far less often than tickets, so this pass
// has no window/date-range concept of its own: it always walks the full
// published set and relies on C2's upsert being a no-op for unchanged
// content.
func (e *Engine) collectKB(ctx context.Context, p Params, sig Signals, progressFn ProgressCallback) error {
	writer := newChunkWriterWithPrefix(kbDataDir(p.BaseDir, p.TenantID, p.Platform), "kb", 0)
	var changed []changedObject

	err := e.adapter.ListKB(ctx, func(page []platform.Record) error {
		if err := checkpoint(ctx, sig); err != nil {
			return err
		}
		for _, article := range page {
			if err := writer.Add(article); err != nil {
				return err
			}
			obj, err := e.store.UpsertIntegratedObject(ctx, p.TenantID, p.Platform, article)
			if err != nil {
				return err
			}
			changed = append(changed, changedObject{ID: obj.ID, OriginalID: article.OriginalID, Content: article.Content, ObjectType: platform.ObjectTypeArticle})
		}
		if progressFn != nil {
			progressFn("kb page collected", 0)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	e.refreshSummariesAndVectors(ctx, p, changed)
	return nil
}

// changedObject is one relational row whose summary may need refreshing
// after ingestion, carried forward to refreshSummariesAndVectors.
type changedObject struct {
	ID         int
	OriginalID string
	Content    string
	ObjectType platform.ObjectType
}

// processWindow pages through one date window per spec.md §4.6 step 2,
// enriches each ticket (step 3), buffers it to the chunk writer (step 4),
// and upserts it through C2 (step 7).
func (e *Engine) processWindow(ctx context.Context, p Params, w window, sig Signals, writer *chunkWriter, pace *pacer, progressFn ProgressCallback) (int, []changedObject, error) {
	var count int
	var changed []changedObject

	since, until := w.Start, w.End
	err := e.adapter.ListTicketsByUpdatedSince(ctx, &since, &until, func(page []platform.Record) error {
		if err := checkpoint(ctx, sig); err != nil {
			return err
		}
		if delay := pace.DelayMs(); delay > 0 {
			time.Sleep(time.Duration(delay) * time.Millisecond)
		}

		for _, ticket := range page {
			if p.MaxTickets > 0 && count >= p.MaxTickets {
				return nil
			}

			enriched, err := e.enrich(ctx, p, ticket)
			if err != nil {
				if is429(err) {
					pace.On429()
					continue
				}
				return err
			}

			if err := writer.Add(enriched); err != nil {
				return err
			}

			obj, err := e.store.UpsertIntegratedObject(ctx, p.TenantID, p.Platform, enriched)
			if err != nil {
				return err
			}
			changed = append(changed, changedObject{ID: obj.ID, OriginalID: enriched.OriginalID, Content: enriched.Content, ObjectType: platform.ObjectTypeTicket})
			count++
		}
		return nil
	})
	if err != nil {
		return count, changed, err
	}

	if progressFn != nil {
		progressFn("ticket page collected for window "+w.RangeID(), 0)
	}
	return count, changed, nil
}

// enrich attaches conversations and attachments to a ticket record, per
// spec.md §4.6 step 3. Conversations/attachments are themselves upserted
// directly (they are independent relational objects), while the ticket
// record returned carries only its own content for chunk buffering.
func (e *Engine) enrich(ctx context.Context, p Params, ticket platform.Record) (platform.Record, error) {
	if p.IncludeConversations {
		conversations, err := e.adapter.ListConversations(ctx, ticket.OriginalID)
		if err != nil {
			return ticket, err
		}
		for _, conv := range conversations {
			if _, err := e.store.UpsertIntegratedObject(ctx, p.TenantID, p.Platform, conv); err != nil {
				return ticket, err
			}
		}
	}

	if p.ProcessAttachments {
		attachments, err := e.adapter.ListAttachments(ctx, ticket.OriginalID)
		if err != nil {
			return ticket, err
		}
		for _, att := range attachments {
			rec := platform.Record{
				OriginalID: att.OriginalID,
				ObjectType: platform.ObjectTypeAttachment,
				Content:    att.Name,
				CreatedAt:  att.CreatedAt,
				UpdatedAt:  att.UpdatedAt,
				Metadata: map[string]interface{}{
					tenantstore.MetaParentType:     string(att.ParentType),
					tenantstore.MetaParentID:       att.ParentID,
					tenantstore.MetaConversationID: att.ConversationID,
				},
			}
			if _, err := e.store.UpsertIntegratedObject(ctx, p.TenantID, p.Platform, rec); err != nil {
				return ticket, err
			}
		}
	}

	return ticket, nil
}

// refreshSummariesAndVectors runs C5 over every changed object and
// upserts its vector (C3) when the summary actually changed, per spec.md
// §4.6 step 8. Failures are logged rather than aborting the run: a
// missed summary/vector refresh is recoverable on the next ingestion
// pass, whereas aborting would lose already-collected raw data.
func (e *Engine) refreshSummariesAndVectors(ctx context.Context, p Params, changed []changedObject) {
	for _, obj := range changed {
		summary, err := e.summarizer.Generate(ctx, summarizer.Ticket{ID: obj.OriginalID, Subject: obj.OriginalID, Body: obj.Content})
		if err != nil {
			slog.Error("summary refresh failed during ingestion", "tenant_id", p.TenantID, "original_id", obj.OriginalID, "error", err)
			continue
		}
		if _, err := e.store.UpdateSummary(ctx, obj.ID, summary.TicketSummary); err != nil {
			slog.Error("summary persist failed during ingestion", "tenant_id", p.TenantID, "original_id", obj.OriginalID, "error", err)
			continue
		}

		vec, err := e.router.Embed(ctx, "", summary.TicketSummary)
		if err != nil {
			slog.Error("embedding refresh failed during ingestion", "tenant_id", p.TenantID, "original_id", obj.OriginalID, "error", err)
			continue
		}
		objType := string(obj.ObjectType)
		if objType == "" {
			objType = string(platform.ObjectTypeTicket)
		}
		point := vectorstore.Point{
			Tuple:      identity.New(p.TenantID, p.Platform, obj.OriginalID),
			Vector:     vec,
			ObjectType: objType,
			DocType:    objType,
			Summary:    summary.TicketSummary,
		}
		if err := e.vectors.Upsert(ctx, []vectorstore.Point{point}); err != nil {
			slog.Error("vector upsert failed during ingestion", "tenant_id", p.TenantID, "original_id", obj.OriginalID, "error", err)
		}
	}
}

func rawDataDir(baseDir, tenantID, platformName string) string {
	return baseDir + "/" + tenantID + "/" + platformName + "/raw_data/tickets"
}

func kbDataDir(baseDir, tenantID, platformName string) string {
	return baseDir + "/" + tenantID + "/" + platformName + "/raw_data/kb"
}

// is429 reports whether err ultimately stems from a 429 response the
// platform adapter could not fully absorb through its own retry policy.
// Adapters wrap transport errors as apperrors.KindExternalService without
// a typed status code accessor, so this falls back to a literal "429"
// substring match on the error chain — coarse, but it only needs to
// detect the adapter's own already-formatted error text, not arbitrary
// upstream payloads.
func is429(err error) bool {
	if apperrors.KindOf(err) != apperrors.KindExternalService {
		return false
	}
	return strings.Contains(err.Error(), "429")
}
