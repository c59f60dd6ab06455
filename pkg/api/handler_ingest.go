package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/identity"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/ingestion"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/jobs"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/slack"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantstore"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/vectorstore"
)

// maxSyncIngestTickets bounds the synchronous POST /ingest endpoint when
// TenantDefaults.SyncIngestMaxTickets is unset, per spec.md §6.1: callers
// wanting more than the limit must go through POST /ingest/jobs instead.
const maxSyncIngestTickets = 100

func paramsFromRequest(req ingestRequest, tenantID, platformName string, dataDir string) (ingestion.Params, error) {
	p := ingestion.Params{
		TenantID:             tenantID,
		Platform:             platformName,
		DaysPerChunk:         30,
		MaxTickets:           req.MaxTickets,
		IncludeKB:            req.IncludeKB,
		ProcessAttachments:   req.ProcessAttachments,
		IncludeConversations: req.IncludeConversations,
		BaseDir:              dataDir,
	}
	if req.BatchSize > 0 {
		p.DaysPerChunk = req.BatchSize
	}
	if req.StartDate != "" {
		t, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			return p, apperrors.Wrap(apperrors.KindValidation, "api", "invalid start_date", err)
		}
		p.StartDate = t
	}
	if req.EndDate != "" {
		t, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			return p, apperrors.Wrap(apperrors.KindValidation, "api", "invalid end_date", err)
		}
		p.EndDate = t
	}
	return p, nil
}

// syncIngestHandler handles POST /ingest: a synchronous ingestion run
// capped at TenantDefaults.SyncIngestMaxTickets (maxSyncIngestTickets when
// unset), per spec.md §6.1. Larger runs must go
// through POST /ingest/jobs instead.
func (s *Server) syncIngestHandler(c *gin.Context) {
	tctx := mustTenantContext(c)

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, apperrors.Wrap(apperrors.KindValidation, "api", "invalid request body", err))
		return
	}
	limit := maxSyncIngestTickets
	if d := s.deps.Config.TenantDefaults; d != nil && d.SyncIngestMaxTickets > 0 {
		limit = d.SyncIngestMaxTickets
	}
	if req.MaxTickets > limit {
		abortError(c, apperrors.New(apperrors.KindValidation, "api", "max_tickets exceeds the synchronous ingest limit; use POST /ingest/jobs instead").
			WithDetail("limit", limit))
		return
	}

	if err := s.deps.persistCredentials(c.Request.Context(), tctx); err != nil {
		abortError(c, err)
		return
	}

	params, err := paramsFromRequest(req, tctx.TenantID, tctx.Platform, s.deps.Config.Jobs.DataDir)
	if err != nil {
		abortError(c, err)
		return
	}

	engine, err := s.deps.engineFactory(c.Request.Context(), tctx.TenantID, tctx.Platform)
	if err != nil {
		abortError(c, err)
		return
	}

	// A synchronous run has no pause/cancel control surface, so a
	// zero-value Signals is correct: its nil channels are never ready in
	// ingestion's checkpoint() select, which is exactly "never signaled".
	result, err := engine.Run(c.Request.Context(), params, ingestion.Signals{}, nil)
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, ingestResultResponse{
		TicketsCollected: result.TicketsCollected,
		WindowsProcessed: result.WindowsProcessed,
		Cancelled:        result.Cancelled,
	})
}

// createJobHandler handles POST /ingest/jobs: enqueues and immediately
// starts a background ingestion job, per spec.md §6.1 scenario S1's
// expectation of an immediate RUNNING status in the response.
func (s *Server) createJobHandler(c *gin.Context) {
	tctx := mustTenantContext(c)

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, apperrors.Wrap(apperrors.KindValidation, "api", "invalid request body", err))
		return
	}

	if err := s.deps.persistCredentials(c.Request.Context(), tctx); err != nil {
		abortError(c, err)
		return
	}

	params, err := paramsFromRequest(req, tctx.TenantID, tctx.Platform, s.deps.Config.Jobs.DataDir)
	if err != nil {
		abortError(c, err)
		return
	}

	view, err := s.deps.Jobs.CreateJob(c.Request.Context(), jobs.CreateParams{
		TenantID:     tctx.TenantID,
		Platform:     tctx.Platform,
		Params:       params,
		ForceRebuild: req.ForceRebuild,
	})
	if err != nil {
		abortError(c, err)
		return
	}

	started, err := s.deps.Jobs.StartJob(c.Request.Context(), view.ID)
	if err != nil && apperrors.KindOf(err) != apperrors.KindRateLimit {
		abortError(c, err)
		return
	}
	if started != nil {
		view = started
	}

	c.JSON(http.StatusAccepted, renderJob(*view))
}

// listJobsHandler handles GET /ingest/jobs.
func (s *Server) listJobsHandler(c *gin.Context) {
	tctx := mustTenantContext(c)

	filter := jobs.ListFilter{TenantID: tctx.TenantID, Status: jobs.Status(c.Query("status"))}
	if limit := c.Query("limit"); limit != "" {
		fmt.Sscanf(limit, "%d", &filter.Limit)
	}
	if offset := c.Query("offset"); offset != "" {
		fmt.Sscanf(offset, "%d", &filter.Offset)
	}

	views := s.deps.Jobs.ListJobs(filter)
	resp := make([]jobResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, renderJob(v))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": resp})
}

// getJobHandler handles GET /ingest/jobs/{id}.
func (s *Server) getJobHandler(c *gin.Context) {
	tctx := mustTenantContext(c)

	view, err := s.deps.Jobs.GetJob(c.Param("id"))
	if err != nil {
		abortError(c, err)
		return
	}
	if view.TenantID != tctx.TenantID {
		abortError(c, apperrors.New(apperrors.KindNotFound, "api", "job not found"))
		return
	}
	c.JSON(http.StatusOK, renderJob(*view))
}

// controlJobHandler handles POST /ingest/jobs/{id}/control.
func (s *Server) controlJobHandler(c *gin.Context) {
	tctx := mustTenantContext(c)

	view, err := s.deps.Jobs.GetJob(c.Param("id"))
	if err != nil {
		abortError(c, err)
		return
	}
	if view.TenantID != tctx.TenantID {
		abortError(c, apperrors.New(apperrors.KindNotFound, "api", "job not found"))
		return
	}

	var req jobControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, apperrors.Wrap(apperrors.KindValidation, "api", "invalid request body", err))
		return
	}

	if err := s.deps.Jobs.Control(view.ID, jobs.ControlAction(req.Action)); err != nil {
		abortError(c, err)
		return
	}

	updated, err := s.deps.Jobs.GetJob(view.ID)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, renderJob(*updated))
}

// progressHandler handles GET /ingest/progress/{job_id}: the per-step
// progress log a job has reported via the Tenant Store (C2), per spec.md
// §4.7/§6.1.
func (s *Server) progressHandler(c *gin.Context) {
	tctx := mustTenantContext(c)
	jobID := c.Param("job_id")

	view, err := s.deps.Jobs.GetJob(jobID)
	if err != nil {
		abortError(c, err)
		return
	}
	if view.TenantID != tctx.TenantID {
		abortError(c, apperrors.New(apperrors.KindNotFound, "api", "job not found"))
		return
	}

	store, err := s.deps.TenantStores.Get(c.Request.Context(), tctx.TenantID)
	if err != nil {
		abortError(c, err)
		return
	}

	logs, err := store.GetProgress(c.Request.Context(), jobID)
	if err != nil {
		abortError(c, err)
		return
	}

	steps := make([]progressEventResponse, 0, len(logs))
	for _, l := range logs {
		steps = append(steps, progressEventResponse{Stage: l.Message, ProgressPercent: l.Percentage})
	}
	c.JSON(http.StatusOK, gin.H{"job": renderJob(*view), "steps": steps})
}

// syncSummariesHandler handles POST /ingest/sync-summaries: re-embeds
// every ticket/article already carrying a stored summary into the vector
// store, without re-running summarization. Used to backfill the vector
// store after a vectorstore.Reset or a vector-store migration, per
// spec.md §4.3's reindex path.
func (s *Server) syncSummariesHandler(c *gin.Context) {
	tctx := mustTenantContext(c)
	ctx := c.Request.Context()

	store, err := s.deps.TenantStores.Get(ctx, tctx.TenantID)
	if err != nil {
		abortError(c, err)
		return
	}

	synced := 0
	for _, objType := range []platform.ObjectType{platform.ObjectTypeTicket, platform.ObjectTypeArticle} {
		objects, err := store.GetByType(ctx, tctx.TenantID, tctx.Platform, objType)
		if err != nil {
			abortError(c, err)
			return
		}
		for _, obj := range objects {
			if obj.Summary == nil || *obj.Summary == "" {
				continue
			}
			vec, err := s.deps.Router.Embed(ctx, "", *obj.Summary)
			if err != nil {
				abortError(c, err)
				return
			}
			point := vectorstore.Point{
				Tuple:      identity.New(tctx.TenantID, tctx.Platform, obj.OriginalID),
				Vector:     vec,
				ObjectType: string(objType),
				DocType:    string(objType),
				Summary:    *obj.Summary,
			}
			if err := s.deps.Vectors.Upsert(ctx, []vectorstore.Point{point}); err != nil {
				abortError(c, err)
				return
			}
			synced++
		}
	}

	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

// purgeDataHandler handles POST /ingest/security/purge-data, per spec.md
// §6.1: requires a one-day token of the form DELETE_{tenant}_{platform}_
// {YYYYMMDD} to guard against an accidental or replayed destructive call.
func (s *Server) purgeDataHandler(c *gin.Context) {
	tctx := mustTenantContext(c)
	ctx := c.Request.Context()

	var req purgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, apperrors.Wrap(apperrors.KindValidation, "api", "invalid request body", err))
		return
	}

	expected := purgeToken(tctx.TenantID, tctx.Platform, time.Now())
	if req.Token != expected {
		abortError(c, apperrors.New(apperrors.KindAuth, "api", "invalid or expired purge token"))
		return
	}

	store, err := s.deps.TenantStores.Get(ctx, tctx.TenantID)
	if err != nil {
		abortError(c, err)
		return
	}

	objectsAffected, err := store.Clear(ctx, tctx.TenantID, tctx.Platform, req.Hard)
	if err != nil {
		abortError(c, err)
		return
	}

	tuples, err := collectTuples(ctx, store, tctx.TenantID, tctx.Platform)
	if err != nil {
		abortError(c, err)
		return
	}
	if err := s.deps.Vectors.Delete(ctx, tuples, tctx.TenantID, tctx.Platform); err != nil {
		abortError(c, err)
		return
	}

	s.deps.Notifier.NotifyPurgeCompleted(context.WithoutCancel(ctx), slack.PurgeCompletedInput{
		TenantID:        tctx.TenantID,
		Platform:        tctx.Platform,
		Hard:            req.Hard,
		ObjectsAffected: objectsAffected,
		VectorsAffected: len(tuples),
	})

	c.JSON(http.StatusOK, purgeResponse{ObjectsAffected: objectsAffected, VectorsAffected: len(tuples)})
}

// purgeToken computes the expected one-day purge token for (tenantID,
// platformName) as of day.
func purgeToken(tenantID, platformName string, day time.Time) string {
	return fmt.Sprintf("DELETE_%s_%s_%s", tenantID, platformName, day.UTC().Format("20060102"))
}

// collectTuples gathers the identity tuples for every object type so
// purgeDataHandler can remove their vectors alongside the relational rows.
// Soft-deleted rows are included: Clear(hard=false) only sets deleted_at,
// but the purge's vector-store side has no equivalent soft state, so a
// purge always removes the vector regardless of hard/soft.
func collectTuples(ctx context.Context, store tenantstore.Store, tenantID, platformName string) ([]identity.Tuple, error) {
	var tuples []identity.Tuple
	for _, objType := range []platform.ObjectType{
		platform.ObjectTypeTicket,
		platform.ObjectTypeConversation,
		platform.ObjectTypeArticle,
		platform.ObjectTypeAttachment,
	} {
		objects, err := store.GetByType(ctx, tenantID, platformName, objType)
		if err != nil {
			return nil, err
		}
		for _, obj := range objects {
			tuples = append(tuples, identity.New(tenantID, platformName, obj.OriginalID))
		}
	}
	return tuples, nil
}

func renderJob(v jobs.View) jobResponse {
	return jobResponse{
		ID:               v.ID,
		TenantID:         v.TenantID,
		Platform:         v.Platform,
		Status:           string(v.Status),
		CanPause:         v.Status == jobs.StatusRunning,
		CreatedAt:        v.CreatedAt,
		StartedAt:        v.StartedAt,
		CompletedAt:      v.CompletedAt,
		TicketsCollected: v.TicketsCollected,
		WindowsProcessed: v.WindowsProcessed,
		ErrorMessage:     v.ErrorMessage,
		ProgressMessage:  v.ProgressMessage,
		ProgressPercent:  v.ProgressPercent,
	}
}
