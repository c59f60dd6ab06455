package tenantstore

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/codeready-toolchain/tarsy-ingest/ent"
	"github.com/codeready-toolchain/tarsy-ingest/ent/ingestrunrecord"
	"github.com/codeready-toolchain/tarsy-ingest/ent/integratedobject"
	"github.com/codeready-toolchain/tarsy-ingest/ent/progresslog"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/database"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
)

// entStore is the single Store implementation shared by both backends: once
// a *database.Client exists (a schema-scoped Postgres connection for the
// central backend, or a file-scoped SQLite connection for the embedded
// one), Ent's dialect abstraction makes the query layer identical. Only how
// the *database.Client was obtained differs, which NewCentralStore and
// NewEmbeddedStore each encode.
type entStore struct {
	client *database.Client
}

// NewCentralStore returns a Store backed by the tenant's dedicated Postgres
// schema, provisioning it first if it does not yet exist.
func NewCentralStore(ctx context.Context, baseDSN, tenantID string) (Store, error) {
	client, err := database.EnsureTenantSchema(ctx, baseDSN, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to provision central tenant schema", err)
	}
	return &entStore{client: client}, nil
}

// NewEmbeddedStore returns a Store backed by a dedicated SQLite file for
// the tenant at path, creating it first if it does not yet exist.
func NewEmbeddedStore(ctx context.Context, path string) (Store, error) {
	client, err := database.NewEmbeddedClient(ctx, path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to open embedded tenant store", err)
	}
	return &entStore{client: client}, nil
}

// objectTypeOf maps the neutral platform enum onto Ent's generated one;
// both are string-backed and share the same four values by construction.
func objectTypeOf(t platform.ObjectType) integratedobject.ObjectType {
	return integratedobject.ObjectType(t)
}

func (s *entStore) UpsertIntegratedObject(ctx context.Context, tenantID, platformName string, rec platform.Record) (*ent.IntegratedObject, error) {
	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	id, err := s.client.IntegratedObject.Create().
		SetTenantID(tenantID).
		SetPlatform(platformName).
		SetObjectType(objectTypeOf(rec.ObjectType)).
		SetOriginalID(rec.OriginalID).
		SetOriginalData(rec.OriginalData).
		SetIntegratedContent(rec.Content).
		SetMetadata(metadata).
		SetCreatedAt(rec.CreatedAt).
		SetUpdatedAt(rec.UpdatedAt).
		OnConflict(
			entsql.ConflictColumns(
				integratedobject.FieldTenantID,
				integratedobject.FieldPlatform,
				integratedobject.FieldObjectType,
				integratedobject.FieldOriginalID,
			),
		).
		ClearDeletedAt(). // re-ingesting a previously soft-deleted object revives it
		UpdateOriginalData().
		UpdateIntegratedContent().
		UpdateMetadata().
		UpdateUpdatedAt().
		ID(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to upsert integrated object", err)
	}

	obj, err := s.client.IntegratedObject.Get(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to reload upserted object", err)
	}
	return obj, nil
}

func (s *entStore) GetByType(ctx context.Context, tenantID, platformName string, objectType platform.ObjectType) ([]*ent.IntegratedObject, error) {
	objs, err := s.client.IntegratedObject.Query().
		Where(
			integratedobject.TenantIDEQ(tenantID),
			integratedobject.PlatformEQ(platformName),
			integratedobject.ObjectTypeEQ(objectTypeOf(objectType)),
			integratedobject.DeletedAtIsNil(),
		).
		Order(ent.Desc(integratedobject.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to query objects by type", err)
	}
	return objs, nil
}

func (s *entStore) GetAttachmentsForTicket(ctx context.Context, tenantID, platformName, ticketOriginalID string) ([]*ent.IntegratedObject, error) {
	conversations, err := s.GetByType(ctx, tenantID, platformName, platform.ObjectTypeConversation)
	if err != nil {
		return nil, err
	}
	conversationIDs := make(map[string]bool, len(conversations))
	for _, c := range conversations {
		if parentID, _ := c.Metadata[MetaParentID].(string); parentID == ticketOriginalID {
			conversationIDs[c.OriginalID] = true
		}
	}

	attachments, err := s.client.IntegratedObject.Query().
		Where(
			integratedobject.TenantIDEQ(tenantID),
			integratedobject.PlatformEQ(platformName),
			integratedobject.ObjectTypeEQ(integratedobject.ObjectTypeAttachment),
			integratedobject.DeletedAtIsNil(),
		).
		Order(ent.Desc(integratedobject.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to query attachments", err)
	}

	result := make([]*ent.IntegratedObject, 0, len(attachments))
	for _, a := range attachments {
		parentType, _ := a.Metadata[MetaParentType].(string)
		parentID, _ := a.Metadata[MetaParentID].(string)
		conversationID, _ := a.Metadata[MetaConversationID].(string)

		switch {
		case parentType == string(platform.ObjectTypeTicket) && parentID == ticketOriginalID:
			result = append(result, a)
		case parentType == string(platform.ObjectTypeConversation) && conversationIDs[conversationID]:
			result = append(result, a)
		}
	}
	return result, nil
}

func (s *entStore) UpdateSummary(ctx context.Context, id int, summary string) (*ent.IntegratedObject, error) {
	obj, err := s.client.IntegratedObject.UpdateOneID(id).
		SetSummary(summary).
		Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "tenantstore", "integrated object not found", err)
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to update summary", err)
	}
	return obj, nil
}

func (s *entStore) SaveQualityScore(ctx context.Context, score QualityScoreRecord) error {
	err := s.client.SummaryQualityScore.Create().
		SetTenantID(score.TenantID).
		SetPlatform(score.Platform).
		SetOriginalID(score.OriginalID).
		SetOverallScore(score.OverallScore).
		SetStructureScore(score.StructureScore).
		SetCompletionInfoScore(score.CompletionInfoScore).
		SetContentFidelityScore(score.ContentFidelityScore).
		SetLanguageQualityScore(score.LanguageQualityScore).
		SetLengthScore(score.LengthScore).
		SetAttempt(score.Attempt).
		SetPassed(score.Passed).
		Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to save quality score", err)
	}
	return nil
}

func (s *entStore) RecordIngestRun(ctx context.Context, rec IngestRunRecord) error {
	create := s.client.IngestRunRecord.Create().
		SetID(rec.JobID).
		SetTenantID(rec.TenantID).
		SetPlatform(rec.Platform).
		SetStatus(ingestrunrecord.Status(rec.Status)).
		SetConfig(rec.Config).
		SetStartedAt(rec.StartedAt).
		SetCompletedAt(rec.CompletedAt).
		SetTicketsProcessed(rec.TicketsProcessed)
	if rec.ErrorMessage != "" {
		create = create.SetErrorMessage(rec.ErrorMessage)
	}
	if err := create.Exec(ctx); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to record ingest run", err)
	}
	return nil
}

func (s *entStore) LogProgress(ctx context.Context, jobID, tenantID string, step, totalSteps int, message string, percentage float64) error {
	err := s.client.ProgressLog.Create().
		SetJobID(jobID).
		SetTenantID(tenantID).
		SetStep(step).
		SetTotalSteps(totalSteps).
		SetMessage(message).
		SetPercentage(percentage).
		OnConflict(
			entsql.ConflictColumns(
				progresslog.FieldJobID,
				progresslog.FieldTenantID,
				progresslog.FieldStep,
			),
		).
		UpdateTotalSteps().
		UpdateMessage().
		UpdatePercentage().
		Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to log progress", err)
	}
	return nil
}

func (s *entStore) GetProgress(ctx context.Context, jobID string) ([]*ent.ProgressLog, error) {
	logs, err := s.client.ProgressLog.Query().
		Where(progresslog.JobIDEQ(jobID)).
		Order(ent.Asc(progresslog.FieldStep)).
		All(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to query progress", err)
	}
	return logs, nil
}

func (s *entStore) Clear(ctx context.Context, tenantID, platformName string, hard bool) (int, error) {
	if hard {
		query := s.client.IntegratedObject.Delete().
			Where(integratedobject.TenantIDEQ(tenantID))
		if platformName != "" {
			query = query.Where(integratedobject.PlatformEQ(platformName))
		}
		count, err := query.Exec(ctx)
		if err != nil {
			return 0, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to hard-delete objects", err)
		}
		return count, nil
	}

	query := s.client.IntegratedObject.Update().
		Where(
			integratedobject.TenantIDEQ(tenantID),
			integratedobject.DeletedAtIsNil(),
		).
		SetDeletedAt(time.Now())
	if platformName != "" {
		query = query.Where(integratedobject.PlatformEQ(platformName))
	}
	count, err := query.Save(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to soft-delete objects", err)
	}
	return count, nil
}

func (s *entStore) Restore(ctx context.Context, tenantID string, within time.Duration) (int, error) {
	cutoff := time.Now().Add(-within)

	count, err := s.client.IntegratedObject.Update().
		Where(
			integratedobject.TenantIDEQ(tenantID),
			integratedobject.DeletedAtNotNil(),
			integratedobject.DeletedAtGTE(cutoff),
		).
		ClearDeletedAt().
		Save(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to restore objects", err)
	}
	return count, nil
}

func (s *entStore) Reap(ctx context.Context, retentionDays int, progressLogTTL time.Duration) (int, int, error) {
	objectCutoff := time.Now().AddDate(0, 0, -retentionDays)
	objectsRemoved, err := s.client.IntegratedObject.Delete().
		Where(
			integratedobject.DeletedAtNotNil(),
			integratedobject.DeletedAtLT(objectCutoff),
		).
		Exec(ctx)
	if err != nil {
		return 0, 0, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to reap soft-deleted objects", err)
	}

	logCutoff := time.Now().Add(-progressLogTTL)
	logsRemoved, err := s.client.ProgressLog.Delete().
		Where(progresslog.CreatedAtLT(logCutoff)).
		Exec(ctx)
	if err != nil {
		return objectsRemoved, 0, apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to reap stale progress logs", err)
	}

	return objectsRemoved, logsRemoved, nil
}

func (s *entStore) Migrate(ctx context.Context) error {
	if err := s.client.Schema.Create(ctx); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "tenantstore", "failed to migrate tenant schema", err)
	}
	return nil
}

func (s *entStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close tenant store: %w", err)
	}
	return nil
}
