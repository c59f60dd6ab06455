package tenantstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbeddedStore(t *testing.T) Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "acme_data.db")
	store, err := NewEmbeddedStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func ticketRecord(originalID, content string) platform.Record {
	now := time.Now()
	return platform.Record{
		OriginalID:   originalID,
		ObjectType:   platform.ObjectTypeTicket,
		Content:      content,
		OriginalData: map[string]interface{}{"subject": content},
		Metadata:     map[string]interface{}{"status": "open"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestEmbeddedStore_UpsertIsIdempotent(t *testing.T) {
	store := newEmbeddedStore(t)
	ctx := context.Background()

	rec := ticketRecord("1", "printer on fire")
	obj1, err := store.UpsertIntegratedObject(ctx, "acme", "freshdesk", rec)
	require.NoError(t, err)

	rec.Content = "printer is still on fire"
	obj2, err := store.UpsertIntegratedObject(ctx, "acme", "freshdesk", rec)
	require.NoError(t, err)

	assert.Equal(t, obj1.ID, obj2.ID, "re-ingesting the same 3-tuple must update, not duplicate")
	assert.Equal(t, "printer is still on fire", obj2.IntegratedContent)

	all, err := store.GetByType(ctx, "acme", "freshdesk", platform.ObjectTypeTicket)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEmbeddedStore_GetByType_ExcludesOtherTenants(t *testing.T) {
	store := newEmbeddedStore(t)
	ctx := context.Background()

	_, err := store.UpsertIntegratedObject(ctx, "acme", "freshdesk", ticketRecord("1", "a"))
	require.NoError(t, err)
	_, err = store.UpsertIntegratedObject(ctx, "other", "freshdesk", ticketRecord("2", "b"))
	require.NoError(t, err)

	objs, err := store.GetByType(ctx, "acme", "freshdesk", platform.ObjectTypeTicket)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "1", objs[0].OriginalID)
}

func TestEmbeddedStore_GetAttachmentsForTicket_UnionsTicketAndConversationParents(t *testing.T) {
	store := newEmbeddedStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := store.UpsertIntegratedObject(ctx, "acme", "freshdesk", ticketRecord("100", "ticket"))
	require.NoError(t, err)

	conv := platform.Record{
		OriginalID:   "conv-1",
		ObjectType:   platform.ObjectTypeConversation,
		Content:      "a reply",
		OriginalData: map[string]interface{}{},
		Metadata:     map[string]interface{}{MetaParentType: "ticket", MetaParentID: "100"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = store.UpsertIntegratedObject(ctx, "acme", "freshdesk", conv)
	require.NoError(t, err)

	directAttachment := platform.Record{
		OriginalID:   "att-1",
		ObjectType:   platform.ObjectTypeAttachment,
		Content:      "screenshot.png",
		OriginalData: map[string]interface{}{},
		Metadata:     map[string]interface{}{MetaParentType: "ticket", MetaParentID: "100"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = store.UpsertIntegratedObject(ctx, "acme", "freshdesk", directAttachment)
	require.NoError(t, err)

	conversationAttachment := platform.Record{
		OriginalID:   "att-2",
		ObjectType:   platform.ObjectTypeAttachment,
		Content:      "log.txt",
		OriginalData: map[string]interface{}{},
		Metadata:     map[string]interface{}{MetaParentType: "conversation", MetaConversationID: "conv-1"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = store.UpsertIntegratedObject(ctx, "acme", "freshdesk", conversationAttachment)
	require.NoError(t, err)

	unrelatedAttachment := platform.Record{
		OriginalID:   "att-3",
		ObjectType:   platform.ObjectTypeAttachment,
		Content:      "other.png",
		OriginalData: map[string]interface{}{},
		Metadata:     map[string]interface{}{MetaParentType: "ticket", MetaParentID: "999"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err = store.UpsertIntegratedObject(ctx, "acme", "freshdesk", unrelatedAttachment)
	require.NoError(t, err)

	attachments, err := store.GetAttachmentsForTicket(ctx, "acme", "freshdesk", "100")
	require.NoError(t, err)

	ids := make([]string, 0, len(attachments))
	for _, a := range attachments {
		ids = append(ids, a.OriginalID)
	}
	assert.ElementsMatch(t, []string{"att-1", "att-2"}, ids)
}

func TestEmbeddedStore_ClearSoftThenRestore(t *testing.T) {
	store := newEmbeddedStore(t)
	ctx := context.Background()

	_, err := store.UpsertIntegratedObject(ctx, "acme", "freshdesk", ticketRecord("1", "a"))
	require.NoError(t, err)

	count, err := store.Clear(ctx, "acme", "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	objs, err := store.GetByType(ctx, "acme", "freshdesk", platform.ObjectTypeTicket)
	require.NoError(t, err)
	assert.Empty(t, objs, "soft-deleted objects must not be returned by GetByType")

	restored, err := store.Restore(ctx, "acme", 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	objs, err = store.GetByType(ctx, "acme", "freshdesk", platform.ObjectTypeTicket)
	require.NoError(t, err)
	assert.Len(t, objs, 1)
}

func TestEmbeddedStore_ClearHardRemovesRows(t *testing.T) {
	store := newEmbeddedStore(t)
	ctx := context.Background()

	_, err := store.UpsertIntegratedObject(ctx, "acme", "freshdesk", ticketRecord("1", "a"))
	require.NoError(t, err)

	count, err := store.Clear(ctx, "acme", "freshdesk", true)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	restored, err := store.Restore(ctx, "acme", 30*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, restored, "hard-deleted rows cannot be restored")
}

func TestEmbeddedStore_ReapRemovesExpiredSoftDeletesOnly(t *testing.T) {
	store := newEmbeddedStore(t)
	es := store.(*entStore)
	ctx := context.Background()

	old, err := store.UpsertIntegratedObject(ctx, "acme", "freshdesk", ticketRecord("1", "old"))
	require.NoError(t, err)
	recent, err := store.UpsertIntegratedObject(ctx, "acme", "freshdesk", ticketRecord("2", "recent"))
	require.NoError(t, err)

	_, err = store.Clear(ctx, "acme", "freshdesk", false)
	require.NoError(t, err)

	// Backdate only "old" past the 30-day retention window; "recent" stays
	// within it and must survive the reap.
	require.NoError(t, es.client.IntegratedObject.UpdateOneID(old.ID).
		SetDeletedAt(time.Now().Add(-31*24*time.Hour)).Exec(ctx))
	require.NoError(t, es.client.IntegratedObject.UpdateOneID(recent.ID).
		SetDeletedAt(time.Now()).Exec(ctx))

	objectsRemoved, _, err := store.Reap(ctx, 30, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, objectsRemoved)

	restored, err := store.Restore(ctx, "acme", 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, restored, "only the still-soft-deleted recent row should be restorable")
}

func TestEmbeddedStore_ReapRemovesStaleProgressLogs(t *testing.T) {
	store := newEmbeddedStore(t)
	es := store.(*entStore)
	ctx := context.Background()

	// created_at is immutable once a row exists, so the backdated row is
	// built directly rather than via LogProgress + a later update.
	require.NoError(t, es.client.ProgressLog.Create().
		SetJobID("job-1").SetTenantID("acme").SetStep(1).SetTotalSteps(2).
		SetMessage("starting").SetPercentage(10).
		SetCreatedAt(time.Now().Add(-10*24*time.Hour)).Exec(ctx))
	require.NoError(t, store.LogProgress(ctx, "job-1", "acme", 2, 2, "done", 100))

	_, logsRemoved, err := store.Reap(ctx, 30, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, logsRemoved)

	remaining, err := store.GetProgress(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, 2, remaining[0].Step)
}

func TestEmbeddedStore_LogProgressUpsertsOnStep(t *testing.T) {
	store := newEmbeddedStore(t)
	ctx := context.Background()

	require.NoError(t, store.LogProgress(ctx, "job-1", "acme", 1, 4, "starting", 10))
	require.NoError(t, store.LogProgress(ctx, "job-1", "acme", 1, 4, "still starting", 15))
	require.NoError(t, store.LogProgress(ctx, "job-1", "acme", 2, 4, "fetching", 40))

	logs, err := store.GetProgress(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "still starting", logs[0].Message)
	assert.Equal(t, float64(15), logs[0].Percentage)
	assert.Equal(t, 2, logs[1].Step)
}
