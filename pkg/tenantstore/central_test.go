package tenantstore

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/tarsy-ingest/test/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tenantIDForCentralTest derives a tenant id whose sanitized schema name is
// unique per test run, reusing the same random-suffix approach as
// util.GenerateSchemaName so parallel test runs never collide.
func tenantIDForCentralTest(t *testing.T) string {
	t.Helper()
	return util.GenerateSchemaName(t)
}

func TestCentralStore_ProvisionsSchemaAndRoundTrips(t *testing.T) {
	baseDSN := util.GetBaseConnectionString(t)
	tenantID := tenantIDForCentralTest(t)
	ctx := context.Background()

	store, err := NewCentralStore(ctx, baseDSN, tenantID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.UpsertIntegratedObject(ctx, tenantID, "freshdesk", ticketRecord("1", "central backend ticket"))
	require.NoError(t, err)

	objs, err := store.GetByType(ctx, tenantID, "freshdesk", "ticket")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "1", objs[0].OriginalID)
}

func TestManager_ListTenants_CentralBackend(t *testing.T) {
	baseDSN := util.GetBaseConnectionString(t)
	tenantID := tenantIDForCentralTest(t)
	ctx := context.Background()

	mgr := NewManager(BackendConfig{Backend: BackendCentral, CentralDSN: baseDSN})
	t.Cleanup(func() { _ = mgr.Close() })

	_, err := mgr.Get(ctx, tenantID)
	require.NoError(t, err)

	tenants, err := mgr.ListTenants(ctx)
	require.NoError(t, err)
	assert.Contains(t, tenants, tenantID)
}
