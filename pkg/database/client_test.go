package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/codeready-toolchain/tarsy-ingest/ent/integratedobject"
	"github.com/codeready-toolchain/tarsy-ingest/test/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseClient_ConnectionPool(t *testing.T) {
	entClient, db, schemaName := util.SetupTestSchema(t)
	client := NewClientFromEnt(entClient, db, schemaName)
	ctx := context.Background()

	require.NoError(t, client.DB().PingContext(ctx))

	health, err := Health(ctx, client.DB())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxOpenConns, 0)
}

func TestFullTextSearch(t *testing.T) {
	entClient, db, schemaName := util.SetupTestSchema(t)
	client := NewClientFromEnt(entClient, db, schemaName)
	ctx := context.Background()

	require.NoError(t, CreateGINIndexes(ctx, client.DB(), schemaName))

	obj1, err := client.IntegratedObject.Create().
		SetTenantID("acme").
		SetPlatform("freshdesk").
		SetObjectType(integratedobject.ObjectTypeTicket).
		SetOriginalID("1").
		SetOriginalData(map[string]interface{}{}).
		SetIntegratedContent("Critical error in production cluster with pod failures").
		Save(ctx)
	require.NoError(t, err)

	obj2, err := client.IntegratedObject.Create().
		SetTenantID("acme").
		SetPlatform("freshdesk").
		SetObjectType(integratedobject.ObjectTypeTicket).
		SetOriginalID("2").
		SetOriginalData(map[string]interface{}{}).
		SetIntegratedContent("Warning: high memory usage detected").
		Save(ctx)
	require.NoError(t, err)

	rows, err := client.DB().QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s.integrated_objects
			WHERE to_tsvector('simple', integrated_content) @@ to_tsquery('simple', $1)`, schemaName),
		"error & production",
	)
	require.NoError(t, err)
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	assert.Equal(t, []int{obj1.ID}, ids)

	rows2, err := client.DB().QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s.integrated_objects
			WHERE to_tsvector('simple', integrated_content) @@ to_tsquery('simple', $1)`, schemaName),
		"memory",
	)
	require.NoError(t, err)
	defer rows2.Close()

	ids2 := []int{}
	for rows2.Next() {
		var id int
		require.NoError(t, rows2.Scan(&id))
		ids2 = append(ids2, id)
	}
	assert.Equal(t, []int{obj2.ID}, ids2)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", SSLMode: "disable", MaxOpenConns: 10, MaxIdleConns: 5,
			},
			wantErr: false,
		},
		{
			name: "missing password",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "",
				Database: "test", MaxOpenConns: 10, MaxIdleConns: 5,
			},
			wantErr: true,
		},
		{
			name: "idle conns exceed max conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 5, MaxIdleConns: 10,
			},
			wantErr: true,
		},
		{
			name: "zero max open conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 0, MaxIdleConns: 0,
			},
			wantErr: true,
		},
		{
			name: "negative idle conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 10, MaxIdleConns: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTenantSchemaName(t *testing.T) {
	assert.Equal(t, "tenant_acme_corp", TenantSchemaName("ACME-corp"))
}
