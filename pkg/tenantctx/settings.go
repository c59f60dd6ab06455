package tenantctx

import (
	"context"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/codeready-toolchain/tarsy-ingest/ent"
	"github.com/codeready-toolchain/tarsy-ingest/ent/systemsetting"
	"github.com/codeready-toolchain/tarsy-ingest/ent/tenantsetting"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/database"
)

// settingRow is one raw TenantSetting row as loaded from storage, before
// decryption.
type settingRow struct {
	Key         string
	Value       string
	IsEncrypted bool
}

// settingsStore is the persistence seam C9 needs from C2's schema:
// tenant-scoped key/value rows plus the one system-wide row holding the
// master encryption key. Grounded on `ent/schema/tenantsetting.go` and
// `ent/schema/systemsetting.go`.
type settingsStore interface {
	masterKeyLoader
	GetAllTenantSettings(ctx context.Context, tenantID string) ([]settingRow, error)
	SetTenantSetting(ctx context.Context, tenantID, key, value string, encrypted bool) error
}

// entSettingsStore implements settingsStore against the shared Ent client,
// the same one C2's entStore wraps.
type entSettingsStore struct {
	client *database.Client
}

func newEntSettingsStore(client *database.Client) *entSettingsStore {
	return &entSettingsStore{client: client}
}

func (s *entSettingsStore) GetAllTenantSettings(ctx context.Context, tenantID string) ([]settingRow, error) {
	rows, err := s.client.TenantSetting.Query().
		Where(tenantsetting.TenantIDEQ(tenantID)).
		All(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "tenantctx", "failed to load tenant settings", err)
	}
	out := make([]settingRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, settingRow{Key: r.Key, Value: r.Value, IsEncrypted: r.IsEncrypted})
	}
	return out, nil
}

func (s *entSettingsStore) SetTenantSetting(ctx context.Context, tenantID, key, value string, encrypted bool) error {
	err := s.client.TenantSetting.Create().
		SetTenantID(tenantID).
		SetKey(key).
		SetValue(value).
		SetIsEncrypted(encrypted).
		OnConflict(
			entsql.ConflictColumns(tenantsetting.FieldTenantID, tenantsetting.FieldKey),
		).
		UpdateValue().
		UpdateIsEncrypted().
		UpdateUpdatedAt().
		Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "tenantctx", "failed to save tenant setting", err)
	}
	return nil
}

func (s *entSettingsStore) GetSystemSetting(ctx context.Context, key string) (string, bool, error) {
	row, err := s.client.SystemSetting.Query().
		Where(systemsetting.KeyEQ(key)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, apperrors.Wrap(apperrors.KindInternal, "tenantctx", "failed to load system setting", err)
	}
	return row.Value, true, nil
}

func (s *entSettingsStore) SetSystemSetting(ctx context.Context, key, value string) error {
	err := s.client.SystemSetting.Create().
		SetKey(key).
		SetValue(value).
		OnConflict(
			entsql.ConflictColumns(systemsetting.FieldKey),
		).
		UpdateValue().
		Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "tenantctx", "failed to save system setting", err)
	}
	return nil
}
