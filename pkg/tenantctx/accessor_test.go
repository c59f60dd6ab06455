package tenantctx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/cache"
)

// fakeSettingsStore is an in-memory settingsStore, keyed by tenant id, used
// so accessor_test.go never needs a real ent client.
type fakeSettingsStore struct {
	mu       sync.Mutex
	rows     map[string][]settingRow
	systemKV map[string]string
	getCalls int
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{
		rows:     make(map[string][]settingRow),
		systemKV: make(map[string]string),
	}
}

func (f *fakeSettingsStore) GetAllTenantSettings(ctx context.Context, tenantID string) ([]settingRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	return append([]settingRow(nil), f.rows[tenantID]...), nil
}

func (f *fakeSettingsStore) SetTenantSetting(ctx context.Context, tenantID, key, value string, encrypted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[tenantID]
	for i, r := range rows {
		if r.Key == key {
			rows[i] = settingRow{Key: key, Value: value, IsEncrypted: encrypted}
			f.rows[tenantID] = rows
			return nil
		}
	}
	f.rows[tenantID] = append(rows, settingRow{Key: key, Value: value, IsEncrypted: encrypted})
	return nil
}

func (f *fakeSettingsStore) GetSystemSetting(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.systemKV[key]
	return v, ok, nil
}

func (f *fakeSettingsStore) SetSystemSetting(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systemKV[key] = value
	return nil
}

func newTestProvider(store *fakeSettingsStore) *Provider {
	return &Provider{
		store:  store,
		cipher: newCipher(store, nil),
		cache:  cache.New[*TenantSettings](time.Minute, 100),
	}
}

func TestTenantSettings_TypedAccessors_Defaults(t *testing.T) {
	s := &TenantSettings{values: map[string]string{
		"max_tickets": "250",
		"enabled":     "true",
		"domain":      "acme.freshdesk.com",
	}}

	if got := s.String("domain", "fallback"); got != "acme.freshdesk.com" {
		t.Errorf("String: got %q", got)
	}
	if got := s.String("missing", "fallback"); got != "fallback" {
		t.Errorf("String default: got %q", got)
	}
	if got := s.Int("max_tickets", 100); got != 250 {
		t.Errorf("Int: got %d", got)
	}
	if got := s.Int("missing", 100); got != 100 {
		t.Errorf("Int default: got %d", got)
	}
	if got := s.Int("domain", 100); got != 100 {
		t.Errorf("Int unparseable should fall back to default: got %d", got)
	}
	if got := s.Bool("enabled", false); got != true {
		t.Errorf("Bool: got %v", got)
	}
	if got := s.Bool("missing", true); got != true {
		t.Errorf("Bool default: got %v", got)
	}
}

func TestProvider_Get_CachesAcrossCalls(t *testing.T) {
	store := newFakeSettingsStore()
	_ = store.SetTenantSetting(context.Background(), "acme", "raw_data_chunk_size", "500", false)
	p := newTestProvider(store)
	tctx := &Context{TenantID: "acme", Platform: "freshdesk"}

	s1, err := p.Get(context.Background(), tctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s1.String("raw_data_chunk_size", "") != "500" {
		t.Fatalf("unexpected value: %v", s1)
	}

	if _, err := p.Get(context.Background(), tctx); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if store.getCalls != 1 {
		t.Fatalf("expected exactly one store fetch due to caching, got %d", store.getCalls)
	}
}

func TestProvider_Set_InvalidatesCache(t *testing.T) {
	store := newFakeSettingsStore()
	p := newTestProvider(store)
	tctx := &Context{TenantID: "acme", Platform: "freshdesk"}

	if _, err := p.Get(context.Background(), tctx); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := p.Set(context.Background(), tctx, "sync_ingest_max_tickets", "42", false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s2, err := p.Get(context.Background(), tctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s2.String("sync_ingest_max_tickets", "") != "42" {
		t.Fatalf("expected fresh value after cache invalidation, got %v", s2)
	}
	if store.getCalls != 2 {
		t.Fatalf("expected a second store fetch after invalidation, got %d", store.getCalls)
	}
}

func TestProvider_Set_EncryptsAndRoundTrips(t *testing.T) {
	store := newFakeSettingsStore()
	p := newTestProvider(store)
	tctx := &Context{TenantID: "acme", Platform: "freshdesk"}

	if err := p.Set(context.Background(), tctx, "api_key", "very-secret", true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	rows := store.rows["acme"]
	if len(rows) != 1 || rows[0].Value == "very-secret" {
		t.Fatalf("expected stored value to be ciphertext, got %+v", rows)
	}

	s, err := p.Get(context.Background(), tctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s.String("api_key", "") != "very-secret" {
		t.Fatalf("expected decrypted round-trip, got %q", s.String("api_key", ""))
	}
}

func TestProvider_Get_SkipsUndecryptableRows(t *testing.T) {
	store := newFakeSettingsStore()
	_ = store.SetTenantSetting(context.Background(), "acme", "corrupt", "not-valid-ciphertext", true)
	_ = store.SetTenantSetting(context.Background(), "acme", "plain", "ok", false)
	p := newTestProvider(store)
	tctx := &Context{TenantID: "acme", Platform: "freshdesk"}

	s, err := p.Get(context.Background(), tctx)
	if err != nil {
		t.Fatalf("Get must not fail outright on one corrupt row: %v", err)
	}
	if s.String("plain", "") != "ok" {
		t.Fatalf("expected unaffected sibling row to load: %v", s)
	}
	if _, ok := s.values["corrupt"]; ok {
		t.Fatalf("expected corrupt row to be skipped, not surfaced")
	}
}
