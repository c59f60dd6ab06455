package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TenantSetting holds the schema definition for the TenantSetting
// entity: a per-tenant key/value configuration row, optionally
// encrypted at rest with the master key stored in SystemSetting.
type TenantSetting struct {
	ent.Schema
}

// Fields of the TenantSetting.
func (TenantSetting) Fields() []ent.Field {
	return []ent.Field{
		field.Int("id"),
		field.String("tenant_id").
			Immutable(),
		field.String("key").
			Immutable(),
		field.Text("value").
			Comment("Ciphertext when is_encrypted=true, plaintext otherwise"),
		field.Bool("is_encrypted").
			Default(false),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the TenantSetting.
func (TenantSetting) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "key").
			Unique(),
	}
}
