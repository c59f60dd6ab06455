package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// SystemSetting holds the schema definition for the SystemSetting
// entity: process-wide key/value settings, notably the auto-generated
// symmetric encryption key used to encrypt TenantSetting values.
type SystemSetting struct {
	ent.Schema
}

// Fields of the SystemSetting.
func (SystemSetting) Fields() []ent.Field {
	return []ent.Field{
		field.String("key").
			Unique().
			Immutable(),
		field.Text("value"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}
