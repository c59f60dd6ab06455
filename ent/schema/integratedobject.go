package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// IntegratedObject holds the schema definition for the IntegratedObject
// entity: the canonical, platform-neutral record for every ticket,
// conversation, article, or attachment ingested from an upstream
// help-desk platform.
//
// Identity is the 3-tuple (tenant_id, platform, original_id) scoped by
// object_type; every predicate touching this table must filter on at
// least tenant_id (and, outside single-tenant schema-per-tenant
// deployments, platform) to preserve tenant isolation.
type IntegratedObject struct {
	ent.Schema
}

// Fields of the IntegratedObject.
func (IntegratedObject) Fields() []ent.Field {
	return []ent.Field{
		field.Int("id").
			Comment("Surrogate primary key; not part of the object's identity"),
		field.String("tenant_id").
			Immutable(),
		field.String("platform").
			Immutable().
			Comment("Upstream help-desk platform, e.g. 'freshdesk'"),
		field.Enum("object_type").
			Values("ticket", "conversation", "article", "attachment").
			Immutable(),
		field.String("original_id").
			Immutable().
			Comment("Upstream provider id, prefix-stripped and normalized to a string"),
		field.JSON("original_data", map[string]interface{}{}).
			Comment("Opaque upstream payload, preserved for replay/debugging"),
		field.Text("integrated_content").
			Comment("Normalized searchable text derived from original_data"),
		field.Text("summary").
			Optional().
			Nillable().
			Comment("LLM-generated summary; nil until the summarizer has run"),
		field.JSON("metadata", map[string]interface{}{}).
			Optional().
			Comment("status, priority, dates, parent refs, custom fields, attachment/image counts"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
		field.Time("deleted_at").
			Optional().
			Nillable().
			Comment("Soft delete; row is recoverable for 30 days"),
	}
}

// Indexes of the IntegratedObject.
func (IntegratedObject) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "platform", "object_type", "original_id").
			Unique(),
		index.Fields("tenant_id"),
		index.Fields("tenant_id", "platform"),
		index.Fields("tenant_id", "object_type"),
		index.Fields("original_id"),
		index.Fields("created_at"),
		index.Fields("deleted_at").
			Annotations(entsql.IndexWhere("deleted_at IS NOT NULL")),
	}
}

// Annotations for PostgreSQL-specific features.
// The GIN index over metadata (central schema-per-tenant backend only)
// is created via a migration hook in pkg/database, mirroring how the
// teacher repo layers full-text/GIN indexes on top of Ent's schema.
func (IntegratedObject) Annotations() []schema.Annotation {
	return []schema.Annotation{}
}
