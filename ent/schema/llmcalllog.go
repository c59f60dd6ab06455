package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// LLMCallLog holds the schema definition for the LLMCallLog entity: an
// audit record for every LLM Router generate() call, including which
// provider ultimately served it and whether it was a fallback. Adapted
// from the teacher's LLMInteraction (full API request/response capture
// for debugging), generalized from a session/stage/execution hierarchy
// to a tenant-scoped audit trail.
type LLMCallLog struct {
	ent.Schema
}

// Fields of the LLMCallLog.
func (LLMCallLog) Fields() []ent.Field {
	return []ent.Field{
		field.Int("id"),
		field.String("tenant_id").
			Immutable(),
		field.Enum("task_type").
			Values("light", "heavy").
			Immutable(),
		field.String("provider").
			Comment("Provider that ultimately served the request"),
		field.String("model"),
		field.Int("attempt").
			Comment("1 = first provider tried, >1 = fallback chain position"),
		field.Bool("is_fallback"),
		field.Int("tokens_in").
			Optional().
			Nillable(),
		field.Int("tokens_out").
			Optional().
			Nillable(),
		field.Int("duration_ms"),
		field.String("error_message").
			Optional().
			Nillable().
			Comment("null = success"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the LLMCallLog.
func (LLMCallLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "created_at"),
		index.Fields("provider", "created_at"),
	}
}
