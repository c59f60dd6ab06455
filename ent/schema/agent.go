package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Agent holds the schema definition for the Agent entity: a SaaS-side
// human user of the platform for one tenant. Not on the ingestion
// critical path; specified only as a persistence table (spec.md §3.2).
type Agent struct {
	ent.Schema
}

// Fields of the Agent.
func (Agent) Fields() []ent.Field {
	return []ent.Field{
		field.Int("id"),
		field.String("tenant_id").
			Immutable(),
		field.String("platform").
			Immutable(),
		field.String("original_id").
			Immutable(),
		field.String("email"),
		field.String("display_name").
			Optional(),
		field.Bool("active").
			Default(true),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the Agent.
func (Agent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "platform", "original_id").
			Unique(),
	}
}
