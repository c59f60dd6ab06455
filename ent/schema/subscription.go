package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Subscription holds the schema definition for the Subscription entity:
// the tenant's billing plan and cycle. SaaS-side table, not on the
// ingestion critical path (spec.md §3.2).
type Subscription struct {
	ent.Schema
}

// Fields of the Subscription.
func (Subscription) Fields() []ent.Field {
	return []ent.Field{
		field.Int("id"),
		field.String("tenant_id").
			Immutable(),
		field.String("plan"),
		field.Enum("status").
			Values("trialing", "active", "past_due", "cancelled").
			Default("trialing"),
		field.Time("current_period_end"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the Subscription.
func (Subscription) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id").
			Unique(),
	}
}
