package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// IngestRunRecord holds the schema definition for the IngestRunRecord
// entity: a durable audit row written once an ingestion job reaches a
// terminal state. The job itself (spec.md §3.2 IngestJob) lives only in
// the process's Job Manager while running; this table is the
// after-the-fact history an operator can query once the in-memory job
// is garbage collected. Adapted from the teacher's AgentExecution (one
// row per agent run within a session).
type IngestRunRecord struct {
	ent.Schema
}

// Fields of the IngestRunRecord.
func (IngestRunRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("job_id").
			Unique().
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.String("platform").
			Immutable(),
		field.Enum("status").
			Values("completed", "failed", "cancelled"),
		field.JSON("config", map[string]interface{}{}).
			Comment("The IngestConfig the job ran with"),
		field.Time("started_at").
			Immutable(),
		field.Time("completed_at"),
		field.Int("tickets_processed").
			Default(0),
		field.String("error_message").
			Optional().
			Nillable(),
	}
}

// Indexes of the IngestRunRecord.
func (IngestRunRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "platform", "completed_at"),
		index.Fields("status"),
	}
}
