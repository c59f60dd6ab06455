package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ProgressLog holds the schema definition for the ProgressLog entity: an
// append-only time series of progress reports for one ingestion job,
// surfaced by GET /ingest/progress/{job_id}. Adapted from the teacher's
// TimelineEvent (per-session streamed event log), generalized from a
// session/stage/execution hierarchy down to a single job/step axis.
type ProgressLog struct {
	ent.Schema
}

// Fields of the ProgressLog.
func (ProgressLog) Fields() []ent.Field {
	return []ent.Field{
		field.Int("id"),
		field.String("job_id").
			Immutable(),
		field.String("tenant_id").
			Immutable(),
		field.Int("step").
			Immutable().
			Comment("Monotonic step number within the job"),
		field.Int("total_steps"),
		field.Text("message"),
		field.Float("percentage").
			Comment("0-100, non-decreasing across observations for a given job"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the ProgressLog.
func (ProgressLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("job_id", "tenant_id", "step").
			Unique(),
		index.Fields("job_id", "step"),
		index.Fields("tenant_id", "created_at"),
	}
}
