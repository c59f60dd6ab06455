package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SummaryQualityScore holds the schema definition for the
// SummaryQualityScore entity: the weighted quality score computed by
// the Summarizer's batch mode for a single generated summary, including
// the per-dimension breakdown and whether it triggered a retry. Adapted
// from the teacher's SessionScore (LLM-judged quality score per alert
// session).
type SummaryQualityScore struct {
	ent.Schema
}

// Fields of the SummaryQualityScore.
func (SummaryQualityScore) Fields() []ent.Field {
	return []ent.Field{
		field.Int("id"),
		field.String("tenant_id").
			Immutable(),
		field.String("platform").
			Immutable(),
		field.String("original_id").
			Immutable().
			Comment("The ticket this summary was produced for"),
		field.Float("overall_score").
			Comment("Weighted composite, 0-1"),
		field.Float("structure_score"),
		field.Float("completion_info_score"),
		field.Float("content_fidelity_score"),
		field.Float("language_quality_score"),
		field.Float("length_score"),
		field.Int("attempt").
			Comment("1-based retry attempt that produced this score"),
		field.Bool("passed").
			Comment("true when overall >= threshold and structure >= structure threshold"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the SummaryQualityScore.
func (SummaryQualityScore) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "platform", "original_id"),
		index.Fields("passed"),
		index.Fields("created_at"),
	}
}
