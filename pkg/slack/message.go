package slack

import (
	"fmt"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

var statusEmoji = map[string]string{
	"completed": ":white_check_mark:",
	"failed":    ":x:",
	"cancelled": ":no_entry_sign:",
}

var statusLabel = map[string]string{
	"completed": "Ingestion Complete",
	"failed":    "Ingestion Failed",
	"cancelled": "Ingestion Cancelled",
}

// JobCompletedInput describes one terminal-state ingestion job (C7),
// reported after the Job Manager's runJob finishes, per spec.md §4.7.
type JobCompletedInput struct {
	JobID            string
	TenantID         string
	Platform         string
	Status           string // completed, failed, cancelled
	TicketsCollected int
	ErrorMessage     string
}

// BuildJobCompletedMessage creates Block Kit blocks for a terminal
// ingestion job notification. Adapted from BuildTerminalMessage
// (pre-rewrite): same emoji/label/truncation shape, generalized from an
// SRE session's executive summary to an ingestion job's tickets-collected
// count, with the dashboard deep-link dropped — this service has no
// dashboard surface.
func BuildJobCompletedMessage(input JobCompletedInput) []goslack.Block {
	emoji := statusEmoji[input.Status]
	if emoji == "" {
		emoji = ":question:"
	}
	label := statusLabel[input.Status]
	if label == "" {
		label = "Ingestion " + input.Status
	}

	headerText := fmt.Sprintf("%s *%s* — tenant `%s`, platform `%s`", emoji, label, input.TenantID, input.Platform)
	if input.Status == "completed" {
		headerText += fmt.Sprintf("\n%d ticket(s) collected", input.TicketsCollected)
	}
	if input.ErrorMessage != "" {
		headerText += fmt.Sprintf("\n\n*Error:*\n%s", truncateForSlack(input.ErrorMessage))
	}

	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, headerText, false, false),
			nil, nil,
		),
		goslack.NewContextBlock("",
			goslack.NewTextBlockObject(goslack.MarkdownType, "job `"+input.JobID+"`", false, false),
		),
	}
}

// PurgeCompletedInput describes one completed data-purge operation,
// reported by POST /ingest/security/purge-data.
type PurgeCompletedInput struct {
	TenantID        string
	Platform        string
	Hard            bool
	ObjectsAffected int
	VectorsAffected int
}

// BuildPurgeCompletedMessage creates Block Kit blocks for a completed
// purge-data notification. A security-sensitive operation warrants a
// record in the ops channel independent of the HTTP response the caller
// already received.
func BuildPurgeCompletedMessage(input PurgeCompletedInput) []goslack.Block {
	kind := "soft"
	if input.Hard {
		kind = "hard"
	}
	text := fmt.Sprintf(":warning: *Data purge (%s)* — tenant `%s`, platform `%s`\n%d object(s), %d vector(s) affected",
		kind, input.TenantID, input.Platform, input.ObjectsAffected, input.VectorsAffected)

	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}

func truncateForSlack(text string) string {
	runes := []rune(text)
	if len(runes) <= maxBlockTextLength {
		return text
	}
	return string(runes[:maxBlockTextLength]) + "\n\n_... (truncated)_"
}
