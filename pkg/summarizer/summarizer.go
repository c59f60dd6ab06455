// Package summarizer implements the Summarizer (C5): structured four-section
// ticket summaries with a weighted quality score and bounded-concurrency
// batch mode, per spec.md §4.5. Grounded on the original project's
// SummarizationChain (prompt shape, response fields) and BatchSummarizer /
// QualityAssuranceEngine (the weighted scoring formula and retry gate) —
// the teacher repo has no summarization component to generalize from, so
// the Router's HTTP-client idiom (pkg/llm) is reused here and the domain
// logic is grounded entirely on original_source.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/llm"
)

// Conversation is one turn of ticket history fed into the summary context.
type Conversation struct {
	FromCustomer bool
	Body         string
}

// Ticket is the input record to summarize.
type Ticket struct {
	ID            string
	Subject       string
	Body          string
	Conversations []Conversation
}

// Summary is the parsed structured output, matching spec.md §4.5's exact
// field set.
type Summary struct {
	TicketSummary        string
	KeyPoints            []string
	Sentiment            string
	PriorityRecommendation string
	UrgencyLevel         string

	RawText string // the full markdown response, kept for quality scoring
}

const (
	// defaultHistoryTurns is spec.md §4.5's K=5: how many trailing
	// conversation turns are folded into the prompt context.
	defaultHistoryTurns = 5
	// historyTurnTrimChars bounds each included turn to 200 chars.
	historyTurnTrimChars = 200
)

// Summarizer produces structured ticket summaries by calling the LLM
// Router with the heavy task class, per spec.md §4.4/§4.5.
type Summarizer struct {
	router *llm.Router
}

// New builds a Summarizer over router.
func New(router *llm.Router) *Summarizer {
	return &Summarizer{router: router}
}

// BuildContext renders a ticket plus its last K conversation turns into the
// plain-text block the prompt embeds, mirroring the original
// SummarizationChain._build_ticket_context layout (subject, body, then a
// trailing conversation log with each turn trimmed).
func BuildContext(t Ticket, historyTurns int) string {
	if historyTurns <= 0 {
		historyTurns = defaultHistoryTurns
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", t.Subject)
	fmt.Fprintf(&b, "Description: %s\n", t.Body)

	turns := t.Conversations
	if len(turns) > historyTurns {
		turns = turns[len(turns)-historyTurns:]
	}
	if len(turns) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, c := range turns {
			speaker := "Agent"
			if c.FromCustomer {
				speaker = "Customer"
			}
			body := c.Body
			if len(body) > historyTurnTrimChars {
				body = body[:historyTurnTrimChars] + "..."
			}
			fmt.Fprintf(&b, "- %s: %s\n", speaker, body)
		}
	}
	return b.String()
}

const systemPrompt = "You are an expert analyst summarizing customer support tickets into a structured report."

// promptTemplate requires the same four sections quality.go's structure
// score checks for: Problem Situation, Root Cause, Resolution Process, Key
// Points (Korean markers by default, per spec.md §4.5; English equivalents
// are accepted by evaluateStructure too).
const promptTemplate = `Analyze the following support ticket and produce a structured summary:

%s

Respond in markdown using exactly this structure:

## 🔍 문제 상황
[2-3 sentences describing the situation]

## 🎯 근본 원인
[the underlying cause, if identifiable]

## 🔧 해결 과정
[steps taken to resolve the issue]

## 💡 핵심 포인트
1. [most important point]
2. [second point]
3. [third point]
`

// Generate calls the Router with the heavy task class and parses the
// response into a Summary, following the original
// SummarizationChain._summarize_ticket response shape (sentiment,
// priority_recommendation and urgency_level are fixed defaults in the
// original since the prompt never asks the model to classify them
// separately — this keeps the same contract rather than inventing a
// classification scheme the ported prompt was never designed to answer).
func (s *Summarizer) Generate(ctx context.Context, t Ticket) (Summary, error) {
	prompt := fmt.Sprintf(promptTemplate, BuildContext(t, defaultHistoryTurns))

	resp, err := s.router.Generate(ctx, llm.Request{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		MaxTokens:    1024,
		Temperature:  0.2,
		TaskType:     config.TaskTypeHeavy,
	})
	if err != nil {
		return Summary{}, apperrors.Wrap(apperrors.KindLLM, "summarizer", "ticket summary generation failed", err)
	}

	return parseSummary(resp.Text), nil
}

func parseSummary(text string) Summary {
	return Summary{
		TicketSummary:          strings.TrimSpace(text),
		KeyPoints:              extractKeyPoints(text),
		Sentiment:              "neutral",
		PriorityRecommendation: "normal",
		UrgencyLevel:           "normal",
		RawText:                text,
	}
}

// extractKeyPoints pulls the numbered lines under the Key Points section.
// The original implementation returns a fixed placeholder list rather than
// parsing the numbered items back out; this does the actual parsing since
// the section is already guaranteed present by the prompt template, and a
// real list is strictly more useful to a caller than a placeholder.
func extractKeyPoints(text string) []string {
	var points []string
	lines := strings.Split(text, "\n")
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "핵심 포인트") || strings.Contains(strings.ToLower(trimmed), "key points") {
			inSection = true
			continue
		}
		if inSection {
			if strings.HasPrefix(trimmed, "##") {
				break
			}
			if trimmed == "" {
				continue
			}
			trimmed = strings.TrimLeft(trimmed, "0123456789. -")
			if trimmed != "" {
				points = append(points, trimmed)
			}
		}
	}
	return points
}
