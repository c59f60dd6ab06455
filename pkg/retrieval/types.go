// Package retrieval implements the Retrieval Orchestrator (C8): the
// `/init` and `/query` flows that combine a live ticket fetch, parallel
// summary/vector-search branches, and context assembly, per spec.md §4.8.
// Grounded on `backend/core/processing/context_builder.py`
// (original_source) for the Context Builder, and on pkg/summarizer's
// BatchSummarizer for the WaitGroup-based fan-out idiom this codebase
// already uses for bounded parallel work.
package retrieval

import (
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/vectorstore"
)

// Intent classifies a /query request, selecting which system prompt the
// Retrieval Orchestrator composes before calling C4, per spec.md §4.8
// query step 5.
type Intent string

const (
	IntentSearch    Intent = "search"
	IntentRecommend Intent = "recommend"
	IntentAnswer    Intent = "answer"
	IntentSummarize Intent = "summarize"
)

// Document is one candidate passage fed into the Context Builder: the
// text plus whatever metadata the Builder's quality score and relevance
// extraction read from.
type Document struct {
	Text     string
	Metadata map[string]interface{}
}

// BuildResult is the Context Builder's output, mirroring
// build_optimized_context's (context, metadatas, optimization_metadata)
// return triple.
type BuildResult struct {
	Context   string
	Documents []Document
	Metadata  BuildMetadata
}

// BuildMetadata tracks how many documents survived each Context Builder
// stage, for observability and for tests asserting the pipeline actually
// ran each step.
type BuildMetadata struct {
	OriginalCount              int
	AfterTopKCount             int
	AfterDeduplicationCount    int
	AfterRelevanceExtraction   int
	FinalCount                 int
	TokenCount                 int
	QueryProvided              bool
	RelevanceExtractionApplied bool
}

// Conversation is one ticket conversation turn, already platform-neutral.
type Conversation struct {
	FromCustomer bool
	Body         string
	CreatedAt    time.Time
}

// TicketView is the neutral ticket shape the init flow assembles from
// either a live C1 fetch or a C2/C3 fallback lookup.
type TicketView struct {
	OriginalID    string
	Subject       string
	Description   string
	Conversations []Conversation
}

// SimilarTicket pairs a vector-search hit with its short summary,
// produced by the init flow's 4th parallel branch.
type SimilarTicket struct {
	Result       vectorstore.SearchResult
	ShortSummary string
}

// ProgressEvent is one streamed update for a streaming /init request, per
// spec.md §4.8 step 4: "{stage, progress_percent, remaining_time}".
type ProgressEvent struct {
	Stage           string
	ProgressPercent float64
	RemainingTime   time.Duration
}

// InitResult is the aggregate response of the init flow.
type InitResult struct {
	Ticket         TicketView
	Summary        string
	SimilarTickets []SimilarTicket
	KBArticles     []vectorstore.SearchResult
}

// QueryFilters narrows a /query request, per spec.md §4.8 query step 2.
type QueryFilters struct {
	Platform string
	DocType  string // optional; empty searches both tickets and kb
	TopK     int    // 0 uses DefaultTopK
	Intent   Intent
}

// Citation is one context document cited in a /query answer.
type Citation struct {
	OriginalID string
	DocType    string
	Score      float32
}

// QueryResult is the aggregate response of the query flow.
type QueryResult struct {
	Answer          string
	Citations       []Citation
	ContextMetadata BuildMetadata
}
