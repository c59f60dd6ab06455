package retrieval

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/llm"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/platform"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/summarizer"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantctx"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantstore"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/vectorstore"
)

// liveFetchTimeout bounds the init flow's live-ticket fetch, per spec.md
// §4.8 step 1 ("short timeout").
const liveFetchTimeout = 3 * time.Second

// similarTicketK and kbArticleK are the default per-branch result counts
// for the init flow's parallel searches.
const (
	similarTicketK = 5
	kbArticleK     = 5
)

// ErrTicketNotFound is returned when a ticket is absent from both the
// live platform adapter and the fallback stores.
var ErrTicketNotFound = apperrors.New(apperrors.KindNotFound, "retrieval", "ticket not found")

// Orchestrator implements C8, wiring the platform adapter (C1), the
// tenant store (C2), the vector store (C3), the LLM router (C4), the
// summarizer (C5), and tenant settings (C9).
type Orchestrator struct {
	adapter    platform.Capability
	store      tenantstore.Store
	vectors    vectorstore.Store
	router     *llm.Router
	summarizer *summarizer.Summarizer
	settings   *tenantctx.Provider
	defaults   *config.TenantDefaults
}

// New builds an Orchestrator. defaults falls back to
// config.DefaultTenantDefaults() if nil.
func New(adapter platform.Capability, store tenantstore.Store, vectors vectorstore.Store, router *llm.Router, summarizer *summarizer.Summarizer, settings *tenantctx.Provider, defaults *config.TenantDefaults) *Orchestrator {
	if defaults == nil {
		defaults = config.DefaultTenantDefaults()
	}
	return &Orchestrator{
		adapter:    adapter,
		store:      store,
		vectors:    vectors,
		router:     router,
		summarizer: summarizer,
		settings:   settings,
		defaults:   defaults,
	}
}

// conversationLimits resolves the smart conversation filter's bounds,
// preferring a tenant-specific override (C9) over the system default.
func (o *Orchestrator) conversationLimits(ctx context.Context, tctx *tenantctx.Context) (maxTurns, maxChars int) {
	maxTurns, maxChars = o.defaults.ConversationMaxTurns, o.defaults.ConversationMaxChars
	if o.settings == nil {
		return maxTurns, maxChars
	}
	s, err := o.settings.Get(ctx, tctx)
	if err != nil {
		return maxTurns, maxChars
	}
	return s.Int("conversation_max_turns", maxTurns), s.Int("conversation_max_chars", maxChars)
}

// Init runs the `/init` flow, per spec.md §4.8. progressFn, when
// non-nil, receives one ProgressEvent per completed stage.
func (o *Orchestrator) Init(ctx context.Context, tctx *tenantctx.Context, ticketID string, progressFn func(ProgressEvent)) (InitResult, error) {
	emit := func(stage string, percent float64) {
		if progressFn != nil {
			progressFn(ProgressEvent{Stage: stage, ProgressPercent: percent})
		}
	}

	ticket, err := o.fetchTicket(ctx, tctx, ticketID)
	if err != nil {
		return InitResult{}, err
	}
	emit("ticket_fetched", 10)

	maxTurns, maxChars := o.conversationLimits(ctx, tctx)
	filtered := filterConversations(ticket.Conversations, maxTurns, maxChars)
	ticket.Conversations = filtered
	content := buildTicketContent(ticket)
	emit("content_built", 20)

	embedding, err := o.router.Embed(ctx, "", content)
	if err != nil {
		return InitResult{}, apperrors.Wrap(apperrors.KindLLM, "retrieval", "ticket embedding failed", err)
	}

	// spec.md §4.8 describes 4 branches "started simultaneously"; the 4th
	// (per-similar-ticket short summaries) genuinely depends on the
	// similar-tickets branch's result, so it fans out as soon as that one
	// resolves rather than at t=0. The other 3 start together.
	var (
		summaryText    string
		summaryErr     error
		similarResults []vectorstore.SearchResult
		similarTickets []SimilarTicket
		similarErr     error
		kbResults      []vectorstore.SearchResult
		kbErr          error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		sum, err := o.summarizer.Generate(ctx, summarizer.Ticket{
			ID:      ticket.OriginalID,
			Subject: ticket.Subject,
			Body:    ticket.Description,
		})
		if err != nil {
			summaryErr = err
			return
		}
		summaryText = sum.TicketSummary
	}()
	go func() {
		defer wg.Done()
		similarResults, similarErr = o.searchExcluding(ctx, tctx, embedding, "ticket", similarTicketK, ticketID)
		if similarErr == nil {
			similarTickets = o.lightSummarizeAll(ctx, similarResults)
		}
	}()
	go func() {
		defer wg.Done()
		kbResults, kbErr = o.vectors.Search(ctx, vectorstore.SearchQuery{
			QueryEmbedding: embedding,
			TopK:           kbArticleK,
			TenantID:       tctx.TenantID,
			Platform:       tctx.Platform,
			DocType:        "article",
		})
	}()
	wg.Wait()
	emit("summary_and_search_complete", 60)

	if summaryErr != nil {
		return InitResult{}, summaryErr
	}
	if similarErr != nil {
		return InitResult{}, similarErr
	}
	if kbErr != nil {
		return InitResult{}, kbErr
	}

	emit("similar_ticket_summaries_complete", 90)

	emit("done", 100)
	return InitResult{
		Ticket:         ticket,
		Summary:        summaryText,
		SimilarTickets: similarTickets,
		KBArticles:     kbResults,
	}, nil
}

// searchExcluding runs a C3 search and drops any hit matching
// excludeOriginalID, re-requesting one extra slot up front so a match
// doesn't leave the caller short a result.
func (o *Orchestrator) searchExcluding(ctx context.Context, tctx *tenantctx.Context, embedding []float32, docType string, k int, excludeOriginalID string) ([]vectorstore.SearchResult, error) {
	results, err := o.vectors.Search(ctx, vectorstore.SearchQuery{
		QueryEmbedding: embedding,
		TopK:           k + 1,
		TenantID:       tctx.TenantID,
		Platform:       tctx.Platform,
		DocType:        docType,
	})
	if err != nil {
		return nil, err
	}
	out := make([]vectorstore.SearchResult, 0, k)
	for _, r := range results {
		if r.Point.Tuple.OriginalID == excludeOriginalID {
			continue
		}
		out = append(out, r)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// lightSummarizeAll produces a short summary per similar ticket (spec.md
// §4.8 step 3's "light mode"), one goroutine per result joined with a
// WaitGroup. A branch that fails leaves its ShortSummary empty rather than
// losing the whole result set over one slow/failed call; the failure is
// not logged.
func (o *Orchestrator) lightSummarizeAll(ctx context.Context, results []vectorstore.SearchResult) []SimilarTicket {
	out := make([]SimilarTicket, len(results))
	var wg sync.WaitGroup
	wg.Add(len(results))
	for i, r := range results {
		i, r := i, r
		out[i] = SimilarTicket{Result: r}
		go func() {
			defer wg.Done()
			sum, err := o.summarizer.Generate(ctx, summarizer.Ticket{
				ID:   r.Point.Tuple.OriginalID,
				Body: r.Point.Summary,
			})
			if err != nil {
				return
			}
			out[i].ShortSummary = sum.TicketSummary
		}()
	}
	wg.Wait()
	return out
}

// fetchTicket implements spec.md §4.8 step 1: a short-timeout live fetch
// through C1, falling back to a C2/C3 lookup by the 3-tuple identity on
// failure.
func (o *Orchestrator) fetchTicket(ctx context.Context, tctx *tenantctx.Context, ticketID string) (TicketView, error) {
	liveCtx, cancel := context.WithTimeout(ctx, liveFetchTimeout)
	defer cancel()

	rec, ok, err := o.adapter.GetTicket(liveCtx, ticketID)
	if err == nil && ok {
		return o.assembleLiveTicket(ctx, rec)
	}

	return o.fetchTicketFromStores(ctx, tctx, ticketID)
}

func (o *Orchestrator) assembleLiveTicket(ctx context.Context, rec platform.Record) (TicketView, error) {
	view := TicketView{OriginalID: rec.OriginalID, Description: rec.Content}
	if subject, ok := rec.OriginalData["subject"].(string); ok {
		view.Subject = subject
	}

	convRecs, err := o.adapter.ListConversations(ctx, rec.OriginalID)
	if err != nil {
		return view, nil //nolint:nilerr // conversations are an enrichment, not required for the ticket to exist
	}
	for _, c := range convRecs {
		fromCustomer, _ := c.Metadata["from_customer"].(bool)
		view.Conversations = append(view.Conversations, Conversation{
			FromCustomer: fromCustomer,
			Body:         c.Content,
			CreatedAt:    c.CreatedAt,
		})
	}
	return view, nil
}

// fetchTicketFromStores scans C2 for the ticket, falling further back to
// C3's summary-only record if C2 also has nothing — the vector store
// always outlives a soft-deleted C2 row within the retention window.
func (o *Orchestrator) fetchTicketFromStores(ctx context.Context, tctx *tenantctx.Context, ticketID string) (TicketView, error) {
	objects, err := o.store.GetByType(ctx, tctx.TenantID, tctx.Platform, platform.ObjectTypeTicket)
	if err == nil {
		for _, obj := range objects {
			if obj.OriginalID == ticketID {
				view := TicketView{OriginalID: obj.OriginalID, Description: obj.IntegratedContent}
				if subject, ok := obj.Metadata["subject"].(string); ok {
					view.Subject = subject
				}
				return view, nil
			}
		}
	}

	point, found, err := o.vectors.GetByID(ctx, tctx.TenantID, tctx.Platform, "ticket", ticketID)
	if err != nil {
		return TicketView{}, apperrors.Wrap(apperrors.KindVectorDB, "retrieval", "fallback ticket lookup failed", err)
	}
	if !found {
		return TicketView{}, ErrTicketNotFound
	}
	return TicketView{OriginalID: ticketID, Description: point.Summary}, nil
}

// filterConversations implements the init flow's "smart filter": keep at
// most maxTurns conversations, preferring the most informative ones
// (longer bodies carry more signal than one-line replies), each trimmed
// to maxChars, restored to chronological order afterward so the rendered
// transcript still reads top-to-bottom.
func filterConversations(turns []Conversation, maxTurns, maxChars int) []Conversation {
	if maxTurns <= 0 {
		return nil
	}
	selected := append([]Conversation(nil), turns...)
	sort.SliceStable(selected, func(i, j int) bool { return len(selected[i].Body) > len(selected[j].Body) })
	if len(selected) > maxTurns {
		selected = selected[:maxTurns]
	}
	sort.SliceStable(selected, func(i, j int) bool { return selected[i].CreatedAt.Before(selected[j].CreatedAt) })

	if maxChars > 0 {
		for i, c := range selected {
			if len(c.Body) > maxChars {
				selected[i].Body = c.Body[:maxChars]
			}
		}
	}
	return selected
}

// buildTicketContent renders the content string spec.md §4.8 step 2
// describes: "subject: … \n description: … \n conversations: …".
func buildTicketContent(t TicketView) string {
	var b strings.Builder
	b.WriteString("subject: ")
	b.WriteString(t.Subject)
	b.WriteString("\ndescription: ")
	b.WriteString(t.Description)
	b.WriteString("\nconversations: ")
	for i, c := range t.Conversations {
		if i > 0 {
			b.WriteString(" | ")
		}
		speaker := "agent"
		if c.FromCustomer {
			speaker = "customer"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(c.Body)
	}
	return b.String()
}

// Query runs the `/query` flow, per spec.md §4.8.
func (o *Orchestrator) Query(ctx context.Context, tctx *tenantctx.Context, q string, filters QueryFilters) (QueryResult, error) {
	embedding, err := o.router.Embed(ctx, "", q)
	if err != nil {
		return QueryResult{}, apperrors.Wrap(apperrors.KindLLM, "retrieval", "query embedding failed", err)
	}

	topK := filters.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	results, err := o.searchByFilters(ctx, tctx, embedding, filters, topK)
	if err != nil {
		return QueryResult{}, err
	}

	docs := make([]Document, len(results))
	for i, r := range results {
		docs[i] = docFromSearchResult(r)
	}

	build := Build(docs, BuildOptions{
		Query:                     q,
		MaxTokens:                 MaxContextTokens,
		TopK:                      topK,
		EnableRelevanceExtraction: true,
	})

	intent := filters.Intent
	if intent == "" {
		intent = IntentAnswer
	}
	resp, err := o.router.Generate(ctx, llm.Request{
		Prompt:       build.Context + "\n\nQuestion: " + q,
		SystemPrompt: systemPromptFor(intent),
		MaxTokens:    1024,
		Temperature:  0.2,
		TaskType:     llm.ClassifyTaskType(string(intent)),
	})
	if err != nil {
		return QueryResult{}, apperrors.Wrap(apperrors.KindLLM, "retrieval", "query answer generation failed", err)
	}

	return QueryResult{
		Answer:          resp.Text,
		Citations:       citationsFrom(build.Documents),
		ContextMetadata: build.Metadata,
	}, nil
}

// searchByFilters issues one or two C3 searches depending on
// filters.DocType, splitting topK across ticket/kb when both are in
// scope, per spec.md §4.8 query step 2, then merges and truncates by
// score (step 3).
func (o *Orchestrator) searchByFilters(ctx context.Context, tctx *tenantctx.Context, embedding []float32, filters QueryFilters, topK int) ([]vectorstore.SearchResult, error) {
	search := func(docType string, k int) ([]vectorstore.SearchResult, error) {
		return o.vectors.Search(ctx, vectorstore.SearchQuery{
			QueryEmbedding: embedding,
			TopK:           k,
			TenantID:       tctx.TenantID,
			Platform:       filters.Platform,
			DocType:        docType,
		})
	}

	if filters.DocType != "" {
		return search(filters.DocType, topK)
	}

	ticketK := topK / 2
	kbK := topK - ticketK
	tickets, err := search("ticket", ticketK)
	if err != nil {
		return nil, err
	}
	articles, err := search("article", kbK)
	if err != nil {
		return nil, err
	}

	merged := append(tickets, articles...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

func docFromSearchResult(r vectorstore.SearchResult) Document {
	return Document{
		Text: r.Point.Summary,
		Metadata: map[string]interface{}{
			"original_id": r.Point.Tuple.OriginalID,
			"doc_type":    r.Point.DocType,
			"source":      r.Point.DocType,
			"score":       r.Score,
		},
	}
}

func citationsFrom(docs []Document) []Citation {
	citations := make([]Citation, 0, len(docs))
	for _, d := range docs {
		c := Citation{}
		if v, ok := d.Metadata["original_id"].(string); ok {
			c.OriginalID = v
		}
		if v, ok := d.Metadata["doc_type"].(string); ok {
			c.DocType = v
		}
		if v, ok := d.Metadata["score"].(float32); ok {
			c.Score = v
		}
		citations = append(citations, c)
	}
	return citations
}

// systemPromptFor composes the system prompt spec.md §4.8 query step 5
// names per intent.
func systemPromptFor(intent Intent) string {
	switch intent {
	case IntentSearch:
		return "You are a support knowledge search assistant. Given the context, list the most relevant matches with brief explanations of why each is relevant."
	case IntentRecommend:
		return "You are a support resolution advisor. Given the context, recommend the most likely next action or fix, citing the supporting tickets/articles."
	case IntentSummarize:
		return "You are a support knowledge summarizer. Given the context, produce a concise synthesis of what it collectively says."
	case IntentAnswer:
		fallthrough
	default:
		return "You are a support assistant answering a question using only the provided context. Cite which ticket or article each claim comes from."
	}
}
