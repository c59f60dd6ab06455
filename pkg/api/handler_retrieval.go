package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/llm"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/retrieval"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantctx"
)

// initHandler handles GET /init/{ticket_id}?stream=bool, per spec.md
// §4.8/§6.1. Streaming emits each ProgressEvent as a Server-Sent Event;
// non-streaming waits for the aggregate and returns JSON.
func (s *Server) initHandler(c *gin.Context) {
	tctx := mustTenantContext(c)
	ticketID := c.Param("ticket_id")
	stream := c.Query("stream") == "true"

	orch, err := s.deps.orchestratorFor(c.Request.Context(), tctx)
	if err != nil {
		abortError(c, err)
		return
	}

	if !stream {
		result, err := orch.Init(c.Request.Context(), tctx, ticketID, nil)
		if err != nil {
			abortError(c, err)
			return
		}
		c.JSON(http.StatusOK, s.renderInitResult(tctx, result))
		return
	}

	s.streamInit(c, tctx, orch, ticketID)
}

// streamInit runs the init flow emitting SSE progress events, followed by
// one final "result" event carrying the same payload initHandler would
// have returned directly.
func (s *Server) streamInit(c *gin.Context, tctx *tenantctx.Context, orch *retrieval.Orchestrator, ticketID string) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, canFlush := c.Writer.(http.Flusher)

	progressFn := func(ev retrieval.ProgressEvent) {
		fmt.Fprintf(c.Writer, "event: progress\ndata: {\"stage\":%q,\"progress_percent\":%s,\"remaining_time_seconds\":%s}\n\n",
			ev.Stage, strconv.FormatFloat(ev.ProgressPercent, 'f', 1, 64), strconv.FormatFloat(ev.RemainingTime.Seconds(), 'f', 1, 64))
		if canFlush {
			flusher.Flush()
		}
	}

	result, err := orch.Init(c.Request.Context(), tctx, ticketID, progressFn)
	if err != nil {
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\":%q}\n\n", err.Error())
		if canFlush {
			flusher.Flush()
		}
		return
	}

	body := s.renderInitResult(tctx, result)
	fmt.Fprintf(c.Writer, "event: result\ndata: %s\n\n", encodeSSEPayload(body))
	if canFlush {
		flusher.Flush()
	}
}

// renderInitResult converts a retrieval.InitResult into the wire shape,
// storing it in the reply-context store so a follow-up POST /reply can
// ground itself in the same ticket.
func (s *Server) renderInitResult(tctx *tenantctx.Context, result retrieval.InitResult) initResponse {
	contextID := s.deps.replyContexts.Put(tctx.TenantID, result.Ticket, result.Summary)

	similar := make([]similarTicketResponse, 0, len(result.SimilarTickets))
	for _, st := range result.SimilarTickets {
		similar = append(similar, similarTicketResponse{
			OriginalID:   st.Result.Point.Tuple.OriginalID,
			Score:        st.Result.Score,
			Summary:      st.Result.Point.Summary,
			ShortSummary: st.ShortSummary,
		})
	}

	kb := make([]kbArticleResponse, 0, len(result.KBArticles))
	for _, a := range result.KBArticles {
		kb = append(kb, kbArticleResponse{
			OriginalID: a.Point.Tuple.OriginalID,
			Score:      a.Score,
			Summary:    a.Point.Summary,
		})
	}

	return initResponse{
		ContextID: contextID,
		Ticket: ticketResponse{
			OriginalID:  result.Ticket.OriginalID,
			Subject:     result.Ticket.Subject,
			Description: result.Ticket.Description,
		},
		Summary:        result.Summary,
		SimilarTickets: similar,
		KBArticles:     kb,
	}
}

// queryHandler handles POST /query, per spec.md §4.8's query flow.
func (s *Server) queryHandler(c *gin.Context) {
	tctx := mustTenantContext(c)

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, apperrors.Wrap(apperrors.KindValidation, "api", "invalid request body", err))
		return
	}

	orch, err := s.deps.orchestratorFor(c.Request.Context(), tctx)
	if err != nil {
		abortError(c, err)
		return
	}

	filters := retrieval.QueryFilters{
		Platform: tctx.Platform,
		DocType:  req.DocType,
		TopK:     req.TopK,
		Intent:   intentFrom(req.Intent),
	}

	result, err := orch.Query(c.Request.Context(), tctx, req.Query, filters)
	if err != nil {
		abortError(c, err)
		return
	}

	citations := make([]citationResponse, 0, len(result.Citations))
	for _, cit := range result.Citations {
		citations = append(citations, citationResponse{OriginalID: cit.OriginalID, DocType: cit.DocType, Score: cit.Score})
	}

	c.JSON(http.StatusOK, queryResponse{
		Answer:    result.Answer,
		Citations: citations,
		ContextMetadata: map[string]interface{}{
			"original_count":               result.ContextMetadata.OriginalCount,
			"after_top_k_count":            result.ContextMetadata.AfterTopKCount,
			"after_deduplication_count":    result.ContextMetadata.AfterDeduplicationCount,
			"after_relevance_extraction":   result.ContextMetadata.AfterRelevanceExtraction,
			"final_count":                  result.ContextMetadata.FinalCount,
			"token_count":                  result.ContextMetadata.TokenCount,
			"query_provided":               result.ContextMetadata.QueryProvided,
			"relevance_extraction_applied": result.ContextMetadata.RelevanceExtractionApplied,
		},
	})
}

func intentFrom(s string) retrieval.Intent {
	switch retrieval.Intent(s) {
	case retrieval.IntentSearch, retrieval.IntentRecommend, retrieval.IntentSummarize:
		return retrieval.Intent(s)
	default:
		return retrieval.IntentAnswer
	}
}

// replyHandler handles POST /reply, grounding a generated customer reply
// in a prior /init call's context id, per spec.md §6.1.
func (s *Server) replyHandler(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, apperrors.Wrap(apperrors.KindValidation, "api", "invalid request body", err))
		return
	}

	ctxVal, ok := s.deps.replyContexts.Get(req.ContextID)
	if !ok {
		abortError(c, apperrors.New(apperrors.KindNotFound, "api", "unknown or expired context_id"))
		return
	}

	resp, err := s.deps.Router.Generate(c.Request.Context(), buildReplyRequest(ctxVal, req))
	if err != nil {
		abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, replyResponse{Reply: resp.Text})
}

// buildReplyRequest composes the reply generation prompt from the stored
// ticket/summary context plus the caller's customer message and desired
// tone, per spec.md §4.8's reply flow.
func buildReplyRequest(ctxVal replyContext, req replyRequest) llm.Request {
	tone := req.Tone
	if tone == "" {
		tone = "professional"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ticket: %s\n\n", ctxVal.Ticket.Subject)
	fmt.Fprintf(&b, "Description: %s\n\n", ctxVal.Ticket.Description)
	if ctxVal.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n\n", ctxVal.Summary)
	}
	if req.CustomerMsg != "" {
		fmt.Fprintf(&b, "Latest customer message: %s\n\n", req.CustomerMsg)
	}
	b.WriteString("Draft a reply to the customer.")

	return llm.Request{
		Prompt:       b.String(),
		SystemPrompt: fmt.Sprintf("You are a support agent replying in a %s tone. Be concise and accurate.", tone),
		TaskType:     config.TaskTypeHeavy,
	}
}
