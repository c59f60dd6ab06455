package api

import "time"

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents the status of a single health check component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ticketResponse renders retrieval.TicketView for the wire.
type ticketResponse struct {
	OriginalID  string `json:"original_id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// similarTicketResponse renders one retrieval.SimilarTicket for the wire.
type similarTicketResponse struct {
	OriginalID   string  `json:"original_id"`
	Score        float32 `json:"score"`
	Summary      string  `json:"summary"`
	ShortSummary string  `json:"short_summary"`
}

// kbArticleResponse renders one vectorstore.SearchResult (doc_type=article)
// for the wire.
type kbArticleResponse struct {
	OriginalID string  `json:"original_id"`
	Score      float32 `json:"score"`
	Summary    string  `json:"summary"`
}

// initResponse is returned by GET /init/{ticket_id} in the non-streaming
// case.
type initResponse struct {
	ContextID      string                  `json:"context_id"`
	Ticket         ticketResponse          `json:"ticket_data"`
	Summary        string                  `json:"summary"`
	SimilarTickets []similarTicketResponse `json:"similar_tickets"`
	KBArticles     []kbArticleResponse     `json:"kb_articles"`
}

// progressEventResponse is one SSE event for the streaming /init case.
type progressEventResponse struct {
	Stage             string  `json:"stage"`
	ProgressPercent   float64 `json:"progress_percent"`
	RemainingTimeSecs float64 `json:"remaining_time_seconds"`
}

// citationResponse renders one retrieval.Citation for the wire.
type citationResponse struct {
	OriginalID string  `json:"original_id"`
	DocType    string  `json:"doc_type"`
	Score      float32 `json:"score"`
}

// queryResponse is returned by POST /query.
type queryResponse struct {
	Answer          string                 `json:"answer"`
	Citations       []citationResponse     `json:"citations"`
	ContextMetadata map[string]interface{} `json:"context_metadata"`
}

// replyResponse is returned by POST /reply.
type replyResponse struct {
	Reply string `json:"reply"`
}

// jobResponse renders a jobs.View for the wire.
type jobResponse struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	Platform         string    `json:"platform"`
	Status           string    `json:"status"`
	CanPause         bool      `json:"can_pause"`
	CreatedAt        time.Time `json:"created_at"`
	StartedAt        time.Time `json:"started_at,omitempty"`
	CompletedAt      time.Time `json:"completed_at,omitempty"`
	TicketsCollected int       `json:"tickets_collected"`
	WindowsProcessed int       `json:"windows_processed"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	ProgressMessage  string    `json:"progress_message,omitempty"`
	ProgressPercent  float64   `json:"progress_percent"`
}

// ingestResultResponse is returned by the synchronous POST /ingest.
type ingestResultResponse struct {
	TicketsCollected int  `json:"tickets_collected"`
	WindowsProcessed int  `json:"windows_processed"`
	Cancelled        bool `json:"cancelled"`
}

// purgeResponse is returned by POST /ingest/security/purge-data.
type purgeResponse struct {
	ObjectsAffected int `json:"objects_affected"`
	VectorsAffected int `json:"vectors_affected"`
}
