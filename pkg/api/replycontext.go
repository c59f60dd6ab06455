package api

import (
	"github.com/google/uuid"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/cache"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/retrieval"
)

// maxReplyContexts bounds memory if /init is called far more often than
// /reply ever follows up — old entries are simply evicted LRU, same
// tradeoff pkg/cache already makes for the LLM Router's caches.
const maxReplyContexts = 10_000

// replyContext is what /reply needs to ground a generated reply: the
// ticket content and the summary /init already produced for it.
type replyContext struct {
	TenantID string
	Ticket   retrieval.TicketView
	Summary  string
}

// replyContextStore holds short-lived /init results keyed by the opaque
// context id /init returns, so a follow-up POST /reply can ground its
// generation in the same ticket without re-fetching or re-summarizing it.
type replyContextStore struct {
	cache *cache.Cache[replyContext]
}

func newReplyContextStore() *replyContextStore {
	return &replyContextStore{cache: cache.New[replyContext](replyContextTTL, maxReplyContexts)}
}

// Put stores ctx and returns the id it was stored under.
func (s *replyContextStore) Put(tenantID string, ticket retrieval.TicketView, summary string) string {
	id := uuid.New().String()
	s.cache.Set(id, replyContext{TenantID: tenantID, Ticket: ticket, Summary: summary})
	return id
}

// Get returns the stored context for id, if present and not expired.
func (s *replyContextStore) Get(id string) (replyContext, bool) {
	return s.cache.Get(id)
}
