package api

import (
	"testing"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/retrieval"
)

func TestReplyContextStore_PutThenGet(t *testing.T) {
	store := newReplyContextStore()
	ticket := retrieval.TicketView{OriginalID: "42", Subject: "printer on fire"}

	id := store.Put("acme", ticket, "customer's printer caught fire")
	got, ok := store.Get(id)
	if !ok {
		t.Fatal("expected the just-stored context to be retrievable")
	}
	if got.TenantID != "acme" || got.Ticket.OriginalID != "42" {
		t.Fatalf("unexpected stored context: %+v", got)
	}
}

func TestReplyContextStore_GetMissingReturnsFalse(t *testing.T) {
	store := newReplyContextStore()
	if _, ok := store.Get("does-not-exist"); ok {
		t.Fatal("expected a miss for an unknown context id")
	}
}
