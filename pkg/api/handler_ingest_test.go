package api

import (
	"testing"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/retrieval"
)

func TestPurgeToken_MatchesOneDayFormat(t *testing.T) {
	day := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	got := purgeToken("acme", "freshdesk", day)
	want := "DELETE_acme_freshdesk_20260731"
	if got != want {
		t.Fatalf("purgeToken() = %q, want %q", got, want)
	}
}

func TestPurgeToken_VariesByDay(t *testing.T) {
	a := purgeToken("acme", "freshdesk", time.Date(2026, 7, 31, 23, 59, 0, 0, time.UTC))
	b := purgeToken("acme", "freshdesk", time.Date(2026, 8, 1, 0, 1, 0, 0, time.UTC))
	if a == b {
		t.Fatal("expected token to change across a UTC day boundary")
	}
}

func TestParamsFromRequest_DefaultsAndOverrides(t *testing.T) {
	req := ingestRequest{IncludeKB: true, MaxTickets: 50}
	p, err := paramsFromRequest(req, "acme", "freshdesk", "/data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.DaysPerChunk != 30 {
		t.Fatalf("expected default DaysPerChunk of 30, got %d", p.DaysPerChunk)
	}
	if p.TenantID != "acme" || p.Platform != "freshdesk" || p.BaseDir != "/data" {
		t.Fatalf("unexpected identity/base dir fields: %+v", p)
	}
	if !p.IncludeKB || p.MaxTickets != 50 {
		t.Fatalf("expected request fields to carry through, got %+v", p)
	}
}

func TestParamsFromRequest_BatchSizeOverridesDaysPerChunk(t *testing.T) {
	req := ingestRequest{BatchSize: 7}
	p, err := paramsFromRequest(req, "acme", "freshdesk", "/data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.DaysPerChunk != 7 {
		t.Fatalf("expected BatchSize to override DaysPerChunk, got %d", p.DaysPerChunk)
	}
}

func TestParamsFromRequest_RejectsInvalidDates(t *testing.T) {
	req := ingestRequest{StartDate: "not-a-date"}
	if _, err := paramsFromRequest(req, "acme", "freshdesk", "/data"); err == nil {
		t.Fatal("expected an error for an unparseable start_date")
	}
}

func TestParamsFromRequest_ParsesRFC3339Dates(t *testing.T) {
	req := ingestRequest{StartDate: "2026-01-01T00:00:00Z", EndDate: "2026-06-01T00:00:00Z"}
	p, err := paramsFromRequest(req, "acme", "freshdesk", "/data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.StartDate.Year() != 2026 || p.EndDate.Month() != time.June {
		t.Fatalf("unexpected parsed dates: %+v / %+v", p.StartDate, p.EndDate)
	}
}

func TestIntentFrom_UnknownFallsBackToAnswer(t *testing.T) {
	if got := intentFrom("gibberish"); got != retrieval.IntentAnswer {
		t.Fatalf("expected IntentAnswer fallback, got %q", got)
	}
	if got := intentFrom("recommend"); got != retrieval.IntentRecommend {
		t.Fatalf("expected IntentRecommend to pass through, got %q", got)
	}
}
