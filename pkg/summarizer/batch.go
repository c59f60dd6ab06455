package summarizer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/tenantstore"
)

// Batch-mode defaults, per spec.md §4.5.
const (
	DefaultMaxConcurrent = 10
	DefaultMaxRetries    = 3
	DefaultBatchSize     = 100
)

// Record is one object awaiting summarization in batch mode.
type Record struct {
	ID       int // ent IntegratedObject.ID, for UpdateSummary
	TenantID string
	Platform string
	Ticket   Ticket
}

// Progress is streamed to the caller after each record finishes, mirroring
// BatchSummarizer's progress_callback.
type Progress struct {
	Completed int
	Total     int
	RecordID  int
	Passed    bool
	Err       error
}

// BatchSummarizer runs Summarizer.Generate over many records with bounded
// concurrency and a quality-gated retry loop, grounded on the original
// BatchSummarizer (asyncio.Semaphore + retry-with-backoff) translated into
// this codebase's own goroutine/channel concurrency idiom (pkg/queue's
// WorkerPool/Worker use the same buffered-channel-as-semaphore shape for
// bounding concurrent work).
type BatchSummarizer struct {
	summarizer    *Summarizer
	store         tenantstore.Store
	maxConcurrent int
	maxRetries    int
}

// NewBatch builds a BatchSummarizer. maxConcurrent/maxRetries fall back to
// the package defaults when <= 0.
func NewBatch(s *Summarizer, store tenantstore.Store, maxConcurrent, maxRetries int) *BatchSummarizer {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &BatchSummarizer{
		summarizer:    s,
		store:         store,
		maxConcurrent: maxConcurrent,
		maxRetries:    maxRetries,
	}
}

// Run summarizes every record, invoking progressFn (if non-nil) after each
// one completes or exhausts its retries. It blocks until all records have
// been attempted.
func (b *BatchSummarizer) Run(ctx context.Context, records []Record, progressFn func(Progress)) {
	sem := make(chan struct{}, b.maxConcurrent)
	var wg sync.WaitGroup
	var completed int64
	var mu sync.Mutex

	for _, rec := range records {
		rec := rec
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			passed, err := b.processWithRetry(ctx, rec)

			mu.Lock()
			completed++
			n := completed
			mu.Unlock()

			if progressFn != nil {
				progressFn(Progress{
					Completed: int(n),
					Total:     len(records),
					RecordID:  rec.ID,
					Passed:    passed,
					Err:       err,
				})
			}
		}()
	}
	wg.Wait()
}

// processWithRetry generates and scores a summary, making up to maxRetries
// attempts with a linearly growing backoff while the quality score fails
// the retry gate, mirroring BatchSummarizer's retry_count loop
// (2.0 * (attempt+1) seconds between attempts).
func (b *BatchSummarizer) processWithRetry(ctx context.Context, rec Record) (passed bool, err error) {
	var summary Summary
	var score QualityScore
	scoredAttempt := 0

	for attempt := 0; attempt < b.maxRetries; attempt++ {
		summary, err = b.summarizer.Generate(ctx, rec.Ticket)
		if err != nil {
			slog.Error("summary generation failed", "record_id", rec.ID, "attempt", attempt+1, "error", err)
			if !sleepBackoff(ctx, attempt) {
				return false, ctx.Err()
			}
			continue
		}

		score = Evaluate(rec.Ticket.Body, summary.RawText)
		scoredAttempt = attempt + 1
		if !score.ShouldRetry() {
			passed = true
			break
		}

		slog.Warn("summary quality below retry threshold", "record_id", rec.ID, "attempt", attempt+1, "overall_score", score.Overall)
		if !sleepBackoff(ctx, attempt) {
			return false, ctx.Err()
		}
	}

	if saveErr := b.store.SaveQualityScore(ctx, tenantstore.QualityScoreRecord{
		TenantID:             rec.TenantID,
		Platform:             rec.Platform,
		OriginalID:           rec.Ticket.ID,
		OverallScore:         score.Overall,
		StructureScore:       score.Structure,
		CompletionInfoScore:  score.Completion,
		ContentFidelityScore: score.Fidelity,
		LanguageQualityScore: score.Language,
		LengthScore:          score.Length,
		Attempt:              scoredAttempt,
		Passed:               passed,
	}); saveErr != nil {
		slog.Error("failed to persist quality score", "record_id", rec.ID, "error", saveErr)
	}

	if err != nil {
		return false, err
	}

	if _, updateErr := b.store.UpdateSummary(ctx, rec.ID, summary.TicketSummary); updateErr != nil {
		return passed, updateErr
	}
	return passed, nil
}

// sleepBackoff waits 2*(attempt+1) seconds, returning false if ctx is
// cancelled first.
func sleepBackoff(ctx context.Context, attempt int) bool {
	select {
	case <-time.After(time.Duration(2*(attempt+1)) * time.Second):
		return true
	case <-ctx.Done():
		return false
	}
}
