package ingestion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
)

// RangeProgress is one completed (or partially completed) collection
// window, per spec.md §4.6 step 5.
type RangeProgress struct {
	RangeID     string `json:"range_id"`
	TicketCount int    `json:"ticket_count"`
	Partial     bool   `json:"partial"`
}

// Progress is the on-disk resumability record for one tenant/platform
// ingestion run: every progress mutation is flushed here so a new run can
// skip completed windows, per spec.md §4.6's "Resumability" paragraph.
type Progress struct {
	CompletedRanges []RangeProgress `json:"completed_ranges"`
	RequestDelayMs  int64           `json:"request_delay_ms"`

	mu   sync.Mutex
	path string
}

// loadProgress reads path's progress.json, returning a fresh Progress if
// the file does not yet exist (first run for this tenant/platform).
func loadProgress(path string) (*Progress, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Progress{path: path, RequestDelayMs: int64(baseRequestDelayMs)}, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ingestion", "failed to read progress file", err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ingestion", "failed to parse progress file", err)
	}
	p.path = path
	if p.RequestDelayMs == 0 {
		p.RequestDelayMs = int64(baseRequestDelayMs)
	}
	return &p, nil
}

// isComplete reports whether rangeID was already recorded as fully
// collected (not partial) in a prior run.
func (p *Progress) isComplete(rangeID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.CompletedRanges {
		if r.RangeID == rangeID && !r.Partial {
			return true
		}
	}
	return false
}

// recordRange upserts a range's outcome and immediately persists, so a
// crash between windows loses at most the in-flight window.
func (p *Progress) recordRange(rec RangeProgress) error {
	p.mu.Lock()
	replaced := false
	for i, r := range p.CompletedRanges {
		if r.RangeID == rec.RangeID {
			p.CompletedRanges[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		p.CompletedRanges = append(p.CompletedRanges, rec)
	}
	p.mu.Unlock()
	return p.save()
}

func (p *Progress) save() error {
	p.mu.Lock()
	snapshot := Progress{CompletedRanges: p.CompletedRanges, RequestDelayMs: p.RequestDelayMs}
	path := p.path
	p.mu.Unlock()

	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "ingestion", "failed to create progress directory", err)
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "ingestion", "failed to encode progress file", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "ingestion", "failed to write progress file", err)
	}
	return nil
}

// progressPath returns the conventional on-disk location for a tenant's
// ingestion progress file under baseDir.
func progressPath(baseDir, tenantID, platformName string) string {
	return filepath.Join(baseDir, tenantID, platformName, "progress.json")
}
