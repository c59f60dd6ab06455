package ingestion

import (
	"fmt"
	"time"
)

// Default window bounds, per spec.md §4.6 step 1.
const (
	defaultLookbackYears = 10
	defaultDaysPerChunk  = 30
)

// window is one date-range slice of the overall collection period.
type window struct {
	Start time.Time
	End   time.Time
}

// RangeID is the stable identifier progress.json records completion
// against.
func (w window) RangeID() string {
	return fmt.Sprintf("%s_%s", w.Start.Format("20060102"), w.End.Format("20060102"))
}

// computeWindows splits [start, end) into daysPerChunk-sized windows,
// oldest first, per spec.md §4.6 step 1.
func computeWindows(start, end time.Time, daysPerChunk int) []window {
	if daysPerChunk <= 0 {
		daysPerChunk = defaultDaysPerChunk
	}
	var windows []window
	cursor := start
	step := time.Duration(daysPerChunk) * 24 * time.Hour
	for cursor.Before(end) {
		next := cursor.Add(step)
		if next.After(end) {
			next = end
		}
		windows = append(windows, window{Start: cursor, End: next})
		cursor = next
	}
	return windows
}

// defaultStartDate is "10 years ago" from now, per spec.md §4.6 step 1.
func defaultStartDate(now time.Time) time.Time {
	return now.AddDate(-defaultLookbackYears, 0, 0)
}
