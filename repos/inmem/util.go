package inmem

import (
	"context"
	"time"

	"github.com/careflow-systems/hospital-core/domain"
)

// ctxErr returns ctx.Err() if ctx is already done, matching the teacher's
// registry/store/memory idiom of checking cancellation before touching the
// guarded map.
func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// paginate slices an already-deterministically-ordered slice by page.
// Callers sort their matched rows (by id) before calling this, since map
// iteration order is not stable.
func paginate[T any](items []T, page domain.Page) []T {
	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start > len(items) {
		start = len(items)
	}
	end := len(items)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	return items[start:end]
}

// inWindow reports whether t falls in [window.Start, window.End). A zero
// Start or End leaves that bound open.
func inWindow(t time.Time, window domain.TimeWindow) bool {
	if !window.Start.IsZero() && t.Before(window.Start) {
		return false
	}
	if !window.End.IsZero() && !t.Before(window.End) {
		return false
	}
	return true
}
